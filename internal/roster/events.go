package roster

import (
	"github.com/aanand-mishra/student-roster/internal/types"
)

// Op names a roster operation in events, logs and metrics.
type Op string

const (
	OpAdd             Op = "add"
	OpClearValidation Op = "clear_validation"
	OpIncrement       Op = "increment"
	OpDecrement       Op = "decrement"
	OpToggleRequest   Op = "toggle_request"
	OpToggleConfirm   Op = "toggle_confirm"
	OpDelete          Op = "delete"
	OpResetTotal      Op = "reset_total"
)

// ToggleState is the outcome of one TogglePaid call.
type ToggleState string

const (
	// AwaitingConfirmation means the call only armed the confirmation.
	AwaitingConfirmation ToggleState = "awaiting_confirmation"

	// Committed means the call flipped the paid flag.
	Committed ToggleState = "committed"
)

// ToggleResult is returned by TogglePaid.
type ToggleResult struct {
	State   ToggleState   `json:"state"`
	Student types.Student `json:"student"`
}

// Event describes one finished operation and the state right after it.
type Event struct {
	Op        Op     `json:"op"`
	StudentID string `json:"student_id,omitempty"`

	// Rejected carries the rule that turned the operation down, if any
	// (for example "Student must be marked paid before deletion").
	Rejected string `json:"rejected,omitempty"`

	Snapshot types.Snapshot `json:"snapshot"`
}

// subscriberBuffer is the channel capacity of each subscriber.
const subscriberBuffer = 16

// Subscribe returns a channel receiving an Event after every operation,
// in operation order.
//
// Sends are non-blocking: when a subscriber's buffer is full the oldest
// buffered event is dropped to make room, so the last event received
// always carries the latest state. Call Unsubscribe when done.
func (s *Store) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	s.subMu.Lock()
	s.subscribers[ch] = ch
	s.subMu.Unlock()

	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe. Safe to
// call more than once.
func (s *Store) Unsubscribe(ch <-chan Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if sub, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(sub)
	}
}

func (s *Store) eventLocked(op Op, id string) Event {
	return Event{Op: op, StudentID: id, Snapshot: s.snapshotLocked()}
}

// publish runs with s.mu held, so at most one publish is in flight.
func (s *Store) publish(ev Event) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
			continue
		default:
		}

		// Full: drop the oldest event, then retry once. The subscriber may
		// drain concurrently, so neither step is allowed to block.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
