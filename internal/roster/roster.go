// Package roster owns the student roster: the ordered students, the
// running point total, the pending paid-toggle confirmation and the
// validation-error flag of the add form.
//
// Every operation runs under one mutex, so from a caller's point of view
// operations never overlap. A mutating operation builds the new state,
// writes the affected storage keys, and only then commits the new state
// in memory: when the write fails nothing changes.
//
// Rendering layers read a Snapshot and Subscribe to change events.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/student-roster/internal/storage"
	"github.com/aanand-mishra/student-roster/internal/types"
)

// The messages are shown to the user as they are, in the page toasts and
// in the API error envelope.
var (
	// ErrEmptyName is returned by Add when the name is blank after trimming.
	ErrEmptyName = errors.New("Please enter the student's name")

	// ErrNotFound is returned when no student has the given id.
	ErrNotFound = errors.New("Student not found")

	// ErrNotPaid is returned by Delete for a student that has not paid.
	ErrNotPaid = errors.New("Student must be marked paid before deletion")
)

// TotalPolicy decides how the running total reacts to a points action
// that does not move any student.
type TotalPolicy string

const (
	// PolicyGuarded moves the running total only together with a student.
	PolicyGuarded TotalPolicy = "guarded"

	// PolicyLegacy always moves the running total: an increment on an
	// unknown id and a decrement on a student below the increment still
	// change it.
	PolicyLegacy TotalPolicy = "legacy"
)

// Options configures a Store. The zero value is usable.
type Options struct {
	// ConfirmTimeout expires a pending paid-toggle confirmation after this
	// long. Zero keeps it until it is confirmed or replaced.
	ConfirmTimeout time.Duration

	// TotalPolicy defaults to PolicyGuarded.
	TotalPolicy TotalPolicy

	// OnOperation, when set, is called after every operation with its
	// name and result. Metrics hook in here.
	OnOperation func(op Op, err error)

	Logger *slog.Logger

	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string
}

type confirmation struct {
	studentID   string
	requestedAt time.Time
}

// Store is the roster. Create it with New.
type Store struct {
	kv   storage.Storage
	opts Options
	log  *slog.Logger

	mu              sync.Mutex
	students        []types.Student
	total           int
	pending         *confirmation
	validationError bool

	subMu       sync.RWMutex
	subscribers map[<-chan Event]chan Event
}

// New hydrates a Store from kv.
//
// A missing key starts that value at its default (empty roster, zero
// total). An entry that cannot be decoded is treated the same way and
// logged; only a failing backend is an error.
func New(ctx context.Context, kv storage.Storage, opts Options) (*Store, error) {
	if opts.TotalPolicy == "" {
		opts.TotalPolicy = PolicyGuarded
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Store{
		kv:          kv,
		opts:        opts,
		log:         opts.Logger.With(slog.String("component", "roster")),
		students:    []types.Student{},
		subscribers: make(map[<-chan Event]chan Event),
	}

	students, err := loadStudents(ctx, kv)
	if err != nil {
		return nil, err
	}
	total, err := loadTotal(ctx, kv)
	if err != nil {
		return nil, err
	}

	if students.malformed != nil {
		s.log.Warn("discarding unreadable students entry",
			slog.String("error", students.malformed.Error()))
	}
	if total.malformed != nil {
		s.log.Warn("discarding unreadable totalPoints entry",
			slog.String("error", total.malformed.Error()))
	}

	s.students = students.value
	s.total = total.value

	s.log.Info("roster loaded",
		slog.Int("students", len(s.students)),
		slog.Int("running_total", s.total),
		slog.String("total_policy", string(opts.TotalPolicy)),
		slog.Duration("confirm_timeout", opts.ConfirmTimeout),
	)

	return s, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Read side
// ─────────────────────────────────────────────────────────────────────────────

// Students returns a copy of the roster in insertion order.
func (s *Store) Students() []types.Student {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneStudents(s.students)
}

// Get returns the student with id, or ErrNotFound.
func (s *Store) Get(id string) (types.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return types.Student{}, ErrNotFound
	}
	return s.students[i], nil
}

// Total returns the running total.
func (s *Store) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.total
}

// Pending returns the id awaiting a confirming toggle, if any.
func (s *Store) Pending() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.pendingLocked()
	return id, id != ""
}

// ValidationError reports whether the last add was rejected for a blank
// name and the input has not been edited since.
func (s *Store) ValidationError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.validationError
}

// Summary returns the figures of the summary panel.
func (s *Store) Summary() types.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.summaryLocked()
}

// Snapshot returns the whole state in one consistent read.
func (s *Store) Snapshot() types.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// ─────────────────────────────────────────────────────────────────────────────
// Mutations
// ─────────────────────────────────────────────────────────────────────────────

// Add appends a student named name (trimmed) with zero points, unpaid.
//
// A blank name sets the validation flag and returns ErrEmptyName; the
// roster is unchanged. A successful add clears the flag.
func (s *Store) Add(ctx context.Context, name string) (student types.Student, err error) {
	s.mu.Lock()
	defer s.finish(OpAdd, &student.ID, &err)

	name = strings.TrimSpace(name)
	if err := validate.Var(name, "required,notblank"); err != nil {
		s.validationError = true
		return types.Student{}, ErrEmptyName
	}

	student = types.Student{
		ID:     s.opts.NewID(),
		Name:   name,
		Points: 0,
		Paid:   false,
	}

	next := append(cloneStudents(s.students), student)
	if err := s.saveStudents(ctx, next); err != nil {
		return types.Student{}, err
	}

	s.students = next
	s.validationError = false
	return student, nil
}

// ClearValidationError drops the validation flag. The form calls it once
// the user edits the name again.
func (s *Store) ClearValidationError() {
	s.mu.Lock()
	if s.validationError {
		s.validationError = false
		s.publish(s.eventLocked(OpClearValidation, ""))
	}
	s.mu.Unlock()

	if s.opts.OnOperation != nil {
		s.opts.OnOperation(OpClearValidation, nil)
	}
}

// IncrementPoints adds Increment to the student and to the running total.
func (s *Store) IncrementPoints(ctx context.Context, id string) (student types.Student, err error) {
	s.mu.Lock()
	defer s.finish(OpIncrement, &id, &err)

	return s.adjustLocked(ctx, id, types.Increment)
}

// DecrementPoints removes Increment from the student and from the
// running total. A student below Increment keeps its points; whether the
// running total still moves depends on the TotalPolicy.
func (s *Store) DecrementPoints(ctx context.Context, id string) (student types.Student, err error) {
	s.mu.Lock()
	defer s.finish(OpDecrement, &id, &err)

	return s.adjustLocked(ctx, id, -types.Increment)
}

func (s *Store) adjustLocked(ctx context.Context, id string, delta int) (types.Student, error) {
	legacy := s.opts.TotalPolicy == PolicyLegacy

	i := s.indexLocked(id)
	if i < 0 {
		if legacy {
			if err := s.saveTotal(ctx, s.total+delta); err != nil {
				return types.Student{}, err
			}
			s.total += delta
		}
		return types.Student{}, ErrNotFound
	}

	if s.students[i].Points+delta < 0 {
		if legacy {
			if err := s.saveTotal(ctx, s.total+delta); err != nil {
				return types.Student{}, err
			}
			s.total += delta
		}
		return s.students[i], nil
	}

	next := cloneStudents(s.students)
	next[i].Points += delta

	if err := s.saveBoth(ctx, next, s.total+delta); err != nil {
		return types.Student{}, err
	}

	s.students = next
	s.total += delta
	return next[i], nil
}

// TogglePaid is the two-step paid switch.
//
// The first call for id marks it as awaiting confirmation and changes
// nothing else. A second call for the same id, before the confirmation
// expires, flips the student's paid flag and clears the marker. A call for
// another id moves the marker to that id.
func (s *Store) TogglePaid(ctx context.Context, id string) (result ToggleResult, err error) {
	s.mu.Lock()
	op := OpToggleRequest
	defer func() {
		// The operation name depends on which step ran.
		s.finish(op, &id, &err)
	}()

	i := s.indexLocked(id)
	if i < 0 {
		return ToggleResult{}, ErrNotFound
	}

	if s.pendingLocked() != id {
		s.pending = &confirmation{studentID: id, requestedAt: s.opts.Now()}
		return ToggleResult{State: AwaitingConfirmation, Student: s.students[i]}, nil
	}

	op = OpToggleConfirm

	next := cloneStudents(s.students)
	next[i].Paid = !next[i].Paid
	if err := s.saveStudents(ctx, next); err != nil {
		return ToggleResult{}, err
	}

	s.students = next
	s.pending = nil
	return ToggleResult{State: Committed, Student: next[i]}, nil
}

// Delete removes a paid student. Unpaid students are kept and ErrNotPaid
// is returned.
func (s *Store) Delete(ctx context.Context, id string) (err error) {
	s.mu.Lock()
	defer s.finish(OpDelete, &id, &err)

	i := s.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	if !s.students[i].Paid {
		return ErrNotPaid
	}

	next := make([]types.Student, 0, len(s.students)-1)
	next = append(next, s.students[:i]...)
	next = append(next, s.students[i+1:]...)

	if err := s.saveStudents(ctx, next); err != nil {
		return err
	}

	s.students = next
	if s.pending != nil && s.pending.studentID == id {
		s.pending = nil
	}
	return nil
}

// ResetTotal sets the running total to zero. Students keep their points.
func (s *Store) ResetTotal(ctx context.Context) (err error) {
	s.mu.Lock()
	var none string
	defer s.finish(OpResetTotal, &none, &err)

	if err := s.saveTotal(ctx, 0); err != nil {
		return err
	}
	s.total = 0
	return nil
}

// finish runs deferred at the end of every mutation, with s.mu held. It
// publishes the change event, releases the lock, logs, and reports to
// OnOperation. Events are published before the lock is released so
// subscribers see them in operation order. A storage failure publishes
// nothing: the state did not change.
func (s *Store) finish(op Op, id *string, err *error) {
	failed := *err != nil && !isRejection(*err)

	ev := s.eventLocked(op, *id)
	if *err != nil {
		ev.Rejected = (*err).Error()
	}
	if !failed {
		s.publish(ev)
	}
	s.mu.Unlock()

	if s.opts.OnOperation != nil {
		s.opts.OnOperation(op, *err)
	}

	if failed {
		s.log.Error("roster operation failed",
			slog.String("op", string(op)),
			slog.String("id", *id),
			slog.String("error", (*err).Error()))
		return
	}

	s.log.Debug("roster operation",
		slog.String("op", string(op)),
		slog.String("id", *id),
		slog.String("rejected", ev.Rejected))
}

// isRejection reports whether err is a business-rule rejection rather
// than a failure.
func isRejection(err error) bool {
	return errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNotPaid)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers. Callers hold s.mu.
// ─────────────────────────────────────────────────────────────────────────────

func (s *Store) indexLocked(id string) int {
	for i := range s.students {
		if s.students[i].ID == id {
			return i
		}
	}
	return -1
}

// pendingLocked returns the pending id, dropping it first if it expired.
func (s *Store) pendingLocked() string {
	if s.pending == nil {
		return ""
	}
	if t := s.opts.ConfirmTimeout; t > 0 && s.opts.Now().Sub(s.pending.requestedAt) >= t {
		s.pending = nil
		return ""
	}
	return s.pending.studentID
}

func (s *Store) summaryLocked() types.Summary {
	sum := types.Summary{
		Students:     len(s.students),
		RunningTotal: s.total,
	}
	for _, st := range s.students {
		if st.Paid {
			sum.Paid++
		}
		sum.PointsSum += st.Points
	}
	sum.Pending = sum.Students - sum.Paid
	return sum
}

func (s *Store) snapshotLocked() types.Snapshot {
	return types.Snapshot{
		Students:            cloneStudents(s.students),
		Summary:             s.summaryLocked(),
		PendingConfirmation: s.pendingLocked(),
		ValidationError:     s.validationError,
	}
}

func cloneStudents(in []types.Student) []types.Student {
	out := make([]types.Student, len(in))
	copy(out, in)
	return out
}

func (s *Store) saveStudents(ctx context.Context, students []types.Student) error {
	value, err := encodeStudents(students)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, storage.KeyStudents, value); err != nil {
		return fmt.Errorf("save students: %w", err)
	}
	return nil
}

func (s *Store) saveTotal(ctx context.Context, total int) error {
	value, err := encodeTotal(total)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, storage.KeyTotalPoints, value); err != nil {
		return fmt.Errorf("save total: %w", err)
	}
	return nil
}

func (s *Store) saveBoth(ctx context.Context, students []types.Student, total int) error {
	studentsValue, err := encodeStudents(students)
	if err != nil {
		return err
	}
	totalValue, err := encodeTotal(total)
	if err != nil {
		return err
	}

	err = s.kv.SetMany(ctx, map[string][]byte{
		storage.KeyStudents:    studentsValue,
		storage.KeyTotalPoints: totalValue,
	})
	if err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	return nil
}
