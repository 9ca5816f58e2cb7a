package student

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aanand-mishra/student-roster/internal/roster"
)

// sseWriteTimeout bounds each write to an event-stream client.
const sseWriteTimeout = 10 * time.Second

// ─────────────────────────────────────────────────────────────────────────────
// Events handles GET /api/events
// Streams roster changes as Server-Sent Events.
//
// The first message is the current snapshot (op "snapshot"); each
// following message is one roster.Event:
//
//	data: {"op":"increment","student_id":"6f1c…","snapshot":{…}}
//
// The stream ends when the client disconnects or the server shuts down.
// ─────────────────────────────────────────────────────────────────────────────
func Events(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		// ResponseController gives deadline-aware writes: a stalled client
		// times out instead of pinning this goroutine forever.
		rc := http.NewResponseController(w)
		deadlines := true

		send := func(ev roster.Event) error {
			data, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			if deadlines {
				if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
					deadlines = false
				}
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return err
			}
			return rc.Flush()
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		// Subscribe before reading the snapshot so no change falls in between.
		ch := store.Subscribe()
		defer store.Unsubscribe(ch)

		if err := send(roster.Event{Op: "snapshot", Snapshot: store.Snapshot()}); err != nil {
			return
		}

		slog.Debug("event stream opened", slog.String("remote_addr", r.RemoteAddr))

		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := send(ev); err != nil {
					slog.Debug("event stream closed", slog.String("error", err.Error()))
					return
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}
