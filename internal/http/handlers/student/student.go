// Package student contains the JSON API handlers of the roster.
//
// HANDLER PATTERN USED HERE — THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────────────────
// Go's router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// That signature has no room for extra parameters like the roster.
// To inject dependencies we use a factory function that:
//  1. Accepts dependencies (the roster)
//  2. Returns a function with the exact signature the router needs
//
//	router.HandleFunc("POST /api/students", student.New(store))
//	//                                              ^^^^^^^^^^^
//	//                         New(store) is called ONCE at startup.
//	//                         It returns a handler func which is called
//	//                         on EVERY incoming request.
package student

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/student-roster/internal/roster"
	"github.com/aanand-mishra/student-roster/internal/types"
	"github.com/aanand-mishra/student-roster/internal/utils/response"
)

// Roster is what the handlers need from the roster store.
// *roster.Store satisfies it.
type Roster interface {
	Students() []types.Student
	Get(id string) (types.Student, error)
	Summary() types.Summary
	Snapshot() types.Snapshot

	Add(ctx context.Context, name string) (types.Student, error)
	ClearValidationError()
	IncrementPoints(ctx context.Context, id string) (types.Student, error)
	DecrementPoints(ctx context.Context, id string) (types.Student, error)
	TogglePaid(ctx context.Context, id string) (roster.ToggleResult, error)
	Delete(ctx context.Context, id string) error
	ResetTotal(ctx context.Context) error

	Subscribe() <-chan roster.Event
	Unsubscribe(ch <-chan roster.Event)
}

var _ Roster = (*roster.Store)(nil)

// writeError maps roster errors to HTTP statuses:
//
//	ErrEmptyName → 400 Bad Request
//	ErrNotFound  → 404 Not Found
//	ErrNotPaid   → 409 Conflict (a warning, not an error)
//	anything else → 500 Internal Server Error
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, roster.ErrEmptyName):
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
	case errors.Is(err, roster.ErrNotFound):
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(err))
	case errors.Is(err, roster.ErrNotPaid):
		response.WriteJSON(w, http.StatusConflict, response.Warning(err))
	default:
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
// Adds a student at the end of the roster.
//
// Request body (JSON):
//
//	{ "name": "Ana" }
//
// Success response (201 Created):
//
//	{ "id": "6f1c…", "name": "Ana", "points": 0, "paid": false }
//
// Error responses:
//
//	400 Bad Request  — empty body, malformed JSON, or blank name
//	500 Internal     — storage error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("adding a student")

		var req types.NewStudentRequest
		err := json.NewDecoder(r.Body).Decode(&req)

		if errors.Is(err, io.EOF) {
			// io.EOF means the body was completely empty — nothing to decode.
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("request body is empty")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// The roster trims and validates the name itself, so a blank name
		// also raises the form's validation flag.
		student, err := store.Add(r.Context(), req.Name)
		if err != nil {
			writeError(w, err)
			return
		}

		slog.Info("student added", slog.String("id", student.ID))
		response.WriteJSON(w, http.StatusCreated, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students
// Returns the roster in insertion order. An empty roster is [] (not null).
// ─────────────────────────────────────────────────────────────────────────────
func GetList(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, store.Students())
	}
}

// GetByID handles GET /api/students/{id}
func GetByID(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		student, err := store.Get(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Increment handles POST /api/students/{id}/points/increment
// Decrement handles POST /api/students/{id}/points/decrement
//
// Both return the student after the change. A decrement on a student with
// fewer than 25 points is not an error: the student comes back unchanged.
// ─────────────────────────────────────────────────────────────────────────────
func Increment(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("incrementing points", slog.String("id", id))

		student, err := store.IncrementPoints(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, student)
	}
}

func Decrement(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("decrementing points", slog.String("id", id))

		student, err := store.DecrementPoints(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// TogglePaid handles POST /api/students/{id}/paid
//
// The first call arms the confirmation, the second flips the flag:
//
//	{ "state": "awaiting_confirmation", "student": { … "paid": false } }
//	{ "state": "committed",             "student": { … "paid": true  } }
//
// ─────────────────────────────────────────────────────────────────────────────
func TogglePaid(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("toggling paid", slog.String("id", id))

		result, err := store.TogglePaid(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, result)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/students/{id}
//
// Success response (200 OK):
//
//	{ "status": "deleted" }
//
// Error responses:
//
//	404 Not Found  — unknown id
//	409 Conflict   — the student has not paid yet (warning envelope)
//	500 Internal   — storage error
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("deleting a student", slog.String("id", id))

		if err := store.Delete(r.Context(), id); err != nil {
			if errors.Is(err, roster.ErrNotPaid) {
				slog.Warn("delete rejected", slog.String("id", id),
					slog.String("reason", err.Error()))
			}
			writeError(w, err)
			return
		}

		slog.Info("student deleted", slog.String("id", id))
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// ClearValidation handles DELETE /api/validation. The page calls it when
// the user edits the name input after a rejected add.
func ClearValidation(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store.ClearValidationError()
		response.WriteJSON(w, http.StatusOK, response.OK())
	}
}

// ResetTotal handles POST /api/total/reset and returns the new summary.
func ResetTotal(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("resetting running total")

		if err := store.ResetTotal(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, store.Summary())
	}
}

// Summary handles GET /api/summary
func Summary(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, store.Summary())
	}
}

// Snapshot handles GET /api/roster: students, summary, pending
// confirmation and validation flag in one consistent read.
func Snapshot(store Roster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, store.Snapshot())
	}
}
