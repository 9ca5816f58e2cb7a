// Package page renders the roster page and handles its form posts.
//
// Every form posts to its own route and is answered with a 303 redirect
// back to "/" (post/redirect/get), so reloading the page never repeats an
// action. Messages that must survive that redirect, such as the toast
// shown when a delete is refused, travel in a flash of a signed session
// cookie.
package page

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/aanand-mishra/student-roster/internal/http/handlers/student"
	"github.com/aanand-mishra/student-roster/internal/roster"
	"github.com/aanand-mishra/student-roster/internal/types"
)

const (
	sessionName = "roster"
	toastKey    = "toast"
)

//go:embed templates/*.html
var templateFS embed.FS

var tmpl = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Row is one table row.
type Row struct {
	types.Student

	// Awaiting is true while this row's paid toggle waits for its
	// confirming click.
	Awaiting bool
}

// StatusLabel is the badge text.
func (r Row) StatusLabel() string {
	if r.Paid {
		return "Paid"
	}
	return "Pending"
}

// ToggleLabel is the paid button text.
func (r Row) ToggleLabel() string {
	switch {
	case r.Awaiting:
		return "Confirm change?"
	case r.Paid:
		return "Mark Pending"
	default:
		return "Mark Paid"
	}
}

// View is the template data of the page.
type View struct {
	Rows            []Row
	Summary         types.Summary
	ValidationError bool
	Toasts          []string
	Increment       int
}

// NewView builds the page data from a snapshot.
func NewView(snap types.Snapshot, toasts []string) View {
	rows := make([]Row, 0, len(snap.Students))
	for _, st := range snap.Students {
		rows = append(rows, Row{Student: st, Awaiting: st.ID == snap.PendingConfirmation})
	}
	return View{
		Rows:            rows,
		Summary:         snap.Summary,
		ValidationError: snap.ValidationError,
		Toasts:          toasts,
		Increment:       types.Increment,
	}
}

// Index handles GET /
func Index(store student.Roster, cookies sessions.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := cookies.Get(r, sessionName)

		var toasts []string
		for _, f := range session.Flashes(toastKey) {
			if msg, ok := f.(string); ok {
				toasts = append(toasts, msg)
			}
		}
		if len(toasts) > 0 {
			// Flashes are consumed by reading; saving drops them from the cookie.
			if err := session.Save(r, w); err != nil {
				slog.Error("failed to save session", slog.String("error", err.Error()))
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.ExecuteTemplate(w, "index.html", NewView(store.Snapshot(), toasts)); err != nil {
			slog.Error("failed to render page", slog.String("error", err.Error()))
		}
	}
}

// Add handles POST /students (form field "name").
func Add(store student.Roster, cookies sessions.Store) http.HandlerFunc {
	return action(cookies, func(r *http.Request) error {
		_, err := store.Add(r.Context(), r.PostFormValue("name"))
		return err
	})
}

// Increment handles POST /students/{id}/increment
func Increment(store student.Roster, cookies sessions.Store) http.HandlerFunc {
	return action(cookies, func(r *http.Request) error {
		_, err := store.IncrementPoints(r.Context(), r.PathValue("id"))
		return err
	})
}

// Decrement handles POST /students/{id}/decrement
func Decrement(store student.Roster, cookies sessions.Store) http.HandlerFunc {
	return action(cookies, func(r *http.Request) error {
		_, err := store.DecrementPoints(r.Context(), r.PathValue("id"))
		return err
	})
}

// TogglePaid handles POST /students/{id}/paid
func TogglePaid(store student.Roster, cookies sessions.Store) http.HandlerFunc {
	return action(cookies, func(r *http.Request) error {
		_, err := store.TogglePaid(r.Context(), r.PathValue("id"))
		return err
	})
}

// Delete handles POST /students/{id}/delete
func Delete(store student.Roster, cookies sessions.Store) http.HandlerFunc {
	return action(cookies, func(r *http.Request) error {
		return store.Delete(r.Context(), r.PathValue("id"))
	})
}

// ResetTotal handles POST /total/reset
func ResetTotal(store student.Roster, cookies sessions.Store) http.HandlerFunc {
	return action(cookies, func(r *http.Request) error {
		return store.ResetTotal(r.Context())
	})
}

// action runs do and redirects back to the page.
//
//	ErrEmptyName → nothing to add: the roster raised its validation flag
//	ErrNotPaid, ErrNotFound → toast
//	anything else → 500
func action(cookies sessions.Store, do func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := do(r)

		switch {
		case err == nil, errors.Is(err, roster.ErrEmptyName):
		case errors.Is(err, roster.ErrNotPaid), errors.Is(err, roster.ErrNotFound):
			if err := flash(w, r, cookies, err.Error()); err != nil {
				slog.Error("failed to save toast", slog.String("error", err.Error()))
			}
		default:
			slog.Error("roster action failed",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()))
			http.Error(w, "something went wrong, please try again", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func flash(w http.ResponseWriter, r *http.Request, cookies sessions.Store, msg string) error {
	// Get only fails to decode a cookie it cannot verify; it still
	// returns a fresh session that is safe to use.
	session, _ := cookies.Get(r, sessionName)
	session.AddFlash(msg, toastKey)
	return session.Save(r, w)
}

// NewCookieStore returns the session store used for toasts.
func NewCookieStore(secret string) *sessions.CookieStore {
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return cs
}
