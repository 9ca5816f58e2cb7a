// Package router wires every HTTP route of the roster to its handler.
//
// Route table:
//
//	GET    /                                    → roster page
//	POST   /students                            → page form: add student
//	POST   /students/{id}/increment             → page form: +25 points
//	POST   /students/{id}/decrement             → page form: -25 points
//	POST   /students/{id}/paid                  → page form: toggle / confirm paid
//	POST   /students/{id}/delete                → page form: delete (paid only)
//	POST   /total/reset                         → page form: reset running total
//
//	GET    /api/students                        → list students
//	POST   /api/students                        → add student
//	GET    /api/students/{id}                   → one student
//	POST   /api/students/{id}/points/increment  → +25 points
//	POST   /api/students/{id}/points/decrement  → -25 points
//	POST   /api/students/{id}/paid              → toggle / confirm paid
//	DELETE /api/students/{id}                   → delete (paid only)
//	DELETE /api/validation                      → clear the add form error
//	POST   /api/total/reset                     → reset running total
//	GET    /api/summary                         → summary panel figures
//	GET    /api/roster                          → full snapshot
//	GET    /api/events                          → Server-Sent Events
//
//	GET    /metrics                             → Prometheus metrics
package router

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/aanand-mishra/student-roster/internal/http/handlers/page"
	"github.com/aanand-mishra/student-roster/internal/http/handlers/student"
	"github.com/aanand-mishra/student-roster/internal/http/middleware"
	"github.com/aanand-mishra/student-roster/internal/metrics"
)

// New returns the fully wrapped handler of the server.
func New(store student.Roster, cookies sessions.Store, m *metrics.Metrics, log *slog.Logger) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /{$}", page.Index(store, cookies))
	router.HandleFunc("POST /students", page.Add(store, cookies))
	router.HandleFunc("POST /students/{id}/increment", page.Increment(store, cookies))
	router.HandleFunc("POST /students/{id}/decrement", page.Decrement(store, cookies))
	router.HandleFunc("POST /students/{id}/paid", page.TogglePaid(store, cookies))
	router.HandleFunc("POST /students/{id}/delete", page.Delete(store, cookies))
	router.HandleFunc("POST /total/reset", page.ResetTotal(store, cookies))

	router.HandleFunc("GET /api/students", student.GetList(store))
	router.HandleFunc("POST /api/students", student.New(store))
	router.HandleFunc("GET /api/students/{id}", student.GetByID(store))
	router.HandleFunc("POST /api/students/{id}/points/increment", student.Increment(store))
	router.HandleFunc("POST /api/students/{id}/points/decrement", student.Decrement(store))
	router.HandleFunc("POST /api/students/{id}/paid", student.TogglePaid(store))
	router.HandleFunc("DELETE /api/students/{id}", student.Delete(store))
	router.HandleFunc("DELETE /api/validation", student.ClearValidation(store))
	router.HandleFunc("POST /api/total/reset", student.ResetTotal(store))
	router.HandleFunc("GET /api/summary", student.Summary(store))
	router.HandleFunc("GET /api/roster", student.Snapshot(store))
	router.HandleFunc("GET /api/events", student.Events(store))

	router.Handle("GET /metrics", m.Handler())

	return m.Middleware(middleware.Logging(log)(router))
}
