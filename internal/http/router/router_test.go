package router

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aanand-mishra/student-roster/internal/http/handlers/page"
	"github.com/aanand-mishra/student-roster/internal/metrics"
	"github.com/aanand-mishra/student-roster/internal/roster"
	"github.com/aanand-mishra/student-roster/internal/storage/memory"
	"github.com/aanand-mishra/student-roster/internal/types"
	"github.com/aanand-mishra/student-roster/internal/utils/response"
)

// setupTestServer starts the full handler stack on an in-memory roster.
func setupTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	store, err := roster.New(context.Background(), memory.New(), roster.Options{
		Logger:      log,
		OnOperation: m.ObserveOperation,
	})
	if err != nil {
		t.Fatalf("failed to create roster: %v", err)
	}

	server := httptest.NewServer(New(store, page.NewCookieStore("test-session-secret"), m, log))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return server, &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func do(t *testing.T, client *http.Client, method, url, body string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("failed to decode %s: %v", data, err)
	}
	return v
}

func TestAPI_StudentLifecycle(t *testing.T) {
	server, client := setupTestServer(t)

	resp, body := do(t, client, http.MethodPost, server.URL+"/api/students", `{"name":" Ana "}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/students status = %d, want 201: %s", resp.StatusCode, body)
	}
	ana := decode[types.Student](t, body)
	if ana.Name != "Ana" || ana.Points != 0 || ana.Paid {
		t.Errorf("created = %+v", ana)
	}

	for i := 0; i < 2; i++ {
		resp, body = do(t, client, http.MethodPost, server.URL+"/api/students/"+ana.ID+"/points/increment", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("increment status = %d: %s", resp.StatusCode, body)
		}
	}

	_, body = do(t, client, http.MethodGet, server.URL+"/api/summary", "")
	sum := decode[types.Summary](t, body)
	if sum.RunningTotal != 50 || sum.PointsSum != 50 || sum.Students != 1 || sum.Pending != 1 {
		t.Errorf("summary = %+v", sum)
	}

	_, body = do(t, client, http.MethodPost, server.URL+"/api/students/"+ana.ID+"/paid", "")
	first := decode[roster.ToggleResult](t, body)
	if first.State != roster.AwaitingConfirmation || first.Student.Paid {
		t.Errorf("first toggle = %+v", first)
	}

	_, body = do(t, client, http.MethodPost, server.URL+"/api/students/"+ana.ID+"/paid", "")
	second := decode[roster.ToggleResult](t, body)
	if second.State != roster.Committed || !second.Student.Paid {
		t.Errorf("second toggle = %+v", second)
	}

	resp, body = do(t, client, http.MethodDelete, server.URL+"/api/students/"+ana.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE status = %d: %s", resp.StatusCode, body)
	}

	_, body = do(t, client, http.MethodGet, server.URL+"/api/students", "")
	if got := strings.TrimSpace(string(body)); got != "[]" {
		t.Errorf("GET /api/students = %s, want []", got)
	}
}

func TestAPI_DeleteUnpaidIsRejected(t *testing.T) {
	server, client := setupTestServer(t)

	_, body := do(t, client, http.MethodPost, server.URL+"/api/students", `{"name":"Bob"}`)
	bob := decode[types.Student](t, body)

	resp, body := do(t, client, http.MethodDelete, server.URL+"/api/students/"+bob.ID, "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("DELETE status = %d, want 409", resp.StatusCode)
	}
	warning := decode[response.Response](t, body)
	if warning.Status != response.StatusWarning || warning.Error != roster.ErrNotPaid.Error() {
		t.Errorf("body = %+v", warning)
	}

	resp, _ = do(t, client, http.MethodGet, server.URL+"/api/students/"+bob.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET after rejected delete status = %d, want 200", resp.StatusCode)
	}
}

func TestAPI_AddValidation(t *testing.T) {
	server, client := setupTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "malformed json", body: `{"name":`},
		{name: "blank name", body: `{"name":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, client, http.MethodPost, server.URL+"/api/students", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", resp.StatusCode, body)
			}
			if got := decode[response.Response](t, body); got.Status != response.StatusError {
				t.Errorf("status field = %q, want error", got.Status)
			}
		})
	}

	_, body := do(t, client, http.MethodGet, server.URL+"/api/roster", "")
	if snap := decode[types.Snapshot](t, body); !snap.ValidationError || len(snap.Students) != 0 {
		t.Errorf("snapshot = %+v, want validation error and no students", snap)
	}

	do(t, client, http.MethodDelete, server.URL+"/api/validation", "")

	_, body = do(t, client, http.MethodGet, server.URL+"/api/roster", "")
	if snap := decode[types.Snapshot](t, body); snap.ValidationError {
		t.Error("validation_error = true after clearing, want false")
	}
}

func TestAPI_NotFound(t *testing.T) {
	server, client := setupTestServer(t)

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/students/nope"},
		{http.MethodPost, "/api/students/nope/points/increment"},
		{http.MethodPost, "/api/students/nope/points/decrement"},
		{http.MethodPost, "/api/students/nope/paid"},
		{http.MethodDelete, "/api/students/nope"},
	} {
		resp, _ := do(t, client, req.method, server.URL+req.path, "")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", req.method, req.path, resp.StatusCode)
		}
	}
}

func TestAPI_ResetTotal(t *testing.T) {
	server, client := setupTestServer(t)

	_, body := do(t, client, http.MethodPost, server.URL+"/api/students", `{"name":"Ana"}`)
	ana := decode[types.Student](t, body)
	do(t, client, http.MethodPost, server.URL+"/api/students/"+ana.ID+"/points/increment", "")

	resp, body := do(t, client, http.MethodPost, server.URL+"/api/total/reset", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d", resp.StatusCode)
	}
	sum := decode[types.Summary](t, body)
	if sum.RunningTotal != 0 || sum.PointsSum != 25 {
		t.Errorf("summary = %+v, want running_total 0 and points_sum 25", sum)
	}
}

func postForm(t *testing.T, client *http.Client, u string, form url.Values) (*http.Response, string) {
	t.Helper()

	resp, err := client.PostForm(u, form)
	if err != nil {
		t.Fatalf("POST %s failed: %v", u, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp, string(data)
}

func TestPage_EmptyState(t *testing.T) {
	server, client := setupTestServer(t)

	resp, body := do(t, client, http.MethodGet, server.URL+"/", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "There are no registered students") {
		t.Error("empty roster page lacks the empty-state message")
	}
}

func TestPage_AddAndValidation(t *testing.T) {
	server, client := setupTestServer(t)

	// The client follows the 303 back to the page.
	_, page := postForm(t, client, server.URL+"/students", url.Values{"name": {"   "}})
	if !strings.Contains(page, "Please enter the student&#39;s name") &&
		!strings.Contains(page, "Please enter the student's name") {
		t.Error("page lacks the validation message after a blank add")
	}

	_, page = postForm(t, client, server.URL+"/students", url.Values{"name": {"Ana"}})
	if strings.Contains(page, "name-error") {
		t.Error("validation message still shown after a successful add")
	}
	if !strings.Contains(page, "Ana") || !strings.Contains(page, "0 Points") {
		t.Error("page lacks the new student row")
	}
}

func TestPage_ToggleAndDeleteToast(t *testing.T) {
	server, client := setupTestServer(t)

	postForm(t, client, server.URL+"/students", url.Values{"name": {"Bob"}})

	_, body := do(t, client, http.MethodGet, server.URL+"/api/students", "")
	students := decode[[]types.Student](t, body)
	if len(students) != 1 {
		t.Fatalf("students = %d, want 1", len(students))
	}
	bob := students[0]

	_, page := postForm(t, client, server.URL+"/students/"+bob.ID+"/delete", nil)
	if !strings.Contains(page, "Student must be marked paid before deletion") {
		t.Error("page lacks the delete warning toast")
	}

	// The toast is a flash: it shows once.
	_, again := do(t, client, http.MethodGet, server.URL+"/", "")
	if strings.Contains(string(again), "Student must be marked paid before deletion") {
		t.Error("toast shown again on the next page load")
	}

	_, page = postForm(t, client, server.URL+"/students/"+bob.ID+"/paid", nil)
	if !strings.Contains(page, "Confirm change?") {
		t.Error("page lacks the confirmation prompt after the first toggle")
	}

	_, page = postForm(t, client, server.URL+"/students/"+bob.ID+"/paid", nil)
	if !strings.Contains(page, "Mark Pending") {
		t.Error("page lacks \"Mark Pending\" after confirming")
	}

	_, page = postForm(t, client, server.URL+"/students/"+bob.ID+"/delete", nil)
	if !strings.Contains(page, "There are no registered students") {
		t.Error("paid student was not deleted")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server, client := setupTestServer(t)

	do(t, client, http.MethodPost, server.URL+"/api/students", `{"name":"Ana"}`)

	resp, body := do(t, client, http.MethodGet, server.URL+"/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `roster_operations_total{op="add",result="ok"} 1`) {
		t.Errorf("metrics lack the add counter:\n%s", body)
	}
	if !strings.Contains(string(body), "roster_http_request_duration_seconds") {
		t.Error("metrics lack the request histogram")
	}
}

func TestEventsStream(t *testing.T) {
	server, client := setupTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/events", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	reader := bufio.NewReader(resp.Body)
	next := func() roster.Event {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("failed to read event: %v", err)
			}
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				return decode[roster.Event](t, []byte(data))
			}
		}
	}

	if ev := next(); ev.Op != "snapshot" {
		t.Fatalf("first event op = %q, want snapshot", ev.Op)
	}

	do(t, client, http.MethodPost, server.URL+"/api/students", `{"name":"Ana"}`)

	ev := next()
	if ev.Op != roster.OpAdd || len(ev.Snapshot.Students) != 1 {
		t.Errorf("event = %+v, want add with one student", ev)
	}
}
