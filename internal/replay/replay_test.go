package replay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/funnyzak/reqplay/internal/console"
	"github.com/funnyzak/reqplay/internal/history"
)

func init() {
	color.NoColor = true
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

type seenRequest struct {
	method string
	path   string
	body   string
	accept string
	ctype  string
	auth   string
}

// recordingServer captures every request it receives and answers with a
// fixed status.
type recordingServer struct {
	mu     sync.Mutex
	seen   []seenRequest
	status int
	srv    *httptest.Server
}

func newRecordingServer(t *testing.T, status int) *recordingServer {
	t.Helper()
	rs := &recordingServer{status: status}
	rs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rs.mu.Lock()
		rs.seen = append(rs.seen, seenRequest{
			method: r.Method,
			path:   r.URL.Path,
			body:   string(body),
			accept: r.Header.Get("Accept"),
			ctype:  r.Header.Get("Content-Type"),
			auth:   r.Header.Get("Authorization"),
		})
		rs.mu.Unlock()
		w.WriteHeader(rs.status)
	}))
	t.Cleanup(rs.srv.Close)
	return rs
}

func (rs *recordingServer) requests() []seenRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]seenRequest(nil), rs.seen...)
}

func newTestReplayer(baseURL, input string, opts Options) (*Replayer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	opts.BaseURL = baseURL
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxColumnWidth == 0 {
		opts.MaxColumnWidth = 50
	}
	cons := console.New(strings.NewReader(input), out, out)
	return New(noopLogger{}, cons, opts), out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status  int
		success bool
	}{
		{199, false},
		{200, true},
		{204, true},
		{299, true},
		{300, false},
		{404, false},
		{500, false},
	}
	for _, tt := range tests {
		if got := Classify(tt.status); got.Success != tt.success {
			t.Errorf("status %d: expected success=%v", tt.status, tt.success)
		}
	}
}

func TestRun_SuccessfulSequence(t *testing.T) {
	rs := newRecordingServer(t, 201)
	r, out := newTestReplayer(rs.srv.URL, "", Options{})

	records := []history.Record{
		{ID: 10, Method: "POST", Path: "/api/x", Body: []byte(`{"a":1}`)},
	}
	if err := r.Run(context.Background(), records); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	seen := rs.requests()
	if len(seen) != 1 {
		t.Fatalf("expected 1 request, got %d", len(seen))
	}
	got := seen[0]
	if got.method != "POST" || got.path != "/api/x" {
		t.Fatalf("unexpected request: %#v", got)
	}
	if got.body != `{"a":1}` {
		t.Fatalf("unexpected body: %q", got.body)
	}
	if got.accept != "application/json" || got.ctype != "application/json" {
		t.Fatalf("missing JSON headers: %#v", got)
	}
	if got.auth != "" {
		t.Fatalf("no auth token configured, got header %q", got.auth)
	}
	if !strings.Contains(out.String(), "SUCCEEDED") {
		t.Fatalf("success line missing: %q", out.String())
	}
}

func TestRun_AbortsOnFirstError(t *testing.T) {
	rs := newRecordingServer(t, 500)
	r, out := newTestReplayer(rs.srv.URL, "", Options{})

	records := []history.Record{
		{ID: 1, Method: "POST", Path: "/api/a", Body: []byte(`{}`)},
		{ID: 2, Method: "POST", Path: "/api/b", Body: []byte(`{}`)},
	}
	err := r.Run(context.Background(), records)
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
	if got := len(rs.requests()); got != 1 {
		t.Fatalf("run must stop after the first failure, got %d requests", got)
	}
	if !strings.Contains(out.String(), "FAILED") {
		t.Fatalf("failure line missing: %q", out.String())
	}
}

func TestRun_SkipErrorsContinues(t *testing.T) {
	rs := newRecordingServer(t, 500)
	r, _ := newTestReplayer(rs.srv.URL, "", Options{SkipRequestErrors: true})

	records := []history.Record{
		{ID: 1, Method: "POST", Path: "/api/a", Body: []byte(`{}`)},
		{ID: 2, Method: "POST", Path: "/api/b", Body: []byte(`{}`)},
	}
	if err := r.Run(context.Background(), records); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := len(rs.requests()); got != 2 {
		t.Fatalf("expected both requests attempted, got %d", got)
	}
}

func TestRun_NonJSONBodySentEmpty(t *testing.T) {
	rs := newRecordingServer(t, 200)
	r, _ := newTestReplayer(rs.srv.URL, "", Options{})

	records := []history.Record{
		{ID: 1, Method: "PUT", Path: "/api/raw", Body: []byte("definitely not json")},
	}
	if err := r.Run(context.Background(), records); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	seen := rs.requests()
	if len(seen) != 1 {
		t.Fatalf("request must still be attempted, got %d", len(seen))
	}
	if seen[0].body != "" {
		t.Fatalf("expected empty body, got %q", seen[0].body)
	}
}

func TestRun_AuthTokenHeader(t *testing.T) {
	rs := newRecordingServer(t, 200)
	r, _ := newTestReplayer(rs.srv.URL, "", Options{AuthToken: "sekrit"})

	records := []history.Record{{ID: 1, Method: "POST", Path: "/api/a", Body: []byte(`{}`)}}
	if err := r.Run(context.Background(), records); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := rs.requests()[0].auth; got != "Token sekrit" {
		t.Fatalf("unexpected auth header: %q", got)
	}
}

func TestRun_RedirectNotFollowed(t *testing.T) {
	var followed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/moved" {
			followed = true
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/moved", http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	r, _ := newTestReplayer(srv.URL, "", Options{SkipRequestErrors: true})
	records := []history.Record{{ID: 1, Method: "POST", Path: "/api/a", Body: []byte(`{}`)}}
	if err := r.Run(context.Background(), records); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if followed {
		t.Fatal("redirect must not be followed")
	}
}

func TestRun_TransportFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	// Skipping request errors does not cover transport failures.
	r, _ := newTestReplayer(srv.URL, "", Options{SkipRequestErrors: true})
	records := []history.Record{{ID: 1, Method: "POST", Path: "/api/a", Body: []byte(`{}`)}}

	err := r.Run(context.Background(), records)
	if err == nil {
		t.Fatal("expected a transport error")
	}
	if errors.Is(err, ErrRequestFailed) {
		t.Fatalf("transport failures are not request errors: %v", err)
	}
}

func TestRun_InteractiveSkipThenQuit(t *testing.T) {
	rs := newRecordingServer(t, 200)
	r, out := newTestReplayer(rs.srv.URL, "n\nq\n", Options{Interactive: true})

	records := []history.Record{
		{ID: 1, Method: "POST", Path: "/api/a", Body: []byte(`{}`)},
		{ID: 2, Method: "POST", Path: "/api/b", Body: []byte(`{}`)},
	}
	err := r.Run(context.Background(), records)
	if !errors.Is(err, ErrQuit) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
	if got := len(rs.requests()); got != 0 {
		t.Fatalf("expected zero network calls, got %d", got)
	}
	if !strings.Contains(out.String(), "Skipping request 1.") {
		t.Fatalf("skip notice missing: %q", out.String())
	}
	if !strings.Contains(out.String(), "1/2") || !strings.Contains(out.String(), "2/2") {
		t.Fatalf("prompts missing positions: %q", out.String())
	}
}

func TestRun_InteractiveContinuesPastFailure(t *testing.T) {
	rs := newRecordingServer(t, 500)
	r, _ := newTestReplayer(rs.srv.URL, "y\ny\n", Options{Interactive: true})

	records := []history.Record{
		{ID: 1, Method: "POST", Path: "/api/a", Body: []byte(`{}`)},
		{ID: 2, Method: "POST", Path: "/api/b", Body: []byte(`{}`)},
	}
	// Failures do not abort interactive runs; the prompt governs.
	if err := r.Run(context.Background(), records); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := len(rs.requests()); got != 2 {
		t.Fatalf("expected both confirmed requests attempted, got %d", got)
	}
}
