package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// StatusReply is one scripted answer of the fake job status endpoint. A
// non-zero HTTPStatus makes the endpoint fail with that code and Message.
type StatusReply struct {
	Status     string
	Progress   *float64
	Result     any
	Errors     []ErrorReply
	HTTPStatus int
	Message    string
}

// ErrorReply is one entry of a failed job's error list.
type ErrorReply struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Node    string `json:"node,omitempty"`
}

// FakeService is an in-process simulation service speaking the v1 jobs API.
// Each job answers status queries from its script; the last reply repeats.
type FakeService struct {
	*httptest.Server

	mu           sync.Mutex
	token        string
	submitStatus int
	scripts      map[string][]StatusReply
	defaults     []StatusReply
	calls        map[string]int
	submitted    []map[string]any
	cancels      []string
	headers      []http.Header
	nextID       int
}

// NewFakeService starts a FakeService that is closed when the test ends.
func NewFakeService(t *testing.T) *FakeService {
	t.Helper()
	f := &FakeService{
		scripts: make(map[string][]StatusReply),
		calls:   make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/jobs", f.handleSubmit)
	mux.HandleFunc("GET /v1/jobs/{id}", f.handleStatus)
	mux.HandleFunc("POST /v1/jobs/{id}/cancel", f.handleCancel)
	f.Server = httptest.NewServer(f.authorize(mux))
	t.Cleanup(f.Close)
	return f
}

// SetToken makes every request require token as its bearer token.
func (f *FakeService) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// FailSubmits makes job creation answer with code. Zero restores success.
func (f *FakeService) FailSubmits(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitStatus = code
}

// Script sets the replies for job id.
func (f *FakeService) Script(id string, replies ...StatusReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[id] = replies
}

// ScriptSubmitted sets the replies used by jobs created through the API that
// have no script of their own.
func (f *FakeService) ScriptSubmitted(replies ...StatusReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaults = replies
}

// Submitted returns the decoded bodies of every job creation request.
func (f *FakeService) Submitted() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.submitted...)
}

// Cancels returns the ids of every cancel request, in arrival order.
func (f *FakeService) Cancels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancels...)
}

// StatusCalls returns how many status queries job id received.
func (f *FakeService) StatusCalls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

// Headers returns the headers of every request received.
func (f *FakeService) Headers() []http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]http.Header(nil), f.headers...)
}

func (f *FakeService) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.headers = append(f.headers, r.Header.Clone())
		token := f.token
		f.mu.Unlock()
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeService) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body io.Reader = r.Body
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		defer zr.Close()
		body = zr
	}
	var spec map[string]any
	if err := json.NewDecoder(body).Decode(&spec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid job spec: " + err.Error()})
		return
	}

	f.mu.Lock()
	if f.submitStatus != 0 {
		code := f.submitStatus
		f.mu.Unlock()
		writeJSON(w, code, map[string]string{"message": http.StatusText(code)})
		return
	}
	f.submitted = append(f.submitted, spec)
	f.nextID++
	id := fmt.Sprintf("job-%d", f.nextID)
	if _, ok := f.scripts[id]; !ok && f.defaults != nil {
		f.scripts[id] = f.defaults
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (f *FakeService) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	script, ok := f.scripts[id]
	i := f.calls[id]
	f.calls[id]++
	f.mu.Unlock()

	if !ok || len(script) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "job " + id + " not found"})
		return
	}
	if i >= len(script) {
		i = len(script) - 1
	}
	reply := script[i]
	if reply.HTTPStatus != 0 {
		writeJSON(w, reply.HTTPStatus, map[string]string{"message": reply.Message})
		return
	}

	payload := map[string]any{"id": id, "status": reply.Status}
	if reply.Progress != nil {
		payload["progress"] = *reply.Progress
	}
	if reply.Result != nil {
		payload["result"] = reply.Result
	}
	if len(reply.Errors) > 0 {
		payload["errors"] = reply.Errors
	}
	writeJSON(w, http.StatusOK, payload)
}

func (f *FakeService) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	f.cancels = append(f.cancels, id)
	f.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
