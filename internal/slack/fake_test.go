package slack

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// recordedRequest is one call observed by fakeSlack.
type recordedRequest struct {
	Query  url.Values
	Auth   string
	Body   []byte
	Method string
}

// fakeSlack is a scripted Slack Web API. Each method answers with its queued
// bodies in order; the last body repeats once the queue is drained.
type fakeSlack struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	responses map[string][]string
	requests  map[string][]recordedRequest
}

func newFakeSlack(t *testing.T) *fakeSlack {
	t.Helper()
	f := &fakeSlack{
		t:         t,
		responses: make(map[string][]string),
		requests:  make(map[string][]recordedRequest),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSlack) on(method string, bodies ...string) *fakeSlack {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method] = append(f.responses[method], bodies...)
	return f
}

func (f *fakeSlack) serve(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/")
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests[method] = append(f.requests[method], recordedRequest{
		Query:  r.URL.Query(),
		Auth:   r.Header.Get("Authorization"),
		Body:   body,
		Method: r.Method,
	})
	queue := f.responses[method]
	var resp string
	switch len(queue) {
	case 0:
		f.mu.Unlock()
		http.NotFound(w, r)
		return
	case 1:
		resp = queue[0]
	default:
		resp = queue[0]
		f.responses[method] = queue[1:]
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, resp)
}

func (f *fakeSlack) calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests[method])
}

func (f *fakeSlack) request(method string, i int) recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	reqs := f.requests[method]
	if i >= len(reqs) {
		f.t.Fatalf("%s: want request %d, have %d", method, i, len(reqs))
	}
	return reqs[i]
}

func (f *fakeSlack) client() *Client {
	return NewClient(WithBaseURL(f.server.URL))
}

func listBody(t *testing.T, cursor string, channels map[string]string) string {
	t.Helper()
	type meta struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	list := make([]meta, 0, len(channels))
	for name, id := range channels {
		list = append(list, meta{ID: id, Name: name})
	}
	data, err := json.Marshal(map[string]any{
		"ok":                true,
		"channels":          list,
		"response_metadata": map[string]string{"next_cursor": cursor},
	})
	if err != nil {
		t.Fatalf("marshal list body: %v", err)
	}
	return string(data)
}

const (
	okBody           = `{"ok": true}`
	notInChannelBody = `{"ok": false, "error": "not_in_channel"}`
	invalidAuthBody  = `{"ok": false, "error": "invalid_auth"}`
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
