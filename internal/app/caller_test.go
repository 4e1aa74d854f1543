package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/samvad-hq/apiaggregator-client/internal/config"
	"github.com/samvad-hq/apiaggregator-client/internal/endpoints"
	"github.com/samvad-hq/apiaggregator-client/internal/storage"
	"github.com/samvad-hq/apiaggregator-client/pkg/httpclient"
)

// stubResponse implements httpclient.Response.
type stubResponse struct {
	body   []byte
	status int
	header http.Header
	url    string
}

func (s stubResponse) Body() []byte        { return s.body }
func (s stubResponse) StatusCode() int     { return s.status }
func (s stubResponse) Header() http.Header { return s.header }
func (s stubResponse) URL() string         { return s.url }

// fakeRequester records requests and returns a preset response or error.
type fakeRequester struct {
	mu       sync.Mutex
	requests []httpclient.Request
	resp     httpclient.Response
	err      error
	deadline bool
}

func (f *fakeRequester) Do(ctx context.Context, req httpclient.Request) (httpclient.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

// fakeStore keeps entries in memory and can fail on write.
type fakeStore struct {
	mu      sync.Mutex
	entries []storage.Entry
	failErr error
	closed  bool
}

func (f *fakeStore) Record(e storage.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeStore) Recent(limit int) ([]storage.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storage.Entry, 0, len(f.entries))
	for i := len(f.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, f.entries[i])
	}
	return out, nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

func TestCallRecordsSuccessfulResponse(t *testing.T) {
	req := &fakeRequester{resp: stubResponse{
		body:   []byte(`{"items":[1,2,3]}`),
		status: http.StatusOK,
		url:    httpclient.BaseURL + "/things",
	}}
	store := &fakeStore{}
	caller := NewCallerWith(Deps{Requester: req, History: store, Timeout: time.Second, MaxBodyBytes: 8})

	res, err := caller.Call(context.Background(), httpclient.Request{Method: "get", Path: " /things "})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.Response.StatusCode() != http.StatusOK {
		t.Fatalf("status got %d", res.Response.StatusCode())
	}
	if got := req.requests[0]; got.Method != "GET" || got.Path != "/things" {
		t.Fatalf("request not normalized: %+v", got)
	}
	if !req.deadline {
		t.Fatalf("expected request timeout to be applied as a context deadline")
	}

	if len(store.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(store.entries))
	}
	e := store.entries[0]
	if e.URL != httpclient.BaseURL+"/things" || e.StatusCode != 200 || e.Method != "GET" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.BodySnippet != `{"items"...` {
		t.Fatalf("body snippet not truncated: %q", e.BodySnippet)
	}
}

func TestCallWrapsTransportErrors(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	store := &fakeStore{}
	caller := NewCallerWith(Deps{Requester: &fakeRequester{err: boom}, History: store})

	_, err := caller.Call(context.Background(), httpclient.Request{Path: "/things"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "GET /things") {
		t.Fatalf("error lacks request context: %v", err)
	}
	if len(store.entries) != 1 || store.entries[0].Error == "" {
		t.Fatalf("failed call not recorded: %+v", store.entries)
	}
}

func TestCallIgnoresHistoryFailures(t *testing.T) {
	req := &fakeRequester{resp: stubResponse{status: http.StatusNoContent}}
	caller := NewCallerWith(Deps{Requester: req, History: &fakeStore{failErr: errors.New("disk full")}})

	if _, err := caller.Call(context.Background(), httpclient.Request{Path: "/things"}); err != nil {
		t.Fatalf("history failure should not fail the call: %v", err)
	}
}

func TestCallRequiresPath(t *testing.T) {
	caller := NewCallerWith(Deps{Requester: &fakeRequester{}})
	if _, err := caller.Call(context.Background(), httpclient.Request{Path: "  "}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestCallEndpointUsesCatalog(t *testing.T) {
	catalog, err := endpoints.NewRegistry([]endpoints.Endpoint{
		{ID: "create", Method: "POST", Path: "/things", Body: map[string]any{"name": "widget"}},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	req := &fakeRequester{resp: stubResponse{status: http.StatusCreated}}
	caller := NewCallerWith(Deps{Requester: req, Catalog: catalog})

	if _, err := caller.CallEndpoint(context.Background(), "create", endpoints.Overrides{
		Headers: map[string]string{"Content-Type": "text/plain"},
	}); err != nil {
		t.Fatalf("CallEndpoint: %v", err)
	}
	got := req.requests[0]
	if got.Method != "POST" || got.Path != "/things" || got.Headers["Content-Type"] != "text/plain" {
		t.Fatalf("unexpected request %+v", got)
	}

	if _, err := caller.CallEndpoint(context.Background(), "missing", endpoints.Overrides{}); !errors.Is(err, endpoints.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	if err := CheckStatus(stubResponse{status: http.StatusOK}); err != nil {
		t.Fatalf("expected nil for 200, got %v", err)
	}

	err := CheckStatus(stubResponse{
		status: http.StatusBadGateway,
		header: http.Header{"Content-Type": []string{"text/html"}},
		body:   []byte("<html><head><title>Upstream down</title></head></html>"),
	})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusBadGateway || se.Summary != "Upstream down" {
		t.Fatalf("unexpected status error %+v", se)
	}
	if se.Error() != "http 502 Bad Gateway: Upstream down" {
		t.Fatalf("unexpected message %q", se.Error())
	}
}

func TestNewCallerWiresConfig(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "endpoints.yaml")
	if err := os.WriteFile(catalogPath, []byte("endpoints:\n  - id: things\n    path: /things\n"), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	cfg := &config.Config{
		EndpointsFile:          catalogPath,
		RequestTimeout:         time.Second,
		HistoryType:            "bbolt",
		HistoryPath:            filepath.Join(dir, "history.db"),
		HistoryTTL:             time.Hour,
		HistoryCleanupInterval: time.Hour,
	}
	caller, err := NewCaller(cfg, nil)
	if err != nil {
		t.Fatalf("NewCaller: %v", err)
	}
	defer caller.Close()

	if caller.requester != httpclient.Default() {
		t.Fatalf("expected the shared default client")
	}
	if eps := caller.Endpoints(); len(eps) != 1 || eps[0].ID != "things" {
		t.Fatalf("catalog not loaded: %+v", eps)
	}
	if _, err := os.Stat(cfg.HistoryPath); err != nil {
		t.Fatalf("history db not created: %v", err)
	}
}

func TestNewCallerToleratesMissingCatalog(t *testing.T) {
	cfg := &config.Config{
		EndpointsFile: filepath.Join(t.TempDir(), "missing.yaml"),
		HistoryType:   "none",
	}
	caller, err := NewCaller(cfg, nil)
	if err != nil {
		t.Fatalf("NewCaller: %v", err)
	}
	if len(caller.Endpoints()) != 0 {
		t.Fatalf("expected empty catalog")
	}
}

func TestCallerAgainstServer(t *testing.T) {
	var gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.ClientConfig{
		BaseURL:        srv.URL + "/api",
		DefaultHeaders: httpclient.DefaultConfig().DefaultHeaders,
	})
	store := &fakeStore{}
	caller := NewCallerWith(Deps{Requester: client, History: store, MaxBodyBytes: 100})

	res, err := caller.Call(context.Background(), httpclient.Request{Path: "/things"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(res.Response.Body()) != `{"path":"/api/things"}` {
		t.Fatalf("unexpected body %q", res.Response.Body())
	}
	if gotCT != httpclient.ContentTypeJSON {
		t.Fatalf("server saw content type %q", gotCT)
	}
	if store.entries[0].URL != srv.URL+"/api/things" {
		t.Fatalf("history url got %q", store.entries[0].URL)
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	got := truncate([]byte(`{"city":"Zürich"}`), 11)
	if !utf8.ValidString(got) {
		t.Fatalf("snippet is not valid UTF-8: %q", got)
	}
	if got != `{"city":"Z...` {
		t.Fatalf("unexpected snippet %q", got)
	}
}

func TestNewCallerWithDefaultsToNoopHistory(t *testing.T) {
	req := &fakeRequester{resp: stubResponse{status: http.StatusOK}}
	caller := NewCallerWith(Deps{Requester: req})

	if _, err := caller.Call(context.Background(), httpclient.Request{Path: "/things"}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	entries, err := caller.History(0)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty history, got %v (err %v)", entries, err)
	}
}

func TestNewCallerSkipsHistoryWhenLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	holder, err := storage.NewStore("bbolt", path, storage.Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer holder.Close()

	cfg := &config.Config{
		HistoryType:            "bbolt",
		HistoryPath:            path,
		HistoryTTL:             time.Hour,
		HistoryCleanupInterval: time.Hour,
	}
	caller, err := NewCaller(cfg, nil)
	if err != nil {
		t.Fatalf("a locked history file must not block calls: %v", err)
	}
	defer caller.Close()

	entries, err := caller.History(0)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected noop history, got %v (err %v)", entries, err)
	}
}
