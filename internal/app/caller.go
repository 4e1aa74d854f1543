package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/samvad-hq/apiaggregator-client/internal/config"
	"github.com/samvad-hq/apiaggregator-client/internal/endpoints"
	"github.com/samvad-hq/apiaggregator-client/internal/logger"
	"github.com/samvad-hq/apiaggregator-client/internal/render"
	"github.com/samvad-hq/apiaggregator-client/internal/storage"
	"github.com/samvad-hq/apiaggregator-client/pkg/httpclient"
)

// Caller issues API calls through the shared client, resolving catalog
// endpoints and keeping a history of what was called.
type Caller struct {
	requester httpclient.Requester
	catalog   *endpoints.Registry
	history   storage.Store
	timeout   time.Duration
	maxBody   int
	log       logger.Logger
}

// Deps lists the collaborators of a Caller. Nil fields fall back to no-op
// implementations, except Requester which falls back to httpclient.Default().
type Deps struct {
	Requester    httpclient.Requester
	Catalog      *endpoints.Registry
	History      storage.Store
	Timeout      time.Duration
	MaxBodyBytes int
	Log          logger.Logger
}

// Result is the outcome of a successful round trip. The status code may
// still signal an HTTP error.
type Result struct {
	Response httpclient.Response
	Duration time.Duration
}

// NewCaller builds a caller runtime from config.
func NewCaller(cfg *config.Config, log logger.Logger) (*Caller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	catalog, err := loadCatalog(cfg.EndpointsFile, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		EntryTTL:        cfg.HistoryTTL,
		CleanupInterval: cfg.HistoryCleanupInterval,
	}
	store, err := storage.NewStore(cfg.HistoryType, cfg.HistoryPath, storeOpts)
	if errors.Is(err, storage.ErrBusy) {
		log.WarnObj("history storage busy; calls will not be recorded", "history_path", cfg.HistoryPath)
		store, err = storage.Noop(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("init history storage: %w", err)
	}
	log.DebugObj("history storage initialized", "history_config", map[string]any{
		"type":                     cfg.HistoryType,
		"path":                     cfg.HistoryPath,
		"ttl_seconds":              int(cfg.HistoryTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.HistoryCleanupInterval.Seconds()),
	})

	return NewCallerWith(Deps{
		Requester:    httpclient.Default(),
		Catalog:      catalog,
		History:      store,
		Timeout:      cfg.RequestTimeout,
		MaxBodyBytes: cfg.HistoryMaxBodyBytes,
		Log:          log,
	}), nil
}

// NewCallerWith builds a caller from explicit collaborators.
func NewCallerWith(d Deps) *Caller {
	if d.Requester == nil {
		d.Requester = httpclient.Default()
	}
	if d.History == nil {
		d.History = storage.Noop()
	}
	if d.Log == nil {
		d.Log = logger.NopLogger{}
	}
	return &Caller{
		requester: d.Requester,
		catalog:   d.Catalog,
		history:   d.History,
		timeout:   d.Timeout,
		maxBody:   d.MaxBodyBytes,
		log:       d.Log,
	}
}

// loadCatalog reads the endpoints file. A missing file yields an empty catalog.
func loadCatalog(path string, log logger.Logger) (*endpoints.Registry, error) {
	if strings.TrimSpace(path) == "" {
		return endpoints.NewRegistry(nil)
	}
	reg, err := endpoints.LoadRegistry(path)
	if errors.Is(err, os.ErrNotExist) {
		log.DebugObj("endpoints file not found; catalog empty", "endpoints_file", path)
		return endpoints.NewRegistry(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load endpoints catalog: %w", err)
	}
	log.DebugObj("endpoints catalog loaded", "endpoints_meta", map[string]any{
		"file":  path,
		"count": reg.Len(),
	})
	return reg, nil
}

// Call executes req, applying the configured timeout, and records it.
func (c *Caller) Call(ctx context.Context, req httpclient.Request) (*Result, error) {
	if c == nil || c.requester == nil {
		return nil, fmt.Errorf("caller is not initialized")
	}
	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		return nil, errors.New("request path is required")
	}
	req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.requester.Do(ctx, req)
	elapsed := time.Since(start)

	entry := storage.Entry{
		Method:     req.Method,
		URL:        req.Path,
		DurationMs: elapsed.Milliseconds(),
		At:         start.UTC(),
	}
	if err != nil {
		entry.Error = err.Error()
		c.record(entry)
		c.log.WarnObj("api call failed", "call_error", map[string]any{
			"method": req.Method,
			"path":   req.Path,
			"error":  err.Error(),
		})
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}

	if u := resp.URL(); u != "" {
		entry.URL = u
	}
	entry.StatusCode = resp.StatusCode()
	entry.BodySnippet = truncate(resp.Body(), c.maxBody)
	c.record(entry)

	c.log.DebugObj("api call completed", "call_meta", map[string]any{
		"method":      req.Method,
		"url":         entry.URL,
		"status_code": entry.StatusCode,
		"elapsed_ms":  entry.DurationMs,
	})
	return &Result{Response: resp, Duration: elapsed}, nil
}

// CallEndpoint looks up a catalog endpoint and calls it.
func (c *Caller) CallEndpoint(ctx context.Context, id string, o endpoints.Overrides) (*Result, error) {
	if c == nil {
		return nil, fmt.Errorf("caller is not initialized")
	}
	if c.catalog == nil {
		return nil, fmt.Errorf("%w: %q", endpoints.ErrNotFound, id)
	}
	ep, err := c.catalog.Lookup(id)
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, ep.Request(o))
}

// Endpoints returns the catalog entries.
func (c *Caller) Endpoints() []endpoints.Endpoint {
	if c == nil {
		return nil
	}
	return c.catalog.All()
}

// History returns recent calls, newest first.
func (c *Caller) History(limit int) ([]storage.Entry, error) {
	if c == nil || c.history == nil {
		return nil, nil
	}
	return c.history.Recent(limit)
}

// Close releases the history store.
func (c *Caller) Close() error {
	if c == nil || c.history == nil {
		return nil
	}
	return c.history.Close()
}

// record stores entry; failures are logged, never surfaced to the caller.
func (c *Caller) record(entry storage.Entry) {
	if err := c.history.Record(entry); err != nil {
		c.log.ErrorObj("history record failed", "error", err)
	}
}

func truncate(body []byte, max int) string {
	if max <= 0 || len(body) == 0 {
		return ""
	}
	return render.Clip(strings.TrimSpace(string(body)), max)
}
