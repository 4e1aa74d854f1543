package httpclient

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
)

// Client issues requests against a fixed base URL with a fixed set of default
// headers. It exposes no setters; the configuration is frozen in New.
type Client struct {
	cfg ClientConfig
	rc  *resty.Client
}

var (
	defaultOnce   sync.Once
	defaultClient *Client
)

// Default returns the process-wide client bound to DefaultConfig.
// Every call returns the same instance.
func Default() *Client {
	defaultOnce.Do(func() {
		defaultClient = New(DefaultConfig())
	})
	return defaultClient
}

// New builds an independent client for cfg. It performs no I/O.
func New(cfg ClientConfig) *Client {
	cfg = cfg.clone()
	return &Client{cfg: cfg, rc: newRestyBaseClient(cfg)}
}

// newRestyBaseClient creates a resty.Client carrying the base URL and default headers.
func newRestyBaseClient(cfg ClientConfig) *resty.Client {
	c := resty.New()
	if cfg.BaseURL != "" {
		c.SetBaseURL(cfg.BaseURL)
	}
	if len(cfg.DefaultHeaders) > 0 {
		c.SetHeaders(cfg.DefaultHeaders)
	}
	return c
}

// Config returns a copy of the client configuration.
func (c *Client) Config() ClientConfig { return c.cfg.clone() }

// BaseURL returns the URL relative paths are resolved against.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// R starts a request bound to ctx. Headers set on the request take precedence
// over the client defaults.
func (c *Client) R(ctx context.Context) *resty.Request {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.rc.R().SetContext(ctx)
}

// Do executes req. Transport errors from resty are returned as-is; HTTP error
// statuses are not errors and are reported through the Response.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	r := c.R(ctx)
	if headers := CanonicalHeaders(req.Headers); len(headers) > 0 {
		r.SetHeaders(headers)
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	resp, err := r.Execute(method, req.Path)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// Get performs an HTTP GET request for path with the given extra headers.
func (c *Client) Get(ctx context.Context, path string, headers map[string]string) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Headers: headers})
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte        { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header() http.Header { return r.resp.Header() }

func (r *restyResponseAdapter) URL() string {
	if r.resp.Request == nil {
		return ""
	}
	return r.resp.Request.URL
}
