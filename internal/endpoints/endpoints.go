// Package endpoints loads named API calls (YAML/JSON) that the CLI can replay.
package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samvad-hq/apiaggregator-client/pkg/httpclient"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Lookup when no endpoint carries the requested id.
var ErrNotFound = errors.New("endpoint not found")

// Endpoint is a named request against the API base URL.
type Endpoint struct {
	ID      string            `json:"id" yaml:"id"`
	Name    string            `json:"name" yaml:"name"`
	Method  string            `json:"method" yaml:"method"`
	Path    string            `json:"path" yaml:"path"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers"`
	Query   map[string]string `json:"query,omitempty" yaml:"query"`
	Body    any               `json:"body,omitempty" yaml:"body"`
}

type catalogFile struct {
	Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
}

// Registry holds the endpoints loaded from a catalog file.
type Registry struct {
	mu        sync.RWMutex
	endpoints []Endpoint
	idx       map[string]Endpoint
}

// NewRegistry builds a registry from in-memory entries using the same rules as LoadRegistry.
func NewRegistry(eps []Endpoint) (*Registry, error) {
	reg := &Registry{
		endpoints: make([]Endpoint, 0, len(eps)),
		idx:       make(map[string]Endpoint, len(eps)),
	}
	for i := range eps {
		ep := sanitizeEndpoint(eps[i])
		if err := validateEndpoint(ep); err != nil {
			return nil, fmt.Errorf("endpoints[%d]: %w", i, err)
		}
		key := strings.ToLower(ep.ID)
		if _, exists := reg.idx[key]; exists {
			return nil, fmt.Errorf("duplicate endpoint id %q", ep.ID)
		}
		reg.endpoints = append(reg.endpoints, ep)
		reg.idx[key] = ep
	}
	return reg, nil
}

// LoadRegistry loads the endpoint catalog from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("endpoints file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open endpoints file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file: %w", err)
	}

	catalog, err := parseCatalog(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(catalog.Endpoints) == 0 {
		return nil, errors.New("endpoints file contains no endpoints entries")
	}

	return NewRegistry(catalog.Endpoints)
}

type unmarshalFn func([]byte, any) error

func parseCatalog(data []byte, ext string) (catalogFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var catalog catalogFile
		if err := d.fn(data, &catalog); err == nil {
			return catalog, nil
		}
	}

	return catalogFile{}, errors.New("endpoints file format not recognized (expected YAML or JSON)")
}

func sanitizeEndpoint(ep Endpoint) Endpoint {
	ep.ID = strings.TrimSpace(ep.ID)
	ep.Name = strings.TrimSpace(ep.Name)
	ep.Method = strings.ToUpper(strings.TrimSpace(ep.Method))
	ep.Path = strings.TrimSpace(ep.Path)
	if ep.Method == "" {
		ep.Method = http.MethodGet
	}
	if ep.Name == "" {
		ep.Name = ep.ID
	}
	ep.Headers = httpclient.CanonicalHeaders(sanitizeMap(ep.Headers))
	ep.Query = sanitizeMap(ep.Query)
	return ep
}

// sanitizeMap trims keys and values and removes empty entries.
func sanitizeMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validateEndpoint(ep Endpoint) error {
	if ep.ID == "" {
		return errors.New("id is required")
	}
	if ep.Path == "" {
		return fmt.Errorf("path is required for endpoint %q", ep.ID)
	}
	u, err := url.Parse(ep.Path)
	if err != nil {
		return fmt.Errorf("invalid path for endpoint %q: %w", ep.ID, err)
	}
	if u.IsAbs() || u.Host != "" {
		return fmt.Errorf("path for endpoint %q must be relative to the API base url", ep.ID)
	}
	return nil
}

// All returns all endpoints in file order.
func (r *Registry) All() []Endpoint {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Endpoint, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// ByID returns the endpoint with the given id, ignoring case.
func (r *Registry) ByID(id string) (Endpoint, bool) {
	if r == nil {
		return Endpoint{}, false
	}

	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return Endpoint{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.idx[id]
	return ep, ok
}

// Lookup is ByID with an error suitable for returning to callers.
func (r *Registry) Lookup(id string) (Endpoint, error) {
	ep, ok := r.ByID(id)
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return ep, nil
}

// Len returns the number of endpoints.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.endpoints)
}

// Overrides adjusts a catalog endpoint for a single call.
type Overrides struct {
	Headers map[string]string
	Query   map[string]string
	Body    any
}

// Request builds the client request for ep. Override headers and query
// params are merged over the catalog values; an override body replaces it.
// Header names are matched case-insensitively.
func (ep Endpoint) Request(o Overrides) httpclient.Request {
	req := httpclient.Request{
		Method:  ep.Method,
		Path:    ep.Path,
		Headers: merge(httpclient.CanonicalHeaders(ep.Headers), httpclient.CanonicalHeaders(o.Headers)),
		Query:   merge(ep.Query, o.Query),
		Body:    ep.Body,
	}
	if o.Body != nil {
		req.Body = o.Body
	}
	return req
}

func merge(base, over map[string]string) map[string]string {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
