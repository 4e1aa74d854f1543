package httpclient

import (
	"net/http"
	"sort"
	"strings"
)

const (
	// BaseURL is the API root every relative request path is resolved against.
	BaseURL = "https://apiaggregator.pythonanywhere.com/api"

	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
)

// ClientConfig describes how a Client is built. Values handed out by a Client
// are copies, so mutating them never affects requests in flight.
type ClientConfig struct {
	BaseURL        string            `json:"base_url"`
	DefaultHeaders map[string]string `json:"default_headers"`
}

// DefaultConfig returns the fixed configuration used by Default.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		BaseURL: BaseURL,
		DefaultHeaders: map[string]string{
			HeaderContentType: ContentTypeJSON,
		},
	}
}

// clone returns a deep copy with canonical header keys and blank entries removed.
func (c ClientConfig) clone() ClientConfig {
	out := ClientConfig{BaseURL: strings.TrimSpace(c.BaseURL)}
	if len(c.DefaultHeaders) == 0 {
		return out
	}
	out.DefaultHeaders = make(map[string]string, len(c.DefaultHeaders))
	for k, v := range c.DefaultHeaders {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out.DefaultHeaders[http.CanonicalHeaderKey(key)] = val
	}
	return out
}

// CanonicalHeaders returns a copy of headers keyed by canonical header names.
// When several keys name the same header, the canonically spelled key wins;
// otherwise the first key in sorted order does.
func CanonicalHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(headers))
	for _, k := range keys {
		name := http.CanonicalHeaderKey(strings.TrimSpace(k))
		if name == "" {
			continue
		}
		if _, seen := out[name]; seen && strings.TrimSpace(k) != name {
			continue
		}
		out[name] = headers[k]
	}
	return out
}
