package app

import (
	"fmt"
	"net/http"

	"github.com/samvad-hq/apiaggregator-client/internal/render"
	"github.com/samvad-hq/apiaggregator-client/pkg/httpclient"
)

// StatusError reports an HTTP error status. It is produced on request by the
// CLI; the client itself never treats a status code as an error.
type StatusError struct {
	StatusCode int
	Summary    string
}

func (e *StatusError) Error() string {
	text := http.StatusText(e.StatusCode)
	if text == "" {
		text = "status"
	}
	return fmt.Sprintf("http %d %s: %s", e.StatusCode, text, e.Summary)
}

// CheckStatus returns a *StatusError for 4xx/5xx responses and nil otherwise.
func CheckStatus(resp httpclient.Response) error {
	if resp == nil || resp.StatusCode() < http.StatusBadRequest {
		return nil
	}
	return &StatusError{
		StatusCode: resp.StatusCode(),
		Summary:    render.Summary(resp.Header().Get("Content-Type"), resp.Body()),
	}
}
