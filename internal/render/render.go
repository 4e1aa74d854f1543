package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// ErrNotJSON is returned by Query when the body cannot be decoded as JSON.
var ErrNotJSON = errors.New("response body is not valid JSON")

// Pretty indents JSON bodies. Anything else is returned unchanged.
func Pretty(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return body
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return body
	}
	return buf.Bytes()
}

// Query evaluates a JSONPath expression against a JSON body and renders the
// match: strings raw, everything else JSON-encoded. Single-element results
// are unwrapped.
func Query(body []byte, expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", errors.New("empty jsonpath expression")
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", ErrNotJSON
	}

	val, err := jsonpath.Get(expr, doc)
	if err != nil {
		return "", fmt.Errorf("jsonpath %q: %w", expr, err)
	}
	return toString(val)
}

func toString(v any) (string, error) {
	if arr, ok := v.([]any); ok && len(arr) == 1 {
		return toString(arr[0])
	}

	switch t := v.(type) {
	case nil:
		return "null", nil
	case string:
		return t, nil
	case float64, bool:
		return fmt.Sprint(t), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
