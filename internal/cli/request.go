package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/apiaggregator-client/internal/app"
	"github.com/samvad-hq/apiaggregator-client/internal/endpoints"
	"github.com/samvad-hq/apiaggregator-client/internal/render"
	"github.com/samvad-hq/apiaggregator-client/pkg/httpclient"
)

type requestOptions struct {
	headers     []string
	params      []string
	data        string
	contentType string
}

func (o *requestOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArrayVarP(&o.headers, "header", "H", nil, `extra request header "Name: value" (repeatable)`)
	f.StringArrayVarP(&o.params, "param", "p", nil, `query parameter "key=value" (repeatable)`)
	f.StringVarP(&o.data, "data", "d", "", "request body; @file reads it from a file")
	f.StringVar(&o.contentType, "content-type", "", "override the default application/json Content-Type")
}

func (o requestOptions) overrides() (endpoints.Overrides, error) {
	headers, err := parsePairs(o.headers, ":", "header")
	if err != nil {
		return endpoints.Overrides{}, err
	}
	params, err := parsePairs(o.params, "=", "param")
	if err != nil {
		return endpoints.Overrides{}, err
	}
	headers = httpclient.CanonicalHeaders(headers)
	if ct := strings.TrimSpace(o.contentType); ct != "" {
		if headers == nil {
			headers = make(map[string]string, 1)
		}
		headers[httpclient.HeaderContentType] = ct
	}
	body, err := readData(o.data)
	if err != nil {
		return endpoints.Overrides{}, err
	}
	return endpoints.Overrides{Headers: headers, Query: params, Body: body}, nil
}

type outputOptions struct {
	query   string
	raw     bool
	fail    bool
	include bool
}

func (o *outputOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.query, "query", "", "JSONPath expression applied to the response body")
	f.BoolVar(&o.raw, "raw", false, "print the body without reformatting")
	f.BoolVar(&o.fail, "fail", false, "exit non-zero on 4xx/5xx responses")
	f.BoolVarP(&o.include, "include", "i", false, "print the status line before the body")
}

func requestCmd(deps Deps) *cobra.Command {
	var reqOpts requestOptions
	var outOpts outputOptions

	c := &cobra.Command{
		Use:   "request <METHOD> <path>",
		Short: "Send a request to a path relative to the API base URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, deps, args[0], args[1], reqOpts, outOpts)
		},
	}
	reqOpts.bind(c)
	outOpts.bind(c)
	return c
}

func getCmd(deps Deps) *cobra.Command {
	var reqOpts requestOptions
	var outOpts outputOptions

	c := &cobra.Command{
		Use:   "get <path>",
		Short: "Shorthand for request GET <path>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, deps, http.MethodGet, args[0], reqOpts, outOpts)
		},
	}
	reqOpts.bind(c)
	outOpts.bind(c)
	return c
}

func callCmd(deps Deps) *cobra.Command {
	var reqOpts requestOptions
	var outOpts outputOptions

	c := &cobra.Command{
		Use:   "call <endpoint-id>",
		Short: "Call an endpoint from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := reqOpts.overrides()
			if err != nil {
				return err
			}
			return withCaller(deps, func(caller *app.Caller) error {
				res, err := caller.CallEndpoint(cmd.Context(), args[0], ov)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), res, outOpts)
			})
		},
	}
	reqOpts.bind(c)
	outOpts.bind(c)
	return c
}

func runRequest(cmd *cobra.Command, deps Deps, method, path string, reqOpts requestOptions, outOpts outputOptions) error {
	ov, err := reqOpts.overrides()
	if err != nil {
		return err
	}
	req := httpclient.Request{
		Method:  method,
		Path:    path,
		Headers: ov.Headers,
		Query:   ov.Query,
		Body:    ov.Body,
	}
	return withCaller(deps, func(caller *app.Caller) error {
		res, err := caller.Call(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res, outOpts)
	})
}

func printResult(w io.Writer, res *app.Result, o outputOptions) error {
	resp := res.Response
	if o.fail {
		if err := app.CheckStatus(resp); err != nil {
			return err
		}
	}

	if o.include {
		fmt.Fprintf(w, "HTTP %d %s (%d ms)\n", resp.StatusCode(), resp.URL(), res.Duration.Milliseconds())
	}

	body := resp.Body()
	switch {
	case o.query != "":
		out, err := render.Query(body, o.query)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
		return nil
	case !o.raw:
		body = render.Pretty(body)
	}

	if len(body) == 0 {
		return nil
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	if body[len(body)-1] != '\n' {
		fmt.Fprintln(w)
	}
	return nil
}

// parsePairs splits "k<sep>v" arguments into a map.
func parsePairs(items []string, sep, what string) (map[string]string, error) {
	out := make(map[string]string, len(items))
	for _, item := range items {
		k, v, ok := strings.Cut(item, sep)
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid %s %q (expected key%svalue)", what, item, sep)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func readData(data string) (any, error) {
	if data == "" {
		return nil, nil
	}
	if path, ok := strings.CutPrefix(data, "@"); ok {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		return string(raw), nil
	}
	return data, nil
}
