package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/apiaggregator-client/internal/app"
	"github.com/samvad-hq/apiaggregator-client/internal/storage"
	"github.com/samvad-hq/apiaggregator-client/pkg/httpclient"
)

func endpointsCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List the endpoints in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCaller(deps, func(caller *app.Caller) error {
				eps := caller.Endpoints()
				if len(eps) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no endpoints configured")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tMETHOD\tPATH\tNAME")
				for _, ep := range eps {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ep.ID, ep.Method, ep.Path, ep.Name)
				}
				return tw.Flush()
			})
		},
	}
}

func historyCmd(deps Deps) *cobra.Command {
	var limit int
	var asJSON bool

	c := &cobra.Command{
		Use:   "history",
		Short: "Show recently issued calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCaller(deps, func(caller *app.Caller) error {
				entries, err := caller.History(limit)
				if err != nil {
					return fmt.Errorf("read history: %w", err)
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), entries)
				}
				return writeHistory(cmd.OutOrStdout(), entries)
			})
		},
	}
	c.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries (0 for all)")
	c.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return c
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the fixed client configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), httpclient.Default().Config())
		},
	}
}

func writeHistory(w io.Writer, entries []storage.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no calls recorded")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tMETHOD\tSTATUS\tMS\tURL")
	for _, e := range entries {
		status := fmt.Sprint(e.StatusCode)
		if e.Error != "" {
			status = "ERR"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.At.Local().Format(time.DateTime), e.Method, status, e.DurationMs, e.URL)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
