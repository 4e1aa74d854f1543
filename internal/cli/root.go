package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/apiaggregator-client/internal/app"
)

// Deps are the collaborators the commands need. NewCaller is invoked lazily
// so commands that never touch the API (config) do not open the history store.
type Deps struct {
	Out       io.Writer
	NewCaller func() (*app.Caller, error)
}

// Execute runs the root command with ctx and the process arguments.
func Execute(ctx context.Context, deps Deps) error {
	return NewRootCmd(deps).ExecuteContext(ctx)
}

// NewRootCmd assembles the command tree.
func NewRootCmd(deps Deps) *cobra.Command {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}

	cmd := &cobra.Command{
		Use:           "apiaggregator",
		Short:         "Call the API aggregator from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(deps.Out)

	cmd.AddCommand(
		requestCmd(deps),
		getCmd(deps),
		callCmd(deps),
		endpointsCmd(deps),
		historyCmd(deps),
		configCmd(),
	)
	return cmd
}

// withCaller builds a caller, runs fn and closes the caller afterwards.
func withCaller(deps Deps, fn func(*app.Caller) error) (err error) {
	if deps.NewCaller == nil {
		return fmt.Errorf("caller factory is not configured")
	}
	caller, err := deps.NewCaller()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := caller.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close caller: %w", cerr)
		}
	}()
	return fn(caller)
}
