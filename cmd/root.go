package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/agentic-research/apiout/internal/clients"
	"github.com/agentic-research/apiout/internal/config"
	"github.com/agentic-research/apiout/internal/ctxlog"
	"github.com/agentic-research/apiout/internal/fetch"
	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

// newRootCmd builds the command tree. Every call returns fresh flag state.
func newRootCmd() *cobra.Command {
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:           "apiout",
		Short:         "apiout: fetch configured APIs and reshape their responses",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger := ctxlog.New(logLevel, logFormat, cmd.ErrOrStderr())
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(newRunCmd(), newListCmd(), newServeCmd())
	return root
}

// addConfigFlag registers the repeatable -c/--config flag on cmd.
func addConfigFlag(cmd *cobra.Command, refs *[]string) {
	cmd.Flags().StringArrayVarP(refs, "config", "c", nil, "Config name or path (repeatable; later files override earlier ones)")
}

// loadFetcher loads and merges refs and binds them to the built-in clients.
func loadFetcher(ctx context.Context, refs []string) (*fetch.Fetcher, error) {
	cfg, err := config.Load(ctx, refs...)
	if err != nil {
		return nil, err
	}
	return fetch.New(clients.Registry(), cfg)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
