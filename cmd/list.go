package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/agentic-research/apiout/internal/fetch"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var configs []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the configured APIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := loadFetcher(cmd.Context(), configs)
			if err != nil {
				return err
			}
			cfg := f.Config()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tMODULE\tCLASS\tMETHOD\tURL")
			for _, a := range cfg.APIs {
				r := cfg.Resolved(a)
				class := r.ClientClass
				if class == "" {
					class = fetch.DefaultClass
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Module, class, r.Method, r.URL)
			}
			return tw.Flush()
		},
	}
	addConfigFlag(cmd, &configs)
	return cmd
}
