package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/agentic-research/apiout/api"
	"github.com/agentic-research/apiout/internal/ctxlog"
	"github.com/agentic-research/apiout/internal/query"
	"github.com/agentic-research/apiout/internal/serializer"
	"github.com/agentic-research/apiout/internal/store"
	"github.com/spf13/cobra"
)

type runOptions struct {
	configs  []string
	apis     []string
	json     bool
	query    string
	parallel int
	save     string
	from     string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the configured APIs and print the serialized results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAPIs(cmd, opts)
		},
	}
	addConfigFlag(cmd, &opts.configs)
	cmd.Flags().StringArrayVar(&opts.apis, "api", nil, "Only fetch the named API (repeatable)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print a single JSON document")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "JSONPath applied to the results, e.g. $.repos[*].name")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 4, "Maximum concurrent fetches (0 for unbounded)")
	cmd.Flags().StringVar(&opts.save, "save", "", "Also store each API result in this SQLite database")
	cmd.Flags().StringVar(&opts.from, "from", "", "Print results stored by an earlier --save instead of fetching")
	return cmd
}

func runAPIs(cmd *cobra.Command, opts *runOptions) error {
	ctx := cmd.Context()
	var results *serializer.Object
	if opts.from != "" {
		loaded, err := replay(opts.from, opts.apis)
		if err != nil {
			return err
		}
		results = loaded
	} else {
		f, err := loadFetcher(ctx, opts.configs)
		if err != nil {
			return err
		}
		apis, err := selectAPIs(f.Config(), opts.apis)
		if err != nil {
			return err
		}
		if len(apis) == 0 {
			return fmt.Errorf("no APIs configured")
		}
		results = f.FetchAll(ctx, apis, opts.parallel)
	}

	if opts.save != "" {
		if err := store.Save(opts.save, results); err != nil {
			return fmt.Errorf("save results: %w", err)
		}
		ctxlog.FromContext(ctx).Info("Saved results.", "path", opts.save, "apis", results.Len())
	}

	var out any = results
	if opts.query != "" {
		var err error
		if out, err = query.Apply(out, opts.query); err != nil {
			return err
		}
	}
	if opts.json {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	return writeText(cmd.OutOrStdout(), out)
}

// selectAPIs returns the named APIs in the order requested, or every API
// when names is empty.
func selectAPIs(cfg *api.Config, names []string) ([]api.API, error) {
	if len(names) == 0 {
		return cfg.APIs, nil
	}
	apis := make([]api.API, 0, len(names))
	for _, name := range names {
		a, ok := cfg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown api %q", name)
		}
		apis = append(apis, a)
	}
	return apis, nil
}

// replay loads saved results from path, keeping only names when given.
func replay(path string, names []string) (*serializer.Object, error) {
	saved, err := store.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	if len(names) == 0 {
		return saved, nil
	}
	out := serializer.NewObject()
	for _, name := range names {
		v, ok := saved.Get(name)
		if !ok {
			return nil, fmt.Errorf("no saved result for api %q", name)
		}
		out.Set(name, v)
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// writeText prints one section per API when out is the full result set.
func writeText(w io.Writer, out any) error {
	obj, ok := out.(*serializer.Object)
	if !ok {
		return writeJSON(w, out)
	}
	for p := obj.Oldest(); p != nil; p = p.Next() {
		if _, err := fmt.Fprintf(w, "== %s ==\n", p.Key); err != nil {
			return err
		}
		if err := writeJSON(w, p.Value); err != nil {
			return err
		}
	}
	return nil
}
