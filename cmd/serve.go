package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentic-research/apiout/internal/fetch"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

// Version is reported to MCP clients.
var Version = "dev"

func newServeCmd() *cobra.Command {
	var configs []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured APIs as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := loadFetcher(cmd.Context(), configs)
			if err != nil {
				return err
			}
			return server.ServeStdio(newMCPServer(f))
		},
	}
	addConfigFlag(cmd, &configs)
	return cmd
}

// newMCPServer exposes list_apis and fetch_api backed by f.
func newMCPServer(f *fetch.Fetcher) *server.MCPServer {
	s := server.NewMCPServer("apiout", Version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_apis",
		mcp.WithDescription("List the configured APIs with their module and method"),
	), listAPIsHandler(f))

	s.AddTool(mcp.NewTool("fetch_api",
		mcp.WithDescription("Fetch one configured API and return its serialized result as JSON"),
		mcp.WithString("name", mcp.Required(), mcp.Description("API name as listed by list_apis")),
	), fetchAPIHandler(f))

	return s
}

func listAPIsHandler(f *fetch.Fetcher) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cfg := f.Config()
		type entry struct {
			Name   string `json:"name"`
			Module string `json:"module"`
			Method string `json:"method"`
			URL    string `json:"url,omitempty"`
		}
		entries := make([]entry, 0, len(cfg.APIs))
		for _, a := range cfg.APIs {
			r := cfg.Resolved(a)
			entries = append(entries, entry{Name: r.Name, Module: r.Module, Method: r.Method, URL: r.URL})
		}
		return jsonResult(entries)
	}
}

func fetchAPIHandler(f *fetch.Fetcher) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		a, ok := f.Config().Lookup(name)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown api %q", name)), nil
		}
		return jsonResult(f.Fetch(ctx, a))
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
