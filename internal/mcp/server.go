package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/text/language"

	"countryreport/internal/domain"
	"countryreport/internal/etl"
	"countryreport/internal/report"
)

// Refresher replaces the countries snapshot.
type Refresher interface {
	Refresh(ctx context.Context) (*etl.SyncResult, error)
	Running() bool
}

// StoreHealth reports on the backing store connection.
type StoreHealth interface {
	Ping(ctx context.Context) error
	Driver() string
}

// Server is the MCP server for countryreport.
// It exposes the refresh, the report and the run log as tools so AI agents
// can keep the snapshot current and read its aggregates.
type Server struct {
	mcp     *server.MCPServer
	refresh Refresher
	reports report.Querier
	runs    domain.LoadRunStore
	store   StoreHealth
	locale  language.Tag
}

// Deps holds all dependencies passed from the CLI to the MCP server.
type Deps struct {
	Refresher Refresher
	Reports   report.Querier
	Runs      domain.LoadRunStore
	Store     StoreHealth
	Locale    language.Tag
	Version   string
}

// New creates and configures a new MCP server with all tools.
func New(deps Deps) *Server {
	s := &Server{
		refresh: deps.Refresher,
		reports: deps.Reports,
		runs:    deps.Runs,
		store:   deps.Store,
		locale:  deps.Locale,
	}

	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s.mcp = server.NewMCPServer(
		"countryreport-mcp",
		version,
		server.WithToolCapabilities(true),
	)

	s.registerCountryTools()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	slog.Info("mcp: starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }
