package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"countryreport/internal/domain"
	"countryreport/internal/etl"
	"countryreport/internal/report"
)

const defaultRunsLimit = 20

func (s *Server) registerCountryTools() {
	s.mcp.AddTool(mcp.NewTool("refresh_countries",
		mcp.WithDescription("🛑 DESTRUCTIVE: Fetch the country list from the configured source and replace the stored snapshot. The previous snapshot is kept if anything fails."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRefresh)

	s.mcp.AddTool(mcp.NewTool("country_report",
		mcp.WithDescription("Aggregate statistics of the stored snapshot: totals, average population by region, top countries by area and density, largest country per region"),
		mcp.WithString("format", mcp.Description("text (default) or json"), mcp.Enum("text", "json")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleReport)

	s.mcp.AddTool(mcp.NewTool("list_load_runs",
		mcp.WithDescription("List recent snapshot refreshes, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 20)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListRuns)

	s.mcp.AddTool(mcp.NewTool("refresh_status",
		mcp.WithDescription("Whether a refresh is in progress, the latest load run and the state of the store connection"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleStatus)

	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List available source types with their configuration fields"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListSources)
}

func (s *Server) handleRefresh(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.refresh.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh countries: %w", err)
	}
	return jsonResult(result)
}

func (s *Server) handleReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := req.GetString("format", "text")

	rep, err := report.Build(ctx, s.reports)
	if errors.Is(err, report.ErrNoSnapshot) {
		return textResult("No countries loaded yet. Run refresh_countries first."), nil
	}
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}

	switch format {
	case "json":
		return jsonResult(rep)
	case "text", "":
		var b strings.Builder
		if err := report.Render(&b, rep, s.locale); err != nil {
			return nil, fmt.Errorf("render report: %w", err)
		}
		return textResult(b.String()), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want text or json)", format)
	}
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := defaultRunsLimit
	if v, ok := req.GetArguments()["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	runs, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list load runs: %w", err)
	}
	return jsonResult(runs)
}

// statusView is the refresh_status payload.
type statusView struct {
	Refreshing bool            `json:"refreshing"`
	LastRun    *domain.LoadRun `json:"lastRun,omitempty"`
	Store      *storeView      `json:"store,omitempty"`
}

type storeView struct {
	Driver string `json:"driver"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view := statusView{Refreshing: s.refresh.Running()}

	if s.store != nil {
		sv := &storeView{Driver: s.store.Driver(), OK: true}
		if err := s.store.Ping(ctx); err != nil {
			sv.OK = false
			sv.Error = err.Error()
		}
		view.Store = sv
		if !sv.OK {
			return jsonResult(view)
		}
	}

	runs, err := s.runs.ListRuns(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("list load runs: %w", err)
	}
	if len(runs) > 0 {
		view.LastRun = &runs[0]
	}
	return jsonResult(view)
}

func (s *Server) handleListSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(etl.ListSources())
}
