// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the saveward operator commands as tools via stdio transport.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/saveward/saveward/internal/api"
	"github.com/saveward/saveward/internal/apperr"
	"github.com/saveward/saveward/internal/engine"
	"github.com/saveward/saveward/internal/history"
)

// Server wraps the MCP server with saveward tools.
type Server struct {
	mcp  *server.MCPServer
	eng  *engine.Engine
	hist *history.DB
}

// New creates a new MCP server with all saveward tools registered.
func New(eng *engine.Engine, hist *history.DB) *Server {
	s := &Server{eng: eng, hist: hist}

	s.mcp = server.NewMCPServer(
		"Saveward",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("run_backup",
		mcp.WithDescription("Trigger an immediate backup cycle over all tracked worlds "+
			"and wait for completion. Only changed files are archived."),
	), s.runBackup)

	s.mcp.AddTool(mcp.NewTool("list_archives",
		mcp.WithDescription("List backup archive containers for one world or for all worlds, "+
			"most recently modified first."),
		mcp.WithString("world", mcp.Description("Optional world name (empty for all worlds)")),
	), s.listArchives)

	s.mcp.AddTool(mcp.NewTool("restore_archive",
		mcp.WithDescription("Restore an archive container back into the live world directory, "+
			"overwriting existing files. Read the saveward://operations resource first: "+
			"the consuming server must be restarted after a restore."),
		mcp.WithString("world", mcp.Required(), mcp.Description("World the archive belongs to")),
		mcp.WithString("archive", mcp.Required(), mcp.Description("Container filename, e.g. backup_1700000000000.zip")),
	), s.restoreArchive)

	s.mcp.AddTool(mcp.NewTool("backup_history",
		mcp.WithDescription("Show the most recent backup cycles: trigger, files archived, "+
			"rotations, pruned containers, failures."),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default 20)")),
	), s.backupHistory)

	// Resource: operations guide.
	s.mcp.AddResource(
		mcp.NewResource("saveward://operations", "Backup Operations Guide",
			mcp.WithResourceDescription("How saveward cycles, rotation, retention, and restore behave."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readOperationsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) runBackup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.eng.RunCycle(ctx, engine.TriggerMCP)
	if err != nil {
		if errors.Is(err, apperr.ErrBusy) {
			return mcp.NewToolResultError("a backup cycle is already running, try again later"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(rep.Summary()), nil
}

func (s *Server) listArchives(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	world := ""
	if v, err := req.RequireString("world"); err == nil {
		world = v
	}

	listings, err := s.eng.Archives(world)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown world: %s", world)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(listings) == 0 {
		return mcp.NewToolResultText("no archives found"), nil
	}

	lines := make([]string, 0, len(listings))
	for _, l := range listings {
		lines = append(lines, api.FormatListing(l))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) restoreArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	world, err := req.RequireString("world")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	container, err := req.RequireString("archive")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rep, err := s.eng.Restore(ctx, world, container)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return mcp.NewToolResultError(fmt.Sprintf("not found: %v", err)), nil
		case errors.Is(err, apperr.ErrBusy):
			return mcp.NewToolResultError("a backup cycle is already running, try again later"), nil
		default:
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultText(rep.Summary()), nil
}

func (s *Server) backupHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 20
	if v, err := req.RequireInt("limit"); err == nil && v > 0 {
		limit = v
	}

	rows, err := s.hist.RecentCycles(limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(rows) == 0 {
		return mcp.NewToolResultText("no cycles recorded yet"), nil
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, api.FormatCycleRow(row))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readOperationsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "saveward://operations",
			MIMEType: "text/markdown",
			Text:     OperationsGuide,
		},
	}, nil
}
