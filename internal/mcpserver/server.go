// Package mcpserver exposes recall and file access as MCP tools over stdio.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Paintersrp/recall/internal/search"
	indexsvc "github.com/Paintersrp/recall/internal/services/index"
	recallsvc "github.com/Paintersrp/recall/internal/services/recall"
)

// Files is the slice of the file index the tools need.
type Files interface {
	Snapshot() indexsvc.Snapshot
	ReadFile(path string) (string, error)
}

// Recall answers recall queries.
type Recall interface {
	Search(raw search.RawRequest) ([]search.Result, error)
	Stats() recallsvc.Stats
}

type Dependencies struct {
	Files  Files
	Recall Recall
	Logger *slog.Logger
}

type Server struct {
	mcp    *mcp.Server
	logger *slog.Logger
}

func New(version string, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "recall",
		Version: version,
	}, nil)
	Register(server, deps)
	return &Server{mcp: server, logger: deps.Logger}
}

// Run blocks until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp: starting", "transport", "stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// RunTransport is Run over an arbitrary transport.
func (s *Server) RunTransport(ctx context.Context, t mcp.Transport) error {
	return s.mcp.Run(ctx, t)
}

func Register(server *mcp.Server, deps Dependencies) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "recall_search",
		Description: "Fuzzy search across memory notes, conversation logs, workspace docs and session transcripts",
	}, newSearchHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recall_stats",
		Description: "Report how many files and sessions the recall index covers",
	}, newStatsHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_files",
		Description: "List indexed files, optionally filtered by category",
	}, newListHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_file",
		Description: "Read a markdown or transcript file inside the indexed roots",
	}, newReadHandler(deps))
}
