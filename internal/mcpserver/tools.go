package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Paintersrp/recall/internal/catalog"
	"github.com/Paintersrp/recall/internal/search"
	indexsvc "github.com/Paintersrp/recall/internal/services/index"
)

type SearchInput struct {
	Query      string   `json:"query" jsonschema:"the text to look for"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results, 1-50, default 10"`
	Categories []string `json:"categories,omitempty" jsonschema:"restrict to memory, conversations, workspace or sessions"`
	DateFrom   string   `json:"date_from,omitempty" jsonschema:"earliest date, YYYY-MM-DD or RFC3339"`
	DateTo     string   `json:"date_to,omitempty" jsonschema:"latest date, YYYY-MM-DD or RFC3339"`
}

type ListInput struct {
	Category string `json:"category,omitempty" jsonschema:"only list files in this catalog category"`
}

type ReadInput struct {
	Path string `json:"path" jsonschema:"absolute path of the file to read"`
}

func errorResult(msg, hint string) *mcp.CallToolResult {
	text := msg
	if hint != "" {
		text = msg + ". " + hint
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Failed to encode result", err.Error())
	}
	return textResult(string(data))
}

func newSearchHandler(deps Dependencies) mcp.ToolHandlerFor[SearchInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
		raw := search.RawRequest{Query: input.Query}
		if input.Limit != 0 {
			raw.Limit = input.Limit
		}
		if len(input.Categories) > 0 {
			categories := make([]any, len(input.Categories))
			for i, c := range input.Categories {
				categories[i] = c
			}
			raw.Categories = categories
		}
		if input.DateFrom != "" {
			raw.DateFrom = input.DateFrom
		}
		if input.DateTo != "" {
			raw.DateTo = input.DateTo
		}

		results, err := deps.Recall.Search(raw)
		if err != nil {
			var verr *search.ValidationError
			if errors.As(err, &verr) {
				return errorResult(verr.Error(), "Adjust the request and try again"), nil, nil
			}
			deps.Logger.Error("mcp: recall failed", "error", err)
			return errorResult("Recall failed", ""), nil, nil
		}

		deps.Logger.Info("mcp: recall completed", "query", input.Query, "results", len(results))
		return jsonResult(map[string]any{"count": len(results), "results": results}), nil, nil
	}
}

func newStatsHandler(deps Dependencies) mcp.ToolHandlerFor[struct{}, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		return jsonResult(deps.Recall.Stats()), nil, nil
	}
}

func newListHandler(deps Dependencies) mcp.ToolHandlerFor[ListInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, any, error) {
		snap := deps.Files.Snapshot()
		want := strings.TrimSpace(input.Category)
		files := make([]catalog.File, 0, len(snap.Files))
		for _, f := range snap.Files {
			if f.Kind != catalog.KindFile {
				continue
			}
			if want != "" && !strings.EqualFold(string(f.Category), want) {
				continue
			}
			files = append(files, f)
		}
		return jsonResult(map[string]any{"version": snap.Version, "files": files}), nil, nil
	}
}

func newReadHandler(deps Dependencies) mcp.ToolHandlerFor[ReadInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ReadInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(input.Path) == "" {
			return errorResult("Path cannot be empty", "Use list_files to discover paths"), nil, nil
		}
		content, err := deps.Files.ReadFile(input.Path)
		switch {
		case err == nil:
			return textResult(content), nil, nil
		case errors.Is(err, indexsvc.ErrForbidden):
			return errorResult("Access denied", "Only files inside the indexed roots can be read"), nil, nil
		case errors.Is(err, fs.ErrNotExist):
			return errorResult("File not found", "Use list_files to discover paths"), nil, nil
		default:
			deps.Logger.Warn("mcp: read failed", "path", input.Path, "error", err)
			return errorResult("Failed to read file", ""), nil, nil
		}
	}
}
