package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/foliorank/foliorank/internal/matching"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Matcher MatcherService
	Store   ProjectStore
}

// NewMCPServer creates an MCP server exposing the matching engine to
// document-generation agents.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"foliorank",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("foliorank matches portfolio projects against job descriptions and returns a ranked selection."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("find_matches",
			mcp.WithDescription("Rank portfolio projects by relevance to a job description and return the best matches with score breakdowns."),
			mcp.WithString("job_description", mcp.Description("The full job description text"), mcp.Required()),
			mcp.WithNumber("top_k", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpFindMatches(deps),
	)

	s.AddTool(
		mcp.NewTool("rebuild_index",
			mcp.WithDescription("Re-embed all visible portfolio projects and rebuild the search index."),
		),
		mcpRebuildIndex(deps),
	)

	s.AddTool(
		mcp.NewTool("list_projects",
			mcp.WithDescription("List all portfolio projects, including ones hidden from matching."),
		),
		mcpListProjects(deps),
	)

	return s
}

func mcpFindMatches(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobText, err := req.RequireString("job_description")
		if err != nil {
			return mcpError("job_description is required"), nil
		}

		topK := req.GetInt("top_k", 5)
		if topK <= 0 {
			topK = 5
		}
		if topK > 50 {
			topK = 50
		}

		matches, err := deps.Matcher.FindMatches(ctx, jobText, topK)
		if errors.Is(err, matching.ErrNotIndexed) {
			return mcpError("no projects indexed; run rebuild_index first"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("matching failed: %v", err)), nil
		}
		if len(matches) == 0 {
			return mcpText("[]"), nil
		}

		results := make([]matchResult, len(matches))
		for i, m := range matches {
			results[i] = matchResult{
				Name:         m.Project.Name,
				URL:          m.Project.URL,
				ThreeLiner:   m.Project.ThreeLiner,
				Technologies: m.Project.Technologies,
				Score:        m.Score,
				Semantic:     m.Semantic,
				Tech:         m.Tech,
				Recency:      m.Recency,
				Quality:      m.Quality,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRebuildIndex(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := deps.Matcher.Rebuild(ctx); err != nil {
			return mcpError(fmt.Sprintf("rebuild failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Indexed %d projects", deps.Matcher.IndexedCount())), nil
	}
}

func mcpListProjects(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projects, err := deps.Store.ListAll(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list projects: %v", err)), nil
		}
		if len(projects) == 0 {
			return mcpText("[]"), nil
		}

		type projectEntry struct {
			Name         string   `json:"name"`
			Description  string   `json:"description,omitempty"`
			Technologies []string `json:"technologies,omitempty"`
			Hidden       bool     `json:"hidden"`
		}
		entries := make([]projectEntry, len(projects))
		for i, p := range projects {
			entries[i] = projectEntry{
				Name:         p.Name,
				Description:  p.Description,
				Technologies: p.Technologies,
				Hidden:       p.HiddenFromSearch,
			}
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal projects: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
