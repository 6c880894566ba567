package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/foliorank/foliorank/internal/matching"
	"github.com/foliorank/foliorank/internal/portfolio"
)

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func TestMCPFindMatches(t *testing.T) {
	deps := MCPDeps{Matcher: &mockMatcher{matches: sampleMatches()}, Store: &mockProjects{}}
	handler := mcpFindMatches(deps)

	result, err := handler(context.Background(), makeCallToolRequest("find_matches", map[string]interface{}{
		"job_description": "go backend engineer",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var results []matchResult
	if err := json.Unmarshal([]byte(toolText(t, result)), &results); err != nil {
		t.Fatalf("decoding tool output: %v", err)
	}
	if len(results) != 1 || results[0].Name != "orbit" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestMCPFindMatchesMissingArg(t *testing.T) {
	deps := MCPDeps{Matcher: &mockMatcher{}, Store: &mockProjects{}}
	handler := mcpFindMatches(deps)

	result, err := handler(context.Background(), makeCallToolRequest("find_matches", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing job_description")
	}
}

func TestMCPFindMatchesNotIndexed(t *testing.T) {
	deps := MCPDeps{Matcher: &mockMatcher{matchErr: matching.ErrNotIndexed}, Store: &mockProjects{}}
	handler := mcpFindMatches(deps)

	result, err := handler(context.Background(), makeCallToolRequest("find_matches", map[string]interface{}{
		"job_description": "anything",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error when not indexed")
	}
}

func TestMCPFindMatchesEmpty(t *testing.T) {
	deps := MCPDeps{Matcher: &mockMatcher{}, Store: &mockProjects{}}
	handler := mcpFindMatches(deps)

	result, err := handler(context.Background(), makeCallToolRequest("find_matches", map[string]interface{}{
		"job_description": "niche role",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := toolText(t, result); got != "[]" {
		t.Errorf("expected empty array, got %q", got)
	}
}

func TestMCPRebuildIndex(t *testing.T) {
	matcher := &mockMatcher{indexed: 4}
	handler := mcpRebuildIndex(MCPDeps{Matcher: matcher, Store: &mockProjects{}})

	result, err := handler(context.Background(), makeCallToolRequest("rebuild_index", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if matcher.rebuilds != 1 {
		t.Errorf("expected 1 rebuild, got %d", matcher.rebuilds)
	}
}

func TestMCPRebuildIndexError(t *testing.T) {
	matcher := &mockMatcher{rebuildErr: errors.New("embedder down")}
	handler := mcpRebuildIndex(MCPDeps{Matcher: matcher, Store: &mockProjects{}})

	result, err := handler(context.Background(), makeCallToolRequest("rebuild_index", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error on rebuild failure")
	}
}

func TestMCPListProjects(t *testing.T) {
	store := &mockProjects{projects: []portfolio.Project{
		{Name: "orbit", Technologies: []string{"go"}},
		{Name: "vault", HiddenFromSearch: true},
	}}
	handler := mcpListProjects(MCPDeps{Matcher: &mockMatcher{}, Store: store})

	result, err := handler(context.Background(), makeCallToolRequest("list_projects", nil))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var entries []struct {
		Name   string `json:"name"`
		Hidden bool   `json:"hidden"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &entries); err != nil {
		t.Fatalf("decoding tool output: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[1].Hidden {
		t.Error("expected vault to be marked hidden")
	}
}
