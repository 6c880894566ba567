package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/foliorank/foliorank/internal/matching"
	"github.com/foliorank/foliorank/internal/portfolio"
)

// --- mocks ---

type mockMatcher struct {
	matches    []matching.Match
	matchErr   error
	rebuildErr error
	indexed    int

	rebuilds int
	lastText string
	lastTopK int
}

func (m *mockMatcher) FindMatches(_ context.Context, jobText string, topK int) ([]matching.Match, error) {
	m.lastText = jobText
	m.lastTopK = topK
	return m.matches, m.matchErr
}

func (m *mockMatcher) Rebuild(context.Context) error {
	m.rebuilds++
	return m.rebuildErr
}

func (m *mockMatcher) IndexedCount() int { return m.indexed }

type mockProjects struct {
	projects  []portfolio.Project
	listErr   error
	hiddenErr error

	hiddenSet map[string]bool
}

func (m *mockProjects) ListAll(context.Context) ([]portfolio.Project, error) {
	return m.projects, m.listErr
}

func (m *mockProjects) SetHidden(_ context.Context, name string, hidden bool) error {
	if m.hiddenErr != nil {
		return m.hiddenErr
	}
	if m.hiddenSet == nil {
		m.hiddenSet = make(map[string]bool)
	}
	m.hiddenSet[name] = hidden
	return nil
}

// --- helpers ---

func testDeps(matcher *mockMatcher, store *mockProjects) AppDeps {
	return AppDeps{
		Matcher: matcher,
		Store:   store,
		Logger:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func sampleMatches() []matching.Match {
	return []matching.Match{
		{
			Project: portfolio.Project{
				Name:         "orbit",
				URL:          "https://github.com/u/orbit",
				ThreeLiner:   "A go backend.",
				Technologies: []string{"go", "kubernetes"},
			},
			Score:    0.92,
			Semantic: 0.8,
			Tech:     0.9,
			Recency:  1.0,
			Quality:  1.2,
		},
	}
}

// --- tests ---

func TestHealth(t *testing.T) {
	handler := NewAppHandler(testDeps(&mockMatcher{indexed: 3}, &mockProjects{}))
	rec := doJSON(t, handler, http.MethodGet, "/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["indexed"] != float64(3) {
		t.Errorf("expected indexed 3, got %v", body["indexed"])
	}
}

func TestMatchWithText(t *testing.T) {
	matcher := &mockMatcher{matches: sampleMatches()}
	handler := NewAppHandler(testDeps(matcher, &mockProjects{}))

	rec := doJSON(t, handler, http.MethodPost, "/match", MatchRequest{
		Text: "go backend engineer",
		TopK: 3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Matches []matchResult `json:"matches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Matches) != 1 || body.Matches[0].Name != "orbit" {
		t.Fatalf("unexpected matches: %+v", body.Matches)
	}
	if matcher.lastText != "go backend engineer" {
		t.Errorf("matcher got text %q", matcher.lastText)
	}
	if matcher.lastTopK != 3 {
		t.Errorf("matcher got topK %d", matcher.lastTopK)
	}
}

func TestMatchWithStructuredFields(t *testing.T) {
	matcher := &mockMatcher{matches: sampleMatches()}
	handler := NewAppHandler(testDeps(matcher, &mockProjects{}))

	rec := doJSON(t, handler, http.MethodPost, "/match", MatchRequest{
		Fields: map[string]string{
			"title":       "Backend Engineer",
			"description": "Build go services.",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if matcher.lastText == "" {
		t.Error("expected structured fields to resolve into job text")
	}
	// Unspecified top_k falls back to the default.
	if matcher.lastTopK != 5 {
		t.Errorf("expected default topK 5, got %d", matcher.lastTopK)
	}
}

func TestMatchConfiguredDefaultTopK(t *testing.T) {
	matcher := &mockMatcher{matches: sampleMatches()}
	deps := testDeps(matcher, &mockProjects{})
	deps.DefaultTopK = 7
	handler := NewAppHandler(deps)

	doJSON(t, handler, http.MethodPost, "/match", MatchRequest{Text: "go backend"})
	if matcher.lastTopK != 7 {
		t.Errorf("expected configured default topK 7, got %d", matcher.lastTopK)
	}

	// An explicit top_k still wins over the configured default.
	doJSON(t, handler, http.MethodPost, "/match", MatchRequest{Text: "go backend", TopK: 2})
	if matcher.lastTopK != 2 {
		t.Errorf("expected explicit topK 2, got %d", matcher.lastTopK)
	}
}

func TestMatchMissingInput(t *testing.T) {
	handler := NewAppHandler(testDeps(&mockMatcher{}, &mockProjects{}))
	rec := doJSON(t, handler, http.MethodPost, "/match", MatchRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMatchNotIndexed(t *testing.T) {
	matcher := &mockMatcher{matchErr: matching.ErrNotIndexed}
	handler := NewAppHandler(testDeps(matcher, &mockProjects{}))

	rec := doJSON(t, handler, http.MethodPost, "/match", MatchRequest{Text: "anything"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Error.Type != "not_indexed" {
		t.Errorf("expected not_indexed error type, got %q", body.Error.Type)
	}
}

func TestMatchTopKClamped(t *testing.T) {
	matcher := &mockMatcher{}
	handler := NewAppHandler(testDeps(matcher, &mockProjects{}))

	doJSON(t, handler, http.MethodPost, "/match", MatchRequest{Text: "x", TopK: 500})
	if matcher.lastTopK != 50 {
		t.Errorf("expected topK clamped to 50, got %d", matcher.lastTopK)
	}
}

func TestRebuild(t *testing.T) {
	matcher := &mockMatcher{indexed: 7}
	handler := NewAppHandler(testDeps(matcher, &mockProjects{}))

	rec := doJSON(t, handler, http.MethodPost, "/rebuild", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if matcher.rebuilds != 1 {
		t.Errorf("expected 1 rebuild call, got %d", matcher.rebuilds)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["indexed"] != float64(7) {
		t.Errorf("expected indexed 7, got %v", body["indexed"])
	}
}

func TestRebuildError(t *testing.T) {
	matcher := &mockMatcher{rebuildErr: errors.New("embedder down")}
	handler := NewAppHandler(testDeps(matcher, &mockProjects{}))

	rec := doJSON(t, handler, http.MethodPost, "/rebuild", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestListProjects(t *testing.T) {
	store := &mockProjects{projects: []portfolio.Project{
		{Name: "orbit", Technologies: []string{"go"}},
		{Name: "vault", HiddenFromSearch: true},
	}}
	handler := NewAppHandler(testDeps(&mockMatcher{}, store))

	rec := doJSON(t, handler, http.MethodGet, "/projects", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var summaries []projectSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(summaries))
	}
	if !summaries[1].Hidden {
		t.Error("expected vault to be marked hidden")
	}
}

func TestPatchProjectHidden(t *testing.T) {
	store := &mockProjects{}
	handler := NewAppHandler(testDeps(&mockMatcher{}, store))

	hidden := true
	rec := doJSON(t, handler, http.MethodPatch, "/projects/orbit", map[string]any{"hidden": hidden})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !store.hiddenSet["orbit"] {
		t.Error("expected orbit to be hidden")
	}
}

func TestPatchProjectNotFound(t *testing.T) {
	store := &mockProjects{hiddenErr: portfolio.ErrNotFound}
	handler := NewAppHandler(testDeps(&mockMatcher{}, store))

	rec := doJSON(t, handler, http.MethodPatch, "/projects/ghost", map[string]any{"hidden": true})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPatchProjectMissingField(t *testing.T) {
	handler := NewAppHandler(testDeps(&mockMatcher{}, &mockProjects{}))
	rec := doJSON(t, handler, http.MethodPatch, "/projects/orbit", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	deps := testDeps(&mockMatcher{}, &mockProjects{})
	deps.Token = "secret"
	handler := NewAppHandler(deps)

	// Health stays open.
	rec := doJSON(t, handler, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected health to be unauthenticated, got %d", rec.Code)
	}

	// Missing token.
	rec = doJSON(t, handler, http.MethodGet, "/projects", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	// Wrong token.
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}

	// Correct token.
	req = httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
}
