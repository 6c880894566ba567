// Package api exposes the matching engine over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/foliorank/foliorank/internal/jobtext"
	"github.com/foliorank/foliorank/internal/matching"
	"github.com/foliorank/foliorank/internal/portfolio"
)

const maxRequestBodySize = 1 << 20 // 1MB

// MatcherService abstracts the matching engine for the API layer.
type MatcherService interface {
	FindMatches(ctx context.Context, jobText string, topK int) ([]matching.Match, error)
	Rebuild(ctx context.Context) error
	IndexedCount() int
}

// ProjectStore is the portfolio surface the API needs.
type ProjectStore interface {
	ListAll(ctx context.Context) ([]portfolio.Project, error)
	SetHidden(ctx context.Context, name string, hidden bool) error
}

type AppDeps struct {
	Matcher MatcherService
	Store   ProjectStore
	Token   string // empty disables authentication
	Logger  *slog.Logger

	// DefaultTopK applies when a match request does not specify top_k.
	// Zero falls back to 5.
	DefaultTopK int
}

// MatchRequest is the body of POST /match. Exactly one of Text or Fields
// should be set; Fields carries a structured job description (title, company,
// description, requirements, plus arbitrary extras).
type MatchRequest struct {
	Text   string            `json:"text"`
	Fields map[string]string `json:"fields"`
	TopK   int               `json:"top_k"`
}

type matchResult struct {
	Name         string   `json:"name"`
	URL          string   `json:"url,omitempty"`
	ThreeLiner   string   `json:"three_liner,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Score        float64  `json:"score"`
	Semantic     float64  `json:"semantic_score"`
	Tech         float64  `json:"tech_score"`
	Recency      float64  `json:"recency_score"`
	Quality      float64  `json:"quality_score"`
}

type projectSummary struct {
	Name         string   `json:"name"`
	URL          string   `json:"url,omitempty"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Language     string   `json:"language,omitempty"`
	Stars        int      `json:"stars"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
	Hidden       bool     `json:"hidden"`
}

func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Get("/health", handleHealth(deps))
	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/match", handleMatch(deps))
		r.Post("/rebuild", handleRebuild(deps))
		r.Get("/projects", handleListProjects(deps))
		r.Patch("/projects/{name}", handlePatchProject(deps))
	})
	return r
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"indexed": deps.Matcher.IndexedCount(),
		})
	}
}

func handleMatch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req MatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		var input jobtext.Input
		switch {
		case req.Text != "":
			input = jobtext.Text(req.Text)
		case len(req.Fields) > 0:
			input = jobtext.Structured(req.Fields)
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "one of text or fields is required")
			return
		}

		topK := req.TopK
		if topK <= 0 {
			topK = deps.DefaultTopK
		}
		if topK <= 0 {
			topK = 5
		}
		if topK > 50 {
			topK = 50
		}

		requestID := uuid.New().String()
		start := time.Now()
		matches, err := deps.Matcher.FindMatches(r.Context(), input.Resolve(), topK)
		if errors.Is(err, matching.ErrNotIndexed) {
			httpError(w, http.StatusConflict, "not_indexed", "no projects indexed; run a rebuild first")
			return
		}
		if err != nil {
			deps.Logger.Error("match failed", "request_id", requestID, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "matching failed: %v", err)
			return
		}
		deps.Logger.Info("match served",
			"request_id", requestID,
			"matches", len(matches),
			"top_k", topK,
			"duration", time.Since(start))

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

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"matches": results})
	}
}

func handleRebuild(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		start := time.Now()
		if err := deps.Matcher.Rebuild(r.Context()); err != nil {
			deps.Logger.Error("rebuild failed", "request_id", requestID, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "rebuild failed: %v", err)
			return
		}
		deps.Logger.Info("rebuild served",
			"request_id", requestID,
			"indexed", deps.Matcher.IndexedCount(),
			"duration", time.Since(start))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "rebuilt",
			"indexed": deps.Matcher.IndexedCount(),
		})
	}
}

func handleListProjects(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := deps.Store.ListAll(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list projects: %v", err)
			return
		}

		summaries := make([]projectSummary, len(projects))
		for i, p := range projects {
			s := projectSummary{
				Name:         p.Name,
				URL:          p.URL,
				Description:  p.Description,
				Technologies: p.Technologies,
				Language:     p.Language,
				Stars:        p.Stars,
				Hidden:       p.HiddenFromSearch,
			}
			if !p.UpdatedAt.IsZero() {
				s.UpdatedAt = p.UpdatedAt.UTC().Format(time.RFC3339)
			}
			summaries[i] = s
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}

func handlePatchProject(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req struct {
			Hidden *bool `json:"hidden"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Hidden == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "hidden is required")
			return
		}

		err := deps.Store.SetHidden(r.Context(), name, *req.Hidden)
		if errors.Is(err, portfolio.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update project: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"name": name, "hidden": *req.Hidden})
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
