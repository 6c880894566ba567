// Package matching ranks portfolio projects against a job description by
// combining semantic similarity, technology overlap, recency, and quality
// signals into a single score.
package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foliorank/foliorank/internal/embedding"
	"github.com/foliorank/foliorank/internal/index"
	"github.com/foliorank/foliorank/internal/jobinfo"
	"github.com/foliorank/foliorank/internal/portfolio"
	"github.com/foliorank/foliorank/internal/scoring"
	"github.com/foliorank/foliorank/internal/textnorm"
)

// ErrNotIndexed is returned by FindMatches when no index has been built or
// loaded yet. The caller should prompt the user to ingest projects first.
var ErrNotIndexed = errors.New("no projects have been indexed yet")

// Final score weights and bonus thresholds. Semantic similarity and
// technology overlap dominate; recency and quality refine the order.
const (
	semanticWeight = 0.35
	techWeight     = 0.4
	recencyWeight  = 0.15
	qualityWeight  = 0.1

	coreOverlapWeight      = 0.8
	secondaryOverlapWeight = 0.2

	// Over-fetch factor: re-ranking can promote candidates from below the
	// semantic top-K, so the index is queried for 3x as many.
	candidateMultiplier = 3
)

// ProjectSource is the read side of the portfolio the matcher consumes.
type ProjectSource interface {
	ListVisible(ctx context.Context) ([]portfolio.Project, error)
	GetByNames(ctx context.Context, names []string) (map[string]portfolio.Project, error)
}

// TextEmbedder embeds text with a fixed, identifiable model.
// *embedding.Embedder satisfies it.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Match is one ranked result with its score breakdown.
type Match struct {
	Project  portfolio.Project `json:"project"`
	Score    float64           `json:"score"`
	Semantic float64           `json:"semantic_score"`
	Tech     float64           `json:"tech_score"`
	Recency  float64           `json:"recency_score"`
	Quality  float64           `json:"quality_score"`
}

// snapshot pairs an index with the cache built alongside it. A snapshot is
// immutable; rebuilds produce a fresh one and swap the pointer, so readers
// never observe a half-rebuilt index.
type snapshot struct {
	index *index.Flat
	cache *embedding.Cache
}

// Matcher is the matching engine. It owns no portfolio data; it borrows the
// project source and holds the index/cache pair behind an atomic pointer.
// FindMatches is safe for concurrent use; Rebuild is serialized internally.
type Matcher struct {
	projects  ProjectSource
	embedder  TextEmbedder
	extractor jobinfo.Extractor // optional; nil means extraction always degrades
	indexPath string
	cachePath string
	logger    *slog.Logger

	snap      atomic.Pointer[snapshot]
	loadOnce  sync.Once
	rebuildMu sync.Mutex

	// now is stubbed in tests for deterministic recency scores.
	now func() time.Time
}

// Options configures a Matcher.
type Options struct {
	Projects  ProjectSource
	Embedder  TextEmbedder
	Extractor jobinfo.Extractor
	IndexPath string
	CachePath string
	Logger    *slog.Logger
}

// New creates a Matcher. Persisted state is loaded lazily on first use.
func New(opts Options) *Matcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		projects:  opts.Projects,
		embedder:  opts.Embedder,
		extractor: opts.Extractor,
		indexPath: opts.IndexPath,
		cachePath: opts.CachePath,
		logger:    logger,
		now:       time.Now,
	}
}

// FindMatches ranks visible projects against the job description and returns
// at most topK matches sorted by descending score. topK <= 0 yields an empty
// result. An empty result on a built index is valid and means "no candidates";
// ErrNotIndexed means no index exists at all.
func (m *Matcher) FindMatches(ctx context.Context, jobText string, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	snap := m.snapshot()
	if snap == nil {
		return nil, ErrNotIndexed
	}
	if snap.index.Len() == 0 {
		return nil, nil
	}

	info := m.extractJobInfo(ctx, jobText)
	coreTechs := textnorm.NormalizeTechnologies(info.CoreTechnologies)
	secondaryTechs := textnorm.NormalizeTechnologies(info.SecondaryTechnologies)

	queryVec, err := m.embedder.Embed(ctx, buildQueryText(info, coreTechs))
	if err != nil {
		return nil, fmt.Errorf("embedding job description: %w", err)
	}
	index.Normalize(queryVec)

	// Over-fetch so the re-ranking below has candidates to reorder. The
	// division keeps searchK from overflowing for huge topK values.
	searchK := snap.index.Len()
	if topK <= searchK/candidateMultiplier {
		searchK = topK * candidateMultiplier
	}
	hits, err := snap.index.Search(queryVec, searchK)
	if err != nil {
		if errors.Is(err, index.ErrNotBuilt) {
			return nil, ErrNotIndexed
		}
		return nil, fmt.Errorf("searching index: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Position < len(snap.cache.Names) {
			names = append(names, snap.cache.Names[h.Position])
		}
	}
	candidates, err := m.projects.GetByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("loading candidate projects: %w", err)
	}

	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		if h.Position >= len(snap.cache.Names) {
			continue
		}
		name := snap.cache.Names[h.Position]
		p, ok := candidates[name]
		if !ok {
			// Indexed project no longer in the store; skip rather than fail.
			m.logger.Warn("indexed project missing from store", "project", name)
			continue
		}
		// The index never contains hidden projects; skip defensively anyway.
		if p.HiddenFromSearch {
			continue
		}
		matches = append(matches, m.scoreCandidate(snap, p, float64(h.Score), info, coreTechs, secondaryTechs))
	}

	// Sort by score descending. Stable keeps equal scores in semantic rank
	// order so results are deterministic.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// scoreCandidate combines the component scores for one candidate.
func (m *Matcher) scoreCandidate(snap *snapshot, p portfolio.Project, semantic float64, info jobinfo.JobInfo, coreTechs, secondaryTechs []string) Match {
	recency, ok := snap.cache.Recency[p.Name]
	if !ok {
		recency = scoring.RecencyScore(p.UpdatedAt, m.now())
	}
	quality, ok := snap.cache.Quality[p.Name]
	if !ok {
		quality = scoring.QualityScore(p)
	}

	coreOverlap := scoring.TechnologyOverlapScore(p.Technologies, coreTechs)
	secondaryOverlap := scoring.TechnologyOverlapScore(p.Technologies, secondaryTechs)
	techScore := coreOverlap*coreOverlapWeight + secondaryOverlap*secondaryOverlapWeight

	score := semantic*semanticWeight +
		techScore*techWeight +
		recency*recencyWeight +
		quality*qualityWeight

	switch {
	case p.NoReadme:
		score *= 0.5
	case p.BadReadme:
		score *= 0.7
	}

	switch {
	case coreOverlap > 0.6:
		score *= 1.3
	case coreOverlap > 0.3:
		score *= 1.15
	}

	if domainMatches(info.DomainContext, p.DetailedParagraph) {
		score *= 1.1
	}

	return Match{
		Project:  p,
		Score:    score,
		Semantic: semantic,
		Tech:     techScore,
		Recency:  recency,
		Quality:  quality,
	}
}

// extractJobInfo runs the extractor, degrading to an empty JobInfo carrying
// the raw text when extraction is unavailable or fails. Extraction failure
// is logged, never surfaced.
func (m *Matcher) extractJobInfo(ctx context.Context, jobText string) jobinfo.JobInfo {
	fallback := jobinfo.JobInfo{WeightedDescription: jobText}
	if m.extractor == nil {
		return fallback
	}
	info, err := m.extractor.Extract(ctx, jobText)
	if err != nil {
		m.logger.Warn("job info extraction failed, matching on raw text", "error", err)
		return fallback
	}
	if info.WeightedDescription == "" {
		info.WeightedDescription = jobText
	}
	return info
}

// buildQueryText assembles the text the query embedding is computed from,
// omitting empty components.
func buildQueryText(info jobinfo.JobInfo, coreTechs []string) string {
	var parts []string
	if info.WeightedDescription != "" {
		parts = append(parts, info.WeightedDescription)
	}
	if len(coreTechs) > 0 {
		parts = append(parts, "Required technologies: "+strings.Join(coreTechs, ", ")+".")
	}
	if len(info.TechnicalKeywords) > 0 {
		parts = append(parts, "Technical skills: "+strings.Join(info.TechnicalKeywords, ", ")+".")
	}
	if info.DomainContext != "" {
		parts = append(parts, "Domain: "+info.DomainContext+".")
	}
	return strings.Join(parts, " ")
}

// domainMatches reports whether any domain-context token longer than three
// characters appears in the project's detailed paragraph, case-insensitive.
func domainMatches(domainContext, detailedParagraph string) bool {
	if domainContext == "" || detailedParagraph == "" {
		return false
	}
	paragraph := strings.ToLower(detailedParagraph)
	for _, token := range strings.Fields(strings.ToLower(domainContext)) {
		if len(token) > 3 && strings.Contains(paragraph, token) {
			return true
		}
	}
	return false
}

// snapshot returns the current index/cache pair, lazily loading persisted
// state the first time. Corrupt or missing files leave the matcher in the
// not-indexed state rather than failing.
func (m *Matcher) snapshot() *snapshot {
	m.loadOnce.Do(func() {
		if m.snap.Load() != nil {
			return
		}
		m.loadFromDisk()
	})
	return m.snap.Load()
}

func (m *Matcher) loadFromDisk() {
	if m.indexPath == "" || m.cachePath == "" {
		return
	}
	idx, err := index.Load(m.indexPath)
	if err != nil {
		m.logger.Warn("no persisted index loaded", "path", m.indexPath, "error", err)
		return
	}
	cache, err := embedding.LoadCache(m.cachePath, m.embedder.Model())
	if err != nil {
		m.logger.Warn("no persisted cache loaded", "path", m.cachePath, "error", err)
		return
	}
	if idx.Len() != len(cache.Names) {
		m.logger.Warn("persisted index and cache disagree, ignoring both",
			"index_entries", idx.Len(), "cache_entries", len(cache.Names))
		return
	}
	m.snap.Store(&snapshot{index: idx, cache: cache})
	m.logger.Info("loaded persisted index", "projects", idx.Len(), "model", cache.Model)
}
