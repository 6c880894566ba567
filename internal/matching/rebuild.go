package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/foliorank/foliorank/internal/embedding"
	"github.com/foliorank/foliorank/internal/index"
	"github.com/foliorank/foliorank/internal/scoring"
	"github.com/foliorank/foliorank/internal/textnorm"
)

// Rebuild re-embeds every visible project, builds a fresh index, persists it
// together with its cache, and swaps both in atomically. Concurrent searches
// keep using the previous snapshot until the swap. Rebuilds are serialized;
// a second caller blocks until the first finishes.
func (m *Matcher) Rebuild(ctx context.Context) error {
	m.rebuildMu.Lock()
	defer m.rebuildMu.Unlock()

	projects, err := m.projects.ListVisible(ctx)
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}

	start := time.Now()
	texts := make([]string, len(projects))
	for i, p := range projects {
		texts[i] = textnorm.BuildWeightedText(p)
	}

	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding projects: %w", err)
	}
	for _, v := range vectors {
		index.Normalize(v)
	}

	idx, err := index.Build(vectors)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	now := m.now()
	cache := &embedding.Cache{
		Model:   m.embedder.Model(),
		Names:   make([]string, len(projects)),
		Vectors: vectors,
		Recency: make(map[string]float64, len(projects)),
		Quality: make(map[string]float64, len(projects)),
	}
	for i, p := range projects {
		cache.Names[i] = p.Name
		cache.Recency[p.Name] = scoring.RecencyScore(p.UpdatedAt, now)
		cache.Quality[p.Name] = scoring.QualityScore(p)
	}

	if m.indexPath != "" && m.cachePath != "" {
		if err := idx.Save(m.indexPath); err != nil {
			return fmt.Errorf("persisting index: %w", err)
		}
		if err := cache.Save(m.cachePath); err != nil {
			return fmt.Errorf("persisting cache: %w", err)
		}
	}

	// Mark the lazy load as done so a later search does not clobber this
	// snapshot with stale on-disk state.
	m.loadOnce.Do(func() {})
	m.snap.Store(&snapshot{index: idx, cache: cache})

	m.logger.Info("index rebuilt",
		"projects", len(projects),
		"model", m.embedder.Model(),
		"duration", time.Since(start))
	return nil
}

// IndexedCount returns the number of projects in the current snapshot, or 0
// if nothing is indexed.
func (m *Matcher) IndexedCount() int {
	snap := m.snapshot()
	if snap == nil {
		return 0
	}
	return snap.index.Len()
}
