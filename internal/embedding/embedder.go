// Package embedding wraps a text-embedding backend and owns the persisted
// embedding cache the matcher reads precomputed scores from.
package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Client is the interface an embedding backend must satisfy. The Ollama
// client implements it.
type Client interface {
	Embed(ctx context.Context, model string, text string) ([]float32, error)
}

// Embedder binds a Client to a fixed model name.
type Embedder struct {
	client Client
	model  string
}

// NewEmbedder creates an Embedder using the given client and model name.
func NewEmbedder(client Client, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

// Model returns the embedding model name, recorded in the cache so a reload
// against a different model is detected instead of silently misread.
func (e *Embedder) Model() string {
	return e.model
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.client.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	return vec, nil
}

// EmbedBatch returns embedding vectors for multiple texts concurrently.
// Returns nil (not error) for empty/nil input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to avoid overwhelming the backend.

	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			vec, err := e.client.Embed(gCtx, e.model, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
