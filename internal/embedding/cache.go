package embedding

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// Cache is the persisted companion of the vector index: the full embedding
// matrix, the project names in index position order, and the precomputed
// per-project scores the matcher reads at query time. Position i of Names
// corresponds to vector i of the index; that bijection must hold across
// save/load cycles.
type Cache struct {
	// Model tags which embedding transform produced Vectors. A cache written
	// under a different model must not be reused.
	Model   string
	Names   []string
	Vectors [][]float32
	Recency map[string]float64
	Quality map[string]float64
}

// Save writes the cache to path atomically (temp file + rename). The
// encoding is gob and readable only by this implementation.
func (c *Cache) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(c); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// LoadCache reads a cache written by Save and verifies it was produced by
// the given embedding model. A model mismatch is an error, not a silent
// reinterpretation.
func LoadCache(path, model string) (*Cache, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cache file: %w", err)
	}
	defer file.Close()

	var c Cache
	if err := gob.NewDecoder(file).Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding cache: %w", err)
	}
	if c.Model != model {
		return nil, fmt.Errorf("cache was built with model %q, current model is %q", c.Model, model)
	}
	if len(c.Names) != len(c.Vectors) {
		return nil, fmt.Errorf("corrupt cache: %d names for %d vectors", len(c.Names), len(c.Vectors))
	}
	return &c, nil
}
