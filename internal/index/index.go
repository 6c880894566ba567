// Package index provides an in-memory flat inner-product index over
// L2-normalized embedding vectors, with binary file persistence. On
// normalized vectors inner product equals cosine similarity.
package index

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNotBuilt is returned by Search when the index holds no data and was
// never built or loaded.
var ErrNotBuilt = errors.New("index not built")

// Hit is one search result: the inner-product score and the position of the
// matching vector in build order.
type Hit struct {
	Score    float32
	Position int
}

// Flat is a brute-force inner-product index. The vector dimension is fixed
// by the first vector passed to Build. A Flat is immutable after Build and
// safe for concurrent readers.
type Flat struct {
	dim     int
	vectors [][]float32
	built   bool
}

// Build creates an index over the given vectors. Vectors are expected to be
// L2-normalized already; Build validates only that dimensions agree. An
// empty slice produces a valid, empty index.
func Build(vectors [][]float32) (*Flat, error) {
	f := &Flat{built: true}
	if len(vectors) == 0 {
		return f, nil
	}

	f.dim = len(vectors[0])
	if f.dim == 0 {
		return nil, errors.New("zero-dimension vector")
	}
	f.vectors = make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != f.dim {
			return nil, fmt.Errorf("vector %d has dimension %d, index dimension is %d", i, len(v), f.dim)
		}
		f.vectors[i] = v
	}
	return f, nil
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int {
	if f == nil {
		return 0
	}
	return len(f.vectors)
}

// Dim returns the vector dimension, 0 for an empty index.
func (f *Flat) Dim() int {
	if f == nil {
		return 0
	}
	return f.dim
}

// Search returns up to k entries ordered by descending inner-product score.
// Ties break on the lower position so results are deterministic. An empty
// index returns an empty result; a nil or never-built index returns
// ErrNotBuilt.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if f == nil || !f.built {
		return nil, ErrNotBuilt
	}
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), f.dim)
	}
	if k > len(f.vectors) {
		k = len(f.vectors)
	}

	h := &hitHeap{}
	heap.Init(h)
	for pos, v := range f.vectors {
		score := dot(query, v)
		if h.Len() < k {
			heap.Push(h, Hit{Score: score, Position: pos})
		} else if less((*h)[0], Hit{Score: score, Position: pos}) {
			(*h)[0] = Hit{Score: score, Position: pos}
			heap.Fix(h, 0)
		}
	}

	hits := make([]Hit, h.Len())
	for i := len(hits) - 1; i >= 0; i-- {
		hits[i] = heap.Pop(h).(Hit)
	}
	// Heap pop order is ascending; reverse fill above yields descending
	// score, but equal scores may come out position-reversed. Re-sort for a
	// stable contract.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})
	return hits, nil
}

// less orders hits ascending: by score, then by position descending so that
// among equal scores the earlier position is considered "greater" and
// survives heap eviction.
func less(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Position > b.Position
}

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}

// Normalize L2-normalizes v in place and returns it. A zero vector is
// returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	n := math.Sqrt(sum)
	if n == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / n)
	}
	return v
}

// hitHeap is a min-heap of Hit ordered by less, used to track the current
// top-K during the scan.
type hitHeap []Hit

func (h hitHeap) Len() int            { return len(h) }
func (h hitHeap) Less(i, j int) bool  { return less(h[i], h[j]) }
func (h hitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x interface{}) { *h = append(*h, x.(Hit)) }
func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
