package index

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func unit(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

func TestSearchOrdersByScore(t *testing.T) {
	// Three unit vectors; query closest to axis 1, then 0, then 2.
	vecs := [][]float32{unit(3, 0), unit(3, 1), unit(3, 2)}
	f, err := Build(vecs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	query := Normalize([]float32{0.4, 0.9, 0.1})
	hits, err := f.Search(query, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}

	wantOrder := []int{1, 0, 2}
	for i, want := range wantOrder {
		if hits[i].Position != want {
			t.Errorf("hit %d position = %d, want %d", i, hits[i].Position, want)
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i-1].Score < hits[i].Score {
			t.Errorf("hits not sorted descending at %d: %v", i, hits)
		}
	}
}

func TestSearchFewerThanK(t *testing.T) {
	f, err := Build([][]float32{unit(4, 0), unit(4, 1)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	hits, err := f.Search(unit(4, 0), 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("got %d hits, want 2", len(hits))
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	f, err := Build(nil)
	if err != nil {
		t.Fatalf("Build(nil): %v", err)
	}
	hits, err := f.Search([]float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search on empty index: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("empty index returned hits: %v", hits)
	}
}

func TestSearchUnbuilt(t *testing.T) {
	var f *Flat
	if _, err := f.Search([]float32{1}, 1); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("nil index Search = %v, want ErrNotBuilt", err)
	}
	if _, err := (&Flat{}).Search([]float32{1}, 1); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("zero-value index Search = %v, want ErrNotBuilt", err)
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	f, err := Build([][]float32{unit(3, 0)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := f.Search([]float32{1, 0}, 1); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestBuildRejectsMixedDimensions(t *testing.T) {
	if _, err := Build([][]float32{unit(3, 0), unit(4, 0)}); err == nil {
		t.Error("expected error for mixed dimensions")
	}
}

func TestSearchTieBreaksOnPosition(t *testing.T) {
	// Two identical vectors: earlier position must win.
	v := unit(2, 0)
	f, err := Build([][]float32{v, v, unit(2, 1)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	hits, err := f.Search(unit(2, 0), 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[0].Position != 0 || hits[1].Position != 1 {
		t.Errorf("tie-break order wrong: %v", hits)
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("normalized vector has norm^2 %v, want 1", sum)
	}

	zero := Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector changed by Normalize: %v", zero)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	vecs := [][]float32{
		Normalize([]float32{1, 2, 3}),
		Normalize([]float32{-1, 0.5, 2}),
		Normalize([]float32{0.1, 0.1, 0.1}),
	}
	f, err := Build(vecs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	path := filepath.Join(t.TempDir(), "index.bin")
	if err := f.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != f.Len() || loaded.Dim() != f.Dim() {
		t.Fatalf("loaded index shape %d/%d, want %d/%d",
			loaded.Len(), loaded.Dim(), f.Len(), f.Dim())
	}

	query := Normalize([]float32{0.2, 0.7, 0.4})
	orig, err := f.Search(query, 3)
	if err != nil {
		t.Fatalf("Search original: %v", err)
	}
	got, err := loaded.Search(query, 3)
	if err != nil {
		t.Fatalf("Search loaded: %v", err)
	}
	if !reflect.DeepEqual(orig, got) {
		t.Errorf("search results differ after round-trip:\n  orig: %v\n  load: %v", orig, got)
	}
}

func TestSaveLoadEmptyIndex(t *testing.T) {
	f, err := Build(nil)
	if err != nil {
		t.Fatalf("Build(nil): %v", err)
	}
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := f.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 0 {
		t.Errorf("loaded empty index has %d vectors", loaded.Len())
	}
	hits, err := loaded.Search([]float32{1}, 3)
	if err != nil || len(hits) != 0 {
		t.Errorf("empty loaded index Search = %v, %v; want no hits, no error", hits, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.bin")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "garbage.bin")
	if err := os.WriteFile(bad, []byte("this is not an index"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected error for garbage file")
	}

	// Truncated: valid header claiming more data than present.
	f, err := Build([][]float32{unit(8, 0), unit(8, 1)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	good := filepath.Join(dir, "good.bin")
	if err := f.Save(good); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(good)
	if err != nil {
		t.Fatal(err)
	}
	trunc := filepath.Join(dir, "trunc.bin")
	if err := os.WriteFile(trunc, data[:len(data)-10], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(trunc); err == nil {
		t.Error("expected error for truncated file")
	}
}
