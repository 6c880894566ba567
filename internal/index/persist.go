package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// File format: magic "FRIX", then uint32 version, count, dim, then
// count*dim little-endian float32 values. The format is private to this
// implementation; no cross-version compatibility is guaranteed.
var fileMagic = [4]byte{'F', 'R', 'I', 'X'}

const fileVersion uint32 = 1

// Save writes the index to path atomically: the data goes to a temp file in
// the same directory which is then renamed over the target, so a crash
// mid-write can never leave a half-written index behind.
func (f *Flat) Save(path string) error {
	if f == nil || !f.built {
		return ErrNotBuilt
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := f.encode(w); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp index file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing index file: %w", err)
	}
	return nil
}

func (f *Flat) encode(w io.Writer) error {
	if _, err := w.Write(fileMagic[:]); err != nil {
		return err
	}
	header := []uint32{fileVersion, uint32(len(f.vectors)), uint32(f.dim)}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	buf := make([]byte, 4)
	for _, vec := range f.vectors {
		for _, val := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(val))
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads an index previously written by Save. Missing or corrupt files
// return an error; callers are expected to treat that as "no index loaded"
// and fall back to an empty state.
func Load(path string) (*Flat, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer file.Close()

	r := bufio.NewReader(file)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("reading index magic: %w", err)
	}
	if magic != fileMagic {
		return nil, fmt.Errorf("not an index file (bad magic %q)", magic)
	}

	var version, count, dim uint32
	for _, dst := range []*uint32{&version, &count, &dim} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("reading index header: %w", err)
		}
	}
	if version != fileVersion {
		return nil, fmt.Errorf("unsupported index version %d", version)
	}
	if count > 0 && dim == 0 {
		return nil, fmt.Errorf("corrupt index header: %d vectors with dimension 0", count)
	}
	// Sanity bound so a corrupt header cannot trigger a huge allocation.
	const maxEntries = 1 << 20
	if count > maxEntries || dim > maxEntries {
		return nil, fmt.Errorf("corrupt index header: count=%d dim=%d", count, dim)
	}

	vectors := make([][]float32, count)
	buf := make([]byte, 4)
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("reading vector %d: %w", i, err)
			}
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf))
		}
		vectors[i] = vec
	}

	// Trailing data means the file does not match its header.
	if _, err := r.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("index file has trailing data")
	}

	f := &Flat{built: true, vectors: vectors}
	if count > 0 {
		f.dim = int(dim)
	}
	return f, nil
}
