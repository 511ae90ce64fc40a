package vector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/geronlab/biorag/internal/errs"
	"github.com/geronlab/biorag/internal/models"
)

// Artifact layout (little-endian): magic "BRAG", format version (u32),
// dimension (u32), row count (u32), then per row the vector (dimension
// float32 values) followed by a length-prefixed JSON metadata record.
// The version lets future loaders detect incompatible layouts and fail with
// CORRUPTED_DATA instead of misreading.
var artifactMagic = [4]byte{'B', 'R', 'A', 'G'}

const artifactVersion uint32 = 1

// Save persists the index to path as a single artifact. The write is atomic:
// data goes to a temp file in the same directory which is fsynced, verified
// non-empty, and renamed over the canonical path, so a crash mid-save never
// leaves a corrupt artifact in place.
func (ix *Index) Save(path string) error {
	const op = "vector.Save"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%s: create index dir: %w", op, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%s: create temp file: %w", op, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after successful rename

	w := bufio.NewWriter(tmp)
	if err := ix.encode(w); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: flush: %w", op, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: sync: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: close: %w", op, err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return fmt.Errorf("%s: verify write: %w", op, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: saved artifact is empty", op)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%s: rename into place: %w", op, err)
	}
	return nil
}

func (ix *Index) encode(w io.Writer) error {
	if _, err := w.Write(artifactMagic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	header := []uint32{artifactVersion, uint32(ix.dimensions), uint32(len(ix.vectors))}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	vecBuf := make([]byte, ix.dimensions*4)
	for i, vec := range ix.vectors {
		for j, v := range vec {
			binary.LittleEndian.PutUint32(vecBuf[j*4:(j+1)*4], math.Float32bits(v))
		}
		if _, err := w.Write(vecBuf); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
		metaJSON, err := json.Marshal(ix.meta[i])
		if err != nil {
			return fmt.Errorf("marshal metadata %d: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(metaJSON))); err != nil {
			return fmt.Errorf("write metadata length %d: %w", i, err)
		}
		if _, err := w.Write(metaJSON); err != nil {
			return fmt.Errorf("write metadata %d: %w", i, err)
		}
	}
	return nil
}

// Load reads an index artifact. A missing file is INDEX_NOT_BUILT so callers
// can trigger ingestion; any integrity failure (bad magic, unknown version,
// truncation, malformed metadata JSON) is CORRUPTED_DATA. Malformed rows
// fail the whole load rather than being skipped: a partially loaded index
// would silently break the row/metadata alignment.
func Load(path string) (*Index, error) {
	const op = "vector.Load"
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Newf(errs.CodeIndexNotBuilt, op, "no vector index at %s", path)
		}
		return nil, fmt.Errorf("%s: open artifact: %w", op, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errs.Wrap(errs.CodeCorruptedData, op, fmt.Errorf("read magic: %w", err))
	}
	if magic != artifactMagic {
		return nil, errs.New(errs.CodeCorruptedData, op, "not a vector index artifact")
	}
	var version, dims, count uint32
	for _, p := range []*uint32{&version, &dims, &count} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, errs.Wrap(errs.CodeCorruptedData, op, fmt.Errorf("read header: %w", err))
		}
	}
	if version != artifactVersion {
		return nil, errs.Newf(errs.CodeCorruptedData, op, "unsupported artifact version %d", version)
	}
	if dims == 0 || count == 0 {
		return nil, errs.New(errs.CodeCorruptedData, op, "artifact declares an empty index")
	}

	vectors := make([][]float32, 0, count)
	meta := make([]models.ChunkMeta, 0, count)
	vecBuf := make([]byte, int(dims)*4)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, vecBuf); err != nil {
			return nil, errs.Wrap(errs.CodeCorruptedData, op, fmt.Errorf("read vector %d: %w", i, err))
		}
		vec := make([]float32, dims)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(vecBuf[j*4 : (j+1)*4]))
		}
		var metaLen uint32
		if err := binary.Read(r, binary.LittleEndian, &metaLen); err != nil {
			return nil, errs.Wrap(errs.CodeCorruptedData, op, fmt.Errorf("read metadata length %d: %w", i, err))
		}
		metaJSON := make([]byte, metaLen)
		if _, err := io.ReadFull(r, metaJSON); err != nil {
			return nil, errs.Wrap(errs.CodeCorruptedData, op, fmt.Errorf("read metadata %d: %w", i, err))
		}
		var m models.ChunkMeta
		if err := json.Unmarshal(metaJSON, &m); err != nil {
			return nil, errs.Wrap(errs.CodeCorruptedData, op, fmt.Errorf("malformed metadata %d: %w", i, err))
		}
		vectors = append(vectors, vec)
		meta = append(meta, m)
	}

	// Build re-checks alignment and normalization so the loaded index holds
	// the same invariants as a freshly built one.
	ix, err := Build(vectors, meta)
	if err != nil {
		return nil, errs.Wrap(errs.CodeCorruptedData, op, err)
	}
	return ix, nil
}
