// Package transfer implements the file transfer protocol that carries file
// state across the worker boundary.
//
// The canonical file record never crosses into a worker. Serialize produces
// a transfer-safe snapshot, Deserialize reconstructs a worker-side clone
// that plugin code reads and writes exactly like the canonical record, and
// Update merges a worker's result back onto the canonical instance.
package transfer

import (
	"fmt"
	"time"

	"github.com/transmute/transmute/pkg/types"
)

// Serialize returns a transfer-safe snapshot of f. It is a pure function:
// the source file is never mutated and the snapshot shares no mutable state
// with it. Metadata values are deep-copied; a value that cannot be safely
// transported (functions, channels) is a transfer error.
func Serialize(f *types.File) (*types.SerializedFile, error) {
	meta, err := cloneValue(f.Meta)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", f.Path, err)
	}

	metaMap, _ := meta.(map[string]any)
	if metaMap == nil {
		metaMap = make(map[string]any)
	}

	contents := make([]byte, len(f.Contents))
	copy(contents, f.Contents)

	return &types.SerializedFile{
		Path:       f.Path,
		CreatedAt:  f.CreatedAt,
		ModifiedAt: f.ModifiedAt,
		Meta:       metaMap,
		Contents:   contents,
	}, nil
}

// Deserialize reconstructs a worker-side file clone from a snapshot. The
// clone is indistinguishable from a canonical record to plugin code; its
// mutations stay local until merged back with Update.
func Deserialize(s *types.SerializedFile) *types.File {
	meta := s.Meta
	if meta == nil {
		meta = make(map[string]any)
	}
	return &types.File{
		Path:       s.Path,
		CreatedAt:  s.CreatedAt,
		ModifiedAt: s.ModifiedAt,
		Meta:       meta,
		Contents:   s.Contents,
	}
}

// Snapshot captures a worker-side clone back into transfer form after
// processing. The clone is discarded afterwards, so its state moves rather
// than copies.
func Snapshot(f *types.File) *types.SerializedFile {
	return &types.SerializedFile{
		Path:       f.Path,
		CreatedAt:  f.CreatedAt,
		ModifiedAt: f.ModifiedAt,
		Meta:       f.Meta,
		Contents:   f.Contents,
	}
}

// Update applies a worker's result onto the canonical file record.
//
// The path is replaced only when it actually differs, so downstream
// consumers watching for path changes are not signalled needlessly.
// Metadata is merged into the existing map instance; external references to
// that map observe the update, and the map itself is never replaced.
// Contents are replaced wholesale. Timestamps reflect the canonical
// lifecycle and are left untouched.
func Update(canonical *types.File, result *types.SerializedFile) {
	if canonical.Path != result.Path {
		canonical.Path = result.Path
	}

	if canonical.Meta == nil {
		canonical.Meta = make(map[string]any, len(result.Meta))
	}
	for k, v := range result.Meta {
		canonical.Meta[k] = v
	}

	canonical.Contents = result.Contents
}

// cloneValue deep-copies a metadata value. Nested maps and slices are
// cloned recursively; time values and other primitives are copied by value.
func cloneValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, complex64, complex128, string:
		return val, nil
	case time.Time:
		return val, nil
	case time.Duration:
		return val, nil
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			cloned, err := cloneValue(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = cloned
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			cloned, err := cloneValue(elem)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = cloned
		}
		return out, nil
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out, nil
	case []int:
		out := make([]int, len(val))
		copy(out, val)
		return out, nil
	case []float64:
		out := make([]float64, len(val))
		copy(out, val)
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported metadata value type %T", v)
	}
}
