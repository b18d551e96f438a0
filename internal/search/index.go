// Package search provides a deterministic, concurrency-safe in-memory vector
// index over document chunk embeddings. It is intentionally small and
// dependency-free:
//
//   - No logging in the library (callers decide how/what to log)
//   - Vectors are unit-normalized on insert, so cosine similarity reduces to
//     a dot product at query time
//   - Ownership filters are applied before ranking, never after, so a
//     caller can only ever see its own chunks
//   - Deterministic scoring and sorting (stable order for ties)
//   - Idempotent inserts keyed by chunk ID (re-adding replaces in place)
//
// Brute-force scan is deliberate: corpora here are per-user document sets,
// small enough that exact search beats an approximate structure.
package search

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	// ErrDimensionMismatch is returned when a vector's length does not match
	// the index dimension.
	ErrDimensionMismatch = errors.New("search: vector dimension mismatch")

	// ErrZeroVector is returned for vectors with no magnitude, which have no
	// defined direction and cannot be ranked by cosine similarity.
	ErrZeroVector = errors.New("search: zero vector")
)

// Entry is one indexed chunk embedding.
type Entry struct {
	ChunkID    string
	DocumentID string
	UserID     string
	Vector     []float32
}

// Match is a ranked query result.
type Match struct {
	ChunkID    string
	DocumentID string
	Score      float64
}

// Filter restricts a query to a subset of the index. UserID is mandatory;
// an empty DocumentID means any document. Matches scoring below MinScore are
// excluded rather than padded.
type Filter struct {
	UserID     string
	DocumentID string
	MinScore   float64
}

// VectorIndex is the calling surface used by the retrieval layer.
type VectorIndex interface {
	Add(e Entry) error
	Query(vec []float32, k int, f Filter) ([]Match, error)
	Remove(chunkID string)
	RemoveDocument(documentID string)
	Len() int
}

type entry struct {
	documentID string
	userID     string
	vector     []float64 // unit-normalized
}

// MemoryIndex is the in-memory VectorIndex implementation.
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	entries map[string]entry // keyed by chunk ID
}

var _ VectorIndex = (*MemoryIndex)(nil)

// NewMemoryIndex creates an index that accepts vectors of exactly dim.
func NewMemoryIndex(dim int) (*MemoryIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("search: dimension must be positive, got %d", dim)
	}
	return &MemoryIndex{dim: dim, entries: make(map[string]entry)}, nil
}

// Add inserts or replaces the entry for e.ChunkID. The vector is copied and
// unit-normalized, so the caller may reuse its slice.
func (ix *MemoryIndex) Add(e Entry) error {
	v, err := ix.normalize(e.Vector)
	if err != nil {
		return err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries[e.ChunkID] = entry{documentID: e.DocumentID, userID: e.UserID, vector: v}
	return nil
}

// Query returns up to k matches for vec, best first, restricted by f.
// Ties are broken by ascending chunk ID so results are stable across runs.
func (ix *MemoryIndex) Query(vec []float32, k int, f Filter) ([]Match, error) {
	q, err := ix.normalize(vec)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	matches := make([]Match, 0, k)
	for id, e := range ix.entries {
		if e.userID != f.UserID {
			continue
		}
		if f.DocumentID != "" && e.documentID != f.DocumentID {
			continue
		}
		score := dot(q, e.vector)
		if score < f.MinScore {
			continue
		}
		matches = append(matches, Match{ChunkID: id, DocumentID: e.documentID, Score: score})
	}
	ix.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Remove drops the entry for chunkID. Removing a chunk that was never
// indexed is a no-op.
func (ix *MemoryIndex) Remove(chunkID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.entries, chunkID)
}

// RemoveDocument drops every entry belonging to documentID. Removing a
// document that was never indexed is a no-op.
func (ix *MemoryIndex) RemoveDocument(documentID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for id, e := range ix.entries {
		if e.documentID == documentID {
			delete(ix.entries, id)
		}
	}
}

// Len reports the number of indexed chunks.
func (ix *MemoryIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func (ix *MemoryIndex) normalize(vec []float32) ([]float64, error) {
	if len(vec) != ix.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), ix.dim)
	}
	out := make([]float64, len(vec))
	var sum float64
	for i, v := range vec {
		f := float64(v)
		out[i] = f
		sum += f * f
	}
	if sum == 0 {
		return nil, ErrZeroVector
	}
	norm := math.Sqrt(sum)
	for i := range out {
		out[i] /= norm
	}
	return out, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
