// Package chunker splits extracted document text into overlapping passages
// sized for embedding and similarity retrieval. Splitting prefers natural
// boundaries (sentence ends, newlines) near the target size and falls back to
// a hard cut, so every chunk stays within the configured size. Consecutive
// chunks share a configurable overlap so retrieval near a chunk boundary does
// not lose context.
//
// The chunk sequence covers the full input: no character range of the source
// text is dropped, and resolving the overlaps reconstructs the original.
package chunker

import (
	"errors"
	"strings"
)

// ErrInvalidConfig is returned when the chunking parameters cannot produce a
// valid split (overlap must be smaller than the target size).
var ErrInvalidConfig = errors.New("chunker: overlap must be smaller than target size")

// Chunk is one passage of the source text. Seq is the zero-based position of
// the chunk within the split; values are contiguous and strictly increasing.
type Chunk struct {
	Seq     int
	Content string
}

// Chunker splits text into overlapping passages of roughly Size characters.
// The zero value is not usable; construct with New.
type Chunker struct {
	size    int
	overlap int
}

// New validates the chunking parameters and returns a Chunker.
// size is the target chunk length in characters (runes); overlap is the
// number of characters chunk i+1 repeats from the end of chunk i.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidConfig
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split divides text into ordered, overlapping chunks.
//
// Behavior:
//   - empty or whitespace-only text yields no chunks
//   - text shorter than the target size yields exactly one chunk equal to it
//   - otherwise each cut prefers the last sentence or line break past the
//     halfway point of the window, falling back to a hard cut at the target
//     size, so every chunk's length is <= size
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.size {
		return []Chunk{{Seq: 0, Content: text}}
	}

	var out []Chunk
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			out = append(out, Chunk{Seq: len(out), Content: string(runes[start:])})
			break
		}

		// Prefer a sentence or paragraph boundary, but only when it lies past
		// the halfway point of the window; a cut earlier than that would
		// produce degenerate, tiny chunks on boundary-dense text.
		if bp := lastBreak(runes[start:end]); bp > c.size/2 {
			end = start + bp + 1
		}

		out = append(out, Chunk{Seq: len(out), Content: string(runes[start:end])})

		next := end - c.overlap
		if next <= start {
			// Overlap would stall on a short boundary cut; give up the
			// overlap for this step rather than loop forever.
			next = end
		}
		start = next
	}
	return out
}

// lastBreak returns the index of the last sentence terminator or newline in
// window, or -1 when none exists.
func lastBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '.', '\n', '!', '?':
			return i
		}
	}
	return -1
}
