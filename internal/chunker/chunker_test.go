package chunker

import (
	"strings"
	"testing"
)

func TestNew_InvalidConfig(t *testing.T) {
	cases := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.size, tc.overlap); err != ErrInvalidConfig {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	c, err := New(500, 100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, in := range []string{"", "   ", "\n\t\n  "} {
		if got := c.Split(in); got != nil {
			t.Fatalf("Split(%q) = %v, want nil", in, got)
		}
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c, _ := New(500, 100)
	in := "A short indemnification clause."
	got := c.Split(in)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0].Content != in {
		t.Fatalf("chunk content = %q, want %q", got[0].Content, in)
	}
	if got[0].Seq != 0 {
		t.Fatalf("seq = %d, want 0", got[0].Seq)
	}
}

func TestSplit_ExactTargetSizeSingleChunk(t *testing.T) {
	c, _ := New(100, 10)
	in := strings.Repeat("a", 100)
	got := c.Split(in)
	if len(got) != 1 || got[0].Content != in {
		t.Fatalf("expected 1 chunk equal to input, got %d chunks", len(got))
	}
}

// synthetic legal prose: deterministic sentences so boundary cuts are exercised.
func sampleText(n int) string {
	var b strings.Builder
	i := 0
	for b.Len() < n {
		b.WriteString("Clause ")
		b.WriteByte(byte('a' + i%26))
		b.WriteString(" of this agreement governs termination and notice periods. ")
		i++
	}
	return b.String()[:n]
}

func TestSplit_OverlapScenario(t *testing.T) {
	const (
		size    = 1000
		overlap = 100
	)
	c, _ := New(size, overlap)
	in := sampleText(3000)

	chunks := c.Split(in)
	if len(chunks) < 3 || len(chunks) > 4 {
		t.Fatalf("expected 3-4 chunks for 3000 chars, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Seq != i {
			t.Fatalf("chunk %d has seq %d", i, ch.Seq)
		}
		if n := len([]rune(ch.Content)); n > size {
			t.Fatalf("chunk %d has %d chars, want <= %d", i, n, size)
		}
	}
	// Consecutive chunks share the trailing overlap characters.
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		next := []rune(chunks[i].Content)
		tail := string(prev[len(prev)-overlap:])
		head := string(next[:overlap])
		if tail != head {
			t.Fatalf("chunks %d/%d do not share %d overlap chars", i-1, i, overlap)
		}
	}
}

func TestSplit_RoundTripCoverage(t *testing.T) {
	const overlap = 100
	c, _ := New(1000, overlap)
	in := sampleText(4217)

	chunks := c.Split(in)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Resolving the overlaps must reconstruct the input exactly.
	var b strings.Builder
	b.WriteString(chunks[0].Content)
	for _, ch := range chunks[1:] {
		r := []rune(ch.Content)
		b.WriteString(string(r[overlap:]))
	}
	if b.String() != in {
		t.Fatal("concatenated chunks do not reconstruct the source text")
	}
}

func TestSplit_HardCutWithoutBoundaries(t *testing.T) {
	c, _ := New(200, 20)
	in := strings.Repeat("x", 650) // no sentence breaks anywhere

	chunks := c.Split(in)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, ch := range chunks {
		if n := len(ch.Content); n > 200 {
			t.Fatalf("chunk %d has %d chars, want <= 200", i, n)
		}
	}
	// Coverage still holds under hard cuts.
	var b strings.Builder
	b.WriteString(chunks[0].Content)
	for _, ch := range chunks[1:] {
		b.WriteString(ch.Content[20:])
	}
	if b.String() != in {
		t.Fatal("hard-cut chunks do not reconstruct the source text")
	}
}
