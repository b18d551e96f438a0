package rag

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const analysisSystemPrompt = `You are Pleader AI, an expert legal assistant. Analyze the provided legal document and respond with clearly titled sections:
1. Key Points: main clauses and provisions
2. Risk Assessment: risks or concerns, each categorized as low, medium or high
3. Suggestions: recommendations for improvement or clarification
4. Legal References: relevant Indian laws, sections or precedents

Provide structured analysis in clear sections.`

// ErrInsufficientText is returned when a document carries too little text
// to produce a meaningful analysis.
var ErrInsufficientText = errors.New("rag: insufficient text for analysis")

// AnalysisResult is the stored outcome of a document analysis. Excerpt is a
// short display preview; FullAnalysis is the complete generated text.
type AnalysisResult struct {
	FullAnalysis string    `json:"full_analysis"`
	Excerpt      string    `json:"excerpt"`
	TextLength   int       `json:"text_length"`
	Model        string    `json:"model"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// AnalysisBuilder prepares analysis prompts and results with the configured
// size bounds.
type AnalysisBuilder struct {
	minInput   int
	maxInput   int
	maxExcerpt int
}

// NewAnalysisBuilder wires a builder. minInput is the shortest document text
// worth analyzing, maxInput caps what is sent to the model, maxExcerpt caps
// the stored display preview.
func NewAnalysisBuilder(minInput, maxInput, maxExcerpt int) *AnalysisBuilder {
	return &AnalysisBuilder{minInput: minInput, maxInput: maxInput, maxExcerpt: maxExcerpt}
}

// Prompt builds the generation input for text. Documents shorter than the
// minimum are rejected before any model call is made.
func (b *AnalysisBuilder) Prompt(text string) (Prompt, error) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < b.minInput {
		return Prompt{}, ErrInsufficientText
	}
	return Prompt{
		System: analysisSystemPrompt,
		User:   "Document text:\n" + truncateRunes(text, b.maxInput),
	}, nil
}

// Result packages a generated analysis with its display excerpt and the
// length of the analyzed source text in runes.
func (b *AnalysisBuilder) Result(text, analysis, model string, now time.Time) AnalysisResult {
	trimmed := strings.TrimSpace(text)
	return AnalysisResult{
		FullAnalysis: analysis,
		Excerpt:      truncateRunes(trimmed, b.maxExcerpt),
		TextLength:   utf8.RuneCountInString(trimmed),
		Model:        model,
		GeneratedAt:  now.UTC(),
	}
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
