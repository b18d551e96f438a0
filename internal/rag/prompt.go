package rag

import (
	"fmt"
	"strings"
)

// Roles used in conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const chatSystemPrompt = `You are Pleader AI, an expert legal assistant specializing in Indian law.
You provide accurate, helpful legal information and guidance.

Instructions:
- Provide a clear, accurate answer based on the provided context
- Cite specific documents when making claims
- If the context does not fully answer the question, acknowledge this
- Focus on Indian legal context when applicable
- Be professional and precise`

// Turn is one prior message in a conversation.
type Turn struct {
	Role    string
	Content string
}

// Prompt is the assembled input for a text generation call.
type Prompt struct {
	System string
	User   string
}

// PromptBuilder assembles grounded chat prompts. The layout is fixed:
// system instructions, then document excerpts, then prior conversation,
// then the current input, in that order.
type PromptBuilder struct {
	maxTurns    int
	maxExcerpts int
}

// NewPromptBuilder wires a builder. maxTurns bounds the history window and
// maxExcerpts bounds how many retrieved excerpts are included.
func NewPromptBuilder(maxTurns, maxExcerpts int) *PromptBuilder {
	return &PromptBuilder{maxTurns: maxTurns, maxExcerpts: maxExcerpts}
}

// Window returns the most recent maxTurns turns of history, oldest first.
func (b *PromptBuilder) Window(history []Turn) []Turn {
	if b.maxTurns <= 0 || len(history) <= b.maxTurns {
		return history
	}
	return history[len(history)-b.maxTurns:]
}

// Build assembles a grounded prompt. Empty excerpts and empty history are
// both fine; their sections are simply omitted.
func (b *PromptBuilder) Build(excerpts []Excerpt, history []Turn, input string) Prompt {
	var sys strings.Builder
	sys.WriteString(chatSystemPrompt)

	if b.maxExcerpts > 0 && len(excerpts) > b.maxExcerpts {
		excerpts = excerpts[:b.maxExcerpts]
	}
	if len(excerpts) > 0 {
		sys.WriteString("\n\nContext from the user's documents:\n")
		for i, ex := range excerpts {
			if ex.Filename != "" {
				fmt.Fprintf(&sys, "\n[Excerpt %d from %s]\n%s\n", i+1, ex.Filename, ex.Content)
			} else {
				fmt.Fprintf(&sys, "\n[Excerpt %d]\n%s\n", i+1, ex.Content)
			}
		}
	}

	var usr strings.Builder
	if window := b.Window(history); len(window) > 0 {
		usr.WriteString("Previous conversation:\n")
		for _, t := range window {
			fmt.Fprintf(&usr, "%s: %s\n", t.Role, t.Content)
		}
		usr.WriteString("\n")
	}
	fmt.Fprintf(&usr, "User question: %s", input)

	return Prompt{System: sys.String(), User: usr.String()}
}
