// Package export renders chat transcripts and document analyses into
// downloadable files. Two formats are supported: plain text and PDF. The
// text layout is a fixed banner-and-sections form so exports diff cleanly;
// the PDF mirrors the same structure.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Format selects the rendered file type.
type Format string

const (
	FormatTXT Format = "txt"
	FormatPDF Format = "pdf"
)

// ErrUnsupportedFormat is returned for format values outside the supported set.
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// ParseFormat validates a format query value. An empty value defaults to TXT.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "txt":
		return FormatTXT, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type for a rendered format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}

// ChatMessage is one transcript entry to render.
type ChatMessage struct {
	Role    string // "user" or "assistant"
	Content string
	SentAt  time.Time
}

// Chat is a transcript ready for rendering.
type Chat struct {
	Title    string
	Exported time.Time
	Messages []ChatMessage
}

// Analysis is a stored document analysis ready for rendering.
type Analysis struct {
	Filename string
	Analyzed time.Time
	Text     string
}

const (
	banner    = "============================================================"
	separator = "------------------------------------------------------------"

	chatHeading     = "PLEADER AI - CHAT EXPORT"
	analysisHeading = "PLEADER AI - DOCUMENT ANALYSIS"

	headingUser      = "YOU"
	headingAssistant = "PLEADER AI"

	timeLayout = "2006-01-02 15:04"
)

func speakerHeading(role string) string {
	if role == "assistant" {
		return headingAssistant
	}
	return headingUser
}

// RenderChat renders a transcript in the requested format.
func RenderChat(f Format, c Chat) ([]byte, error) {
	switch f {
	case FormatTXT:
		return chatTXT(c), nil
	case FormatPDF:
		return chatPDF(c)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

// RenderAnalysis renders a document analysis in the requested format.
func RenderAnalysis(f Format, a Analysis) ([]byte, error) {
	switch f {
	case FormatTXT:
		return analysisTXT(a), nil
	case FormatPDF:
		return analysisPDF(a)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

func chatTXT(c Chat) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\nChat: %s\nDate: %s\n%s\n\n",
		banner, chatHeading, c.Title, c.Exported.Format(timeLayout), banner)

	for _, m := range c.Messages {
		heading := fmt.Sprintf("%s (%s)", speakerHeading(m.Role), m.SentAt.Format(timeLayout))
		fmt.Fprintf(&b, "%s\n%s\n%s\n\n", heading, strings.Repeat("-", len(heading)), m.Content)
	}
	return []byte(b.String())
}

func analysisTXT(a Analysis) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\nDocument: %s\nAnalyzed: %s\n%s\n\n",
		banner, analysisHeading, a.Filename, a.Analyzed.Format(timeLayout), banner)
	fmt.Fprintf(&b, "ANALYSIS\n%s\n%s\n", separator, a.Text)
	return []byte(b.String())
}

func chatPDF(c Chat) ([]byte, error) {
	doc := newPDF(chatHeading, fmt.Sprintf("Chat: %s", c.Title), fmt.Sprintf("Date: %s", c.Exported.Format(timeLayout)))
	for _, m := range c.Messages {
		doc.SetFont("Helvetica", "B", 11)
		doc.MultiCell(0, 6, fmt.Sprintf("%s (%s)", speakerHeading(m.Role), m.SentAt.Format(timeLayout)), "", "L", false)
		doc.SetFont("Helvetica", "", 10)
		doc.MultiCell(0, 5, m.Content, "", "L", false)
		doc.Ln(4)
	}
	return pdfBytes(doc)
}

func analysisPDF(a Analysis) ([]byte, error) {
	doc := newPDF(analysisHeading, fmt.Sprintf("Document: %s", a.Filename), fmt.Sprintf("Analyzed: %s", a.Analyzed.Format(timeLayout)))
	doc.SetFont("Helvetica", "B", 11)
	doc.MultiCell(0, 6, "ANALYSIS", "", "L", false)
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(0, 5, a.Text, "", "L", false)
	return pdfBytes(doc)
}

func newPDF(title string, meta ...string) *fpdf.Fpdf {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()
	doc.SetFont("Helvetica", "B", 14)
	doc.MultiCell(0, 8, title, "", "L", false)
	doc.SetFont("Helvetica", "", 10)
	for _, line := range meta {
		doc.MultiCell(0, 5, line, "", "L", false)
	}
	doc.Ln(6)
	return doc
}

func pdfBytes(doc *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
