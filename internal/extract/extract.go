// Package extract converts uploaded document bytes into plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Kind identifies a supported upload format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindText Kind = "txt"
)

var (
	// ErrUnsupportedType is returned for filenames outside the supported set.
	ErrUnsupportedType = errors.New("extract: unsupported file type")

	// ErrNoText is returned when a document yields no extractable text.
	ErrNoText = errors.New("extract: no extractable text")
)

// Detect maps a filename extension to a Kind.
func Detect(filename string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF, nil
	case ".txt":
		return KindText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(filename))
	}
}

// Text extracts the plain text content of data according to kind.
func Text(kind Kind, data []byte) (string, error) {
	switch kind {
	case KindPDF:
		return pdfText(data)
	case KindText:
		return plainText(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, string(kind))
	}
}

func pdfText(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: malformed pdf: %v", ErrNoText, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoText, err)
	}

	r, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoText, err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, r); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoText, err)
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrNoText
	}
	return out, nil
}

func plainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}) // UTF-8 BOM
	var text string
	if utf8.Valid(data) {
		text = string(data)
	} else {
		text = latin1String(data)
	}
	out := strings.TrimSpace(text)
	if out == "" {
		return "", ErrNoText
	}
	return out, nil
}

// latin1String decodes bytes as ISO-8859-1, the fallback for .txt uploads
// that are not valid UTF-8. Every byte maps to the code point of the same
// value, so no input is ever rejected.
func latin1String(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
