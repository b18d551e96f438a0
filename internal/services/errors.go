// Package services defines the business logic for chats, messages, and
// analyzed documents. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Chat-related errors.
var (
	// ErrChatNotFound indicates that the requested chat does not exist or is
	// not accessible to the current user.
	ErrChatNotFound = errors.New("chat not found")

	// ErrEmptyPrompt is returned when a request to create a message contains
	// an empty prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTooLong is returned when a request to create a message exceeds the
	// maximum configured length limit.
	ErrTooLong = errors.New("prompt too long")

	// ErrMessageNotFound indicates that the requested message does not exist
	// or is not accessible to the current user.
	ErrMessageNotFound = errors.New("message not found")
)

// Document-related errors.
var (
	// ErrDocumentNotFound indicates that the requested document does not
	// exist or is not accessible to the current user.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrUnsupportedFileType is returned for uploads outside the supported
	// formats (pdf, txt).
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrExtractionFailed is returned when no usable text could be extracted
	// from an uploaded document.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrInsufficientText is returned when a document carries too little text
	// to produce a meaningful analysis.
	ErrInsufficientText = errors.New("insufficient text for analysis")
)

// Upstream AI errors.
var (
	// ErrEmbeddingFailed is returned when the embedding provider rejects or
	// fails a required embedding call.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrGenerationFailed is returned when the text generation provider
	// rejects or fails a completion call. Nothing is persisted in that case.
	ErrGenerationFailed = errors.New("generation failed")
)
