package model

import (
	"context"
	"errors"
)

// Pipeline errors. Adapters wrap these with %w so callers can classify
// failures with errors.Is.
var (
	// ErrExtraction indicates a document could not be parsed.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding indicates the embedding provider failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrCompletion indicates the LLM completion provider failed.
	ErrCompletion = errors.New("completion failed")

	// ErrSearch indicates the web search provider failed.
	ErrSearch = errors.New("web search failed")

	// ErrValidation indicates a malformed call into the index store.
	// It is a programmer error and is never turned into a status value.
	ErrValidation = errors.New("validation failed")

	// ErrNoChunks indicates a document produced no indexable text.
	ErrNoChunks = errors.New("no chunks produced")

	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
)

// ErrorKind classifies a failure carried by a result value.
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindExtraction ErrorKind = "extraction"
	KindEmbedding  ErrorKind = "embedding"
	KindCompletion ErrorKind = "completion"
	KindSearch     ErrorKind = "search"
	KindTimeout    ErrorKind = "timeout"
	KindValidation ErrorKind = "validation"
	KindUnknown    ErrorKind = "unknown"
)

// KindOf maps an error onto its ErrorKind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrExtraction), errors.Is(err, ErrNoChunks):
		return KindExtraction
	case errors.Is(err, ErrEmbedding):
		return KindEmbedding
	case errors.Is(err, ErrCompletion):
		return KindCompletion
	case errors.Is(err, ErrSearch):
		return KindSearch
	default:
		return KindUnknown
	}
}
