package task

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// MediaDecodeError means the source audio could not be decoded or cut.
type MediaDecodeError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *MediaDecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *MediaDecodeError) Unwrap() error { return e.Err }

// TranscriptionEngineError wraps a failed speech-to-text call for one chunk.
type TranscriptionEngineError struct {
	Chunk int
	Err   error
}

func (e *TranscriptionEngineError) Error() string {
	return fmt.Sprintf("transcribe chunk %d: %v", e.Chunk, e.Err)
}

func (e *TranscriptionEngineError) Unwrap() error { return e.Err }

// CorrectionRateLimitError marks a retryable rate-limit or quota failure.
type CorrectionRateLimitError struct {
	Err error
}

func (e *CorrectionRateLimitError) Error() string {
	return fmt.Sprintf("correction rate limited: %v", e.Err)
}

func (e *CorrectionRateLimitError) Unwrap() error { return e.Err }

// CorrectionUnavailableError is returned once rate-limit retries are exhausted.
type CorrectionUnavailableError struct {
	Attempts int
	Err      error
}

func (e *CorrectionUnavailableError) Error() string {
	return fmt.Sprintf("correction unavailable after %d attempts: %v", e.Attempts, e.Err)
}

func (e *CorrectionUnavailableError) Unwrap() error { return e.Err }

// CorrectionEngineError is any non-rate-limit failure of the correction call.
type CorrectionEngineError struct {
	Err error
}

func (e *CorrectionEngineError) Error() string {
	return fmt.Sprintf("correction failed: %v", e.Err)
}

func (e *CorrectionEngineError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed write or read of a durable record.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// UserMessage returns the message stored on a failed record. It names the
// failing stage and keeps only the first line of the underlying error. Spool
// paths are reduced to their base name; logs carry the full error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		decodeErr      *MediaDecodeError
		sttErr         *TranscriptionEngineError
		unavailableErr *CorrectionUnavailableError
		correctionErr  *CorrectionEngineError
		persistErr     *PersistenceError
	)
	var prefix string
	msg := err.Error()
	switch {
	case errors.As(err, &decodeErr):
		prefix = "audio could not be decoded"
		msg = decodeErr.Err.Error()
		if decodeErr.Path != "" {
			msg = strings.ReplaceAll(msg, decodeErr.Path, filepath.Base(decodeErr.Path))
		}
	case errors.As(err, &sttErr):
		prefix = "transcription failed"
	case errors.As(err, &unavailableErr):
		prefix = "correction service unavailable (rate limited)"
	case errors.As(err, &correctionErr):
		prefix = "correction failed"
	case errors.As(err, &persistErr):
		prefix = "could not save result"
	default:
		prefix = "processing failed"
	}
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	const maxLen = 300
	if r := []rune(msg); len(r) > maxLen {
		msg = string(r[:maxLen])
	}
	return prefix + ": " + msg
}
