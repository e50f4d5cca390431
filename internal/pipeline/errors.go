package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled marks a chunk task that was cancelled before its
	// synthesis call started. In-flight calls are never aborted.
	ErrCancelled = errors.New("cancelled before synthesis call")

	// ErrArtifactInvalid marks a synthesis call that reported success but
	// left a missing or empty artifact file behind.
	ErrArtifactInvalid = errors.New("synthesis reported success, but artifact file is missing or empty")

	// ErrNoAudioProduced marks a run where every chunk succeeded trivially
	// and no audio artifacts exist to merge.
	ErrNoAudioProduced = errors.New("no audio data generated from input; file may be empty or contain only whitespace")

	// ErrEmptyDocument marks input that segments to nothing.
	ErrEmptyDocument = errors.New("document contains no text")

	// ErrUnexpected wraps panics recovered by the run-level catch-all.
	ErrUnexpected = errors.New("unexpected conversion error")
)

// ChunkError carries the diagnostics for a failed chunk: its ordinal,
// the length of the text it was synthesizing, and the underlying cause.
type ChunkError struct {
	Index   int
	TextLen int
	Err     error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d failed (text length %d): %v", e.Index+1, e.TextLen, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}
