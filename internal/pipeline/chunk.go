// Package pipeline implements the chunked synthesis-and-merge pipeline: it
// drives bounded-concurrency chunk synthesis, order-preserving result
// assembly, progress estimation, and the external merge step, with temp
// artifact cleanup on every exit path.
package pipeline

import "time"

// Chunk is one bounded segment of the source document, the unit of
// synthesis work. Its index is the sole ordering key for final assembly.
type Chunk struct {
	Index int
	Text  string
}

// NewChunks wraps segmented texts into indexed chunks
func NewChunks(texts []string) []Chunk {
	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{Index: i, Text: t}
	}
	return chunks
}

// ChunkResult is the outcome of synthesizing one chunk. Exactly one of
// three shapes holds: ArtifactPath set (synthesis succeeded and the artifact
// validated), Err set (synthesis failed, artifact invalid, or the task was
// cancelled), or neither (whitespace-only chunk, trivially succeeded with
// zero duration).
type ChunkResult struct {
	Index        int
	ArtifactPath string
	Err          error
	Duration     time.Duration // zero unless a successful synthesis was timed
}

// Trivial reports whether this result is an empty-chunk success with no
// artifact
func (r ChunkResult) Trivial() bool {
	return r.Err == nil && r.ArtifactPath == ""
}
