package pipeline

import "time"

// EventKind discriminates the messages a run publishes on its event channel.
type EventKind int

const (
	// EventChunkProgress carries a fresh Progress snapshot after a chunk
	// reached a terminal state.
	EventChunkProgress EventKind = iota
	// EventMergePrep reports manifest construction, one event per file.
	EventMergePrep
	// EventStatus carries a human-readable phase transition.
	EventStatus
	// EventSucceeded is terminal; OutputPath points at the merged audio.
	EventSucceeded
	// EventFailed is terminal; Err holds the surfaced failure.
	EventFailed
)

// Event is one message on a run's progress channel. Which fields are
// meaningful depends on Kind.
type Event struct {
	Kind           EventKind
	Progress       Progress
	FilesProcessed int
	TotalFiles     int
	Status         string
	OutputPath     string
	Err            error
}

// Progress is an immutable snapshot of run progress. ETA and Margin are
// only meaningful when their Known flags are set: the estimator needs at
// least one timed sample for an ETA and at least two for a margin.
type Progress struct {
	Completed   int
	Total       int
	Percent     float64
	ETAKnown    bool
	ETA         time.Duration
	MarginKnown bool
	Margin      time.Duration
}
