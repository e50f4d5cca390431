package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/talevox/talevox/internal/ffmpeg"
	"github.com/talevox/talevox/internal/observability"
	"github.com/talevox/talevox/internal/text"
	"github.com/talevox/talevox/internal/tts"
)

// Runner wires a complete conversion: segmentation, bounded-concurrency
// synthesis, merge, and cleanup.
type Runner struct {
	Synth       tts.Synthesizer
	Merger      *ffmpeg.Merger
	ChunkSize   int
	Concurrency int
	TempDir     string
	Logger      zerolog.Logger
}

// Convert runs the pipeline for one document and returns a channel of
// progress events. The channel is closed after exactly one terminal event
// (EventSucceeded or EventFailed); callers must drain it. Temporary
// artifacts are removed on every exit path, including panics, before the
// terminal event is delivered.
//
// Cancelling ctx stops not-yet-started chunk tasks; calls already in
// flight run to completion and their artifacts are cleaned up with the
// rest.
func (r *Runner) Convert(ctx context.Context, document, voice, outputPath string) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)

		runID := observability.NewRunID()
		logger := r.Logger.With().Str("run_id", runID).Logger()
		registry := NewRegistry()
		start := time.Now()
		outcome := "failed"

		defer func() {
			if rec := recover(); rec != nil {
				logger.Error().Interface("panic", rec).Msg("Conversion panicked")
				registry.Cleanup(logger)
				events <- Event{Kind: EventFailed, Err: fmt.Errorf("%w: %v", ErrUnexpected, rec)}
			}
			observability.RecordRun(outcome, time.Since(start).Seconds())
		}()

		send := func(e Event) { events <- e }

		send(Event{Kind: EventStatus, Status: "Processing text..."})
		segments := text.Segment(document, r.ChunkSize)
		if len(segments) == 0 {
			registry.Cleanup(logger)
			send(Event{Kind: EventFailed, Err: ErrEmptyDocument})
			return
		}
		chunks := NewChunks(segments)
		logger.Info().
			Int("chunks", len(chunks)).
			Int("concurrency", r.Concurrency).
			Str("voice", voice).
			Msg("Starting synthesis")
		send(Event{Kind: EventStatus, Status: fmt.Sprintf("Converting %d chunks...", len(chunks))})

		orch := NewOrchestrator(r.Synth, r.Concurrency, r.TempDir, registry, logger, send)
		results := orch.Run(ctx, chunks, voice)

		mc := NewMergeCoordinator(r.Merger, registry, r.TempDir, logger, send)
		err := mc.Merge(ctx, results, outputPath)

		removed, leaked := registry.Cleanup(logger)
		logger.Info().Int("removed", removed).Int("leaked", leaked).Msg("Temp cleanup complete")

		if err != nil {
			if ctx.Err() != nil {
				outcome = "cancelled"
			}
			logger.Error().Err(err).Msg("Conversion failed")
			send(Event{Kind: EventFailed, Err: err})
			return
		}
		outcome = "succeeded"
		logger.Info().Str("output", outputPath).Dur("elapsed", time.Since(start)).Msg("Conversion complete")
		send(Event{Kind: EventSucceeded, OutputPath: outputPath})
	}()
	return events
}
