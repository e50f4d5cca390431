package pipeline

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/talevox/talevox/internal/observability"
	"github.com/talevox/talevox/internal/tts"
)

// Orchestrator runs chunk synthesis with at most limit calls in flight,
// collecting results into index-ordered slots regardless of completion
// order. An Orchestrator drives a single run at a time.
type Orchestrator struct {
	synth    tts.Synthesizer
	limit    int
	tempDir  string
	registry *Registry
	logger   zerolog.Logger
	emit     func(Event)

	mu        sync.Mutex
	total     int
	completed int
	durations []time.Duration
}

// NewOrchestrator builds an orchestrator. tempDir may be empty to use the
// system default. emit may be nil when no progress sink is attached.
func NewOrchestrator(synth tts.Synthesizer, limit int, tempDir string, registry *Registry, logger zerolog.Logger, emit func(Event)) *Orchestrator {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Orchestrator{
		synth:    synth,
		limit:    limit,
		tempDir:  tempDir,
		registry: registry,
		logger:   logger,
		emit:     emit,
	}
}

// Run synthesizes every chunk and returns one result per chunk, in chunk
// order. It waits for every launched task, including after cancellation:
// cancellation prevents not-yet-started calls from launching but never
// aborts a call already in flight.
func (o *Orchestrator) Run(ctx context.Context, chunks []Chunk, voice string) []ChunkResult {
	o.mu.Lock()
	o.total = len(chunks)
	o.completed = 0
	o.durations = nil
	o.mu.Unlock()

	// Disjoint per-index writes into a pre-sized slice; no channel needed
	// to reassemble order.
	results := make([]ChunkResult, len(chunks))
	sem := semaphore.NewWeighted(int64(o.limit))
	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		go func(c Chunk) {
			defer wg.Done()
			results[c.Index] = o.runChunk(ctx, sem, c, voice)
		}(chunks[i])
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) runChunk(ctx context.Context, sem *semaphore.Weighted, c Chunk, voice string) ChunkResult {
	if strings.TrimSpace(c.Text) == "" {
		// Whitespace-only chunk: trivial success, no artifact, no timing.
		observability.RecordSynth("skipped", 0)
		o.recordCompletion(0)
		return ChunkResult{Index: c.Index}
	}

	// The artifact path is registered before the synthesis call so cleanup
	// knows about it even if the call dies partway through.
	f, err := os.CreateTemp(o.tempDir, "talevox-chunk-*.mp3")
	if err != nil {
		observability.RecordSynth("error", 0)
		o.recordCompletion(0)
		return ChunkResult{Index: c.Index, Err: &ChunkError{Index: c.Index, TextLen: len(c.Text), Err: err}}
	}
	path := f.Name()
	f.Close()
	o.registry.Register(path)

	if err := sem.Acquire(ctx, 1); err != nil {
		observability.RecordSynth("cancelled", 0)
		o.recordCompletion(0)
		return ChunkResult{Index: c.Index, Err: ErrCancelled}
	}
	defer sem.Release(1)

	// Re-check after acquiring the slot: the run may have been cancelled
	// while this task was queued.
	if ctx.Err() != nil {
		observability.RecordSynth("cancelled", 0)
		o.recordCompletion(0)
		return ChunkResult{Index: c.Index, Err: ErrCancelled}
	}

	start := time.Now()
	err = o.synth.Synthesize(context.WithoutCancel(ctx), c.Text, voice, path)
	elapsed := time.Since(start)
	if err != nil {
		o.logger.Warn().Err(err).Int("chunk", c.Index+1).Int("text_len", len(c.Text)).Msg("Chunk synthesis failed")
		observability.RecordSynth("error", 0)
		o.recordCompletion(0)
		return ChunkResult{Index: c.Index, Err: &ChunkError{Index: c.Index, TextLen: len(c.Text), Err: err}}
	}

	if fi, statErr := os.Stat(path); statErr != nil || fi.Size() == 0 {
		o.logger.Warn().Int("chunk", c.Index+1).Msg("Synthesis succeeded but artifact is missing or empty")
		observability.RecordSynth("error", 0)
		o.recordCompletion(0)
		return ChunkResult{Index: c.Index, Err: &ChunkError{Index: c.Index, TextLen: len(c.Text), Err: ErrArtifactInvalid}}
	}

	observability.RecordSynth("success", elapsed.Seconds())
	o.recordCompletion(elapsed)
	return ChunkResult{Index: c.Index, ArtifactPath: path, Duration: elapsed}
}

// recordCompletion bumps the completed count, folds a timing sample in when
// one exists, and emits a fresh progress snapshot. The mutex makes snapshot
// emission monotonic: no event carries an older count than a prior event.
func (o *Orchestrator) recordCompletion(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
	if d > 0 {
		o.durations = append(o.durations, d)
	}
	snap := Estimate(o.completed, o.total, o.durations, o.limit)
	o.emit(Event{Kind: EventChunkProgress, Progress: snap})
}
