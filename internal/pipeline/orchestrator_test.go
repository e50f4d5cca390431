package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/talevox/talevox/internal/tts"
)

func makeChunks(texts ...string) []Chunk {
	return NewChunks(texts)
}

func newTestOrchestrator(t *testing.T, synth tts.Synthesizer, limit int, emit func(Event)) (*Orchestrator, *Registry) {
	t.Helper()
	reg := NewRegistry()
	o := NewOrchestrator(synth, limit, t.TempDir(), reg, zerolog.Nop(), emit)
	return o, reg
}

func TestRun_ResultsInChunkOrder(t *testing.T) {
	// Later chunks finish first; results must still come back by index.
	synth := &tts.MockSynthesizer{
		Delay: func(text string) time.Duration {
			return time.Duration(len(text)) * 10 * time.Millisecond
		},
	}
	chunks := makeChunks("aaaaa", "aaaa", "aaa", "aa", "a")
	o, reg := newTestOrchestrator(t, synth, 5, nil)
	defer reg.Cleanup(zerolog.Nop())

	results := o.Run(context.Background(), chunks, "test-voice")
	if len(results) != 5 {
		t.Fatalf("Expected 5 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("Expected result %d to carry index %d, got %d", i, i, r.Index)
		}
		if r.Err != nil {
			t.Errorf("Expected result %d to succeed, got %v", i, r.Err)
		}
		if r.ArtifactPath == "" {
			t.Errorf("Expected result %d to have an artifact", i)
		}
		if r.Duration <= 0 {
			t.Errorf("Expected result %d to record a duration", i)
		}
	}
}

// gaugeSynth tracks the peak number of concurrent Synthesize calls.
type gaugeSynth struct {
	mu      sync.Mutex
	current int
	peak    int
	inner   tts.Synthesizer
}

func (g *gaugeSynth) Synthesize(ctx context.Context, text, voice, outputPath string) error {
	g.mu.Lock()
	g.current++
	if g.current > g.peak {
		g.peak = g.current
	}
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.current--
		g.mu.Unlock()
	}()
	return g.inner.Synthesize(ctx, text, voice, outputPath)
}

func TestRun_ConcurrencyNeverExceedsLimit(t *testing.T) {
	const limit = 3
	gauge := &gaugeSynth{inner: &tts.MockSynthesizer{
		Delay: func(string) time.Duration { return 20 * time.Millisecond },
	}}
	texts := make([]string, 12)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d", i)
	}
	o, reg := newTestOrchestrator(t, gauge, limit, nil)
	defer reg.Cleanup(zerolog.Nop())

	o.Run(context.Background(), NewChunks(texts), "test-voice")
	if gauge.peak > limit {
		t.Errorf("Expected at most %d concurrent calls, observed %d", limit, gauge.peak)
	}
	if gauge.peak < 2 {
		t.Errorf("Expected real parallelism, observed peak %d", gauge.peak)
	}
}

func TestRun_WhitespaceChunkTrivialSuccess(t *testing.T) {
	var calls atomic.Int32
	synth := &tts.MockSynthesizer{
		Fail: func(string) error { calls.Add(1); return nil },
	}
	o, reg := newTestOrchestrator(t, synth, 2, nil)
	defer reg.Cleanup(zerolog.Nop())

	results := o.Run(context.Background(), makeChunks("hello", "   \t  "), "test-voice")
	if calls.Load() != 1 {
		t.Errorf("Expected 1 synthesis call, got %d", calls.Load())
	}
	if !results[1].Trivial() {
		t.Errorf("Expected whitespace chunk to be a trivial success, got %+v", results[1])
	}
	if results[1].Duration != 0 {
		t.Errorf("Expected no duration for a trivial result, got %v", results[1].Duration)
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	cause := errors.New("synthesis exploded")
	synth := &tts.MockSynthesizer{
		Fail: func(text string) error {
			if text == "bad" {
				return cause
			}
			return nil
		},
	}
	o, reg := newTestOrchestrator(t, synth, 3, nil)
	defer reg.Cleanup(zerolog.Nop())

	results := o.Run(context.Background(), makeChunks("good one", "bad", "good two"), "test-voice")
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("Expected healthy chunks to succeed, got %v and %v", results[0].Err, results[2].Err)
	}

	var chunkErr *ChunkError
	if !errors.As(results[1].Err, &chunkErr) {
		t.Fatalf("Expected a ChunkError, got %v", results[1].Err)
	}
	if chunkErr.Index != 1 || chunkErr.TextLen != len("bad") {
		t.Errorf("Expected chunk 1 with text length 3, got index %d length %d", chunkErr.Index, chunkErr.TextLen)
	}
	if !errors.Is(results[1].Err, cause) {
		t.Errorf("Expected wrapped cause to be reachable, got %v", results[1].Err)
	}
}

func TestRun_EmptyArtifactRejected(t *testing.T) {
	synth := &tts.MockSynthesizer{Payload: []byte{}}
	o, reg := newTestOrchestrator(t, synth, 1, nil)
	defer reg.Cleanup(zerolog.Nop())

	results := o.Run(context.Background(), makeChunks("hello"), "test-voice")
	if !errors.Is(results[0].Err, ErrArtifactInvalid) {
		t.Errorf("Expected ErrArtifactInvalid for an empty artifact, got %v", results[0].Err)
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	synth := &tts.MockSynthesizer{}
	o, reg := newTestOrchestrator(t, synth, 2, nil)
	defer reg.Cleanup(zerolog.Nop())

	results := o.Run(ctx, makeChunks("one", "two", "three"), "test-voice")
	for i, r := range results {
		if !errors.Is(r.Err, ErrCancelled) {
			t.Errorf("Expected chunk %d to be cancelled, got %v", i, r.Err)
		}
	}
}

// cancellingSynth cancels the run as soon as the first call starts, then
// keeps working; the in-flight call must still complete.
type cancellingSynth struct {
	cancel context.CancelFunc
	once   sync.Once
	inner  tts.Synthesizer
}

func (c *cancellingSynth) Synthesize(ctx context.Context, text, voice, outputPath string) error {
	c.once.Do(c.cancel)
	time.Sleep(20 * time.Millisecond)
	return c.inner.Synthesize(ctx, text, voice, outputPath)
}

func TestRun_InFlightCallSurvivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	synth := &cancellingSynth{cancel: cancel, inner: &tts.MockSynthesizer{}}
	o, reg := newTestOrchestrator(t, synth, 1, nil)
	defer reg.Cleanup(zerolog.Nop())

	results := o.Run(ctx, makeChunks("first", "second"), "test-voice")

	var completed, cancelled int
	for _, r := range results {
		switch {
		case r.Err == nil && r.ArtifactPath != "":
			completed++
		case errors.Is(r.Err, ErrCancelled):
			cancelled++
		default:
			t.Errorf("Unexpected result: %+v", r)
		}
	}
	if completed != 1 || cancelled != 1 {
		t.Errorf("Expected 1 completed and 1 cancelled, got %d and %d", completed, cancelled)
	}
}

func TestRun_ProgressEventsMonotonic(t *testing.T) {
	var mu sync.Mutex
	var snaps []Progress
	emit := func(e Event) {
		if e.Kind != EventChunkProgress {
			return
		}
		mu.Lock()
		snaps = append(snaps, e.Progress)
		mu.Unlock()
	}

	synth := &tts.MockSynthesizer{
		Delay: func(string) time.Duration { return time.Millisecond },
	}
	o, reg := newTestOrchestrator(t, synth, 4, emit)
	defer reg.Cleanup(zerolog.Nop())

	o.Run(context.Background(), makeChunks("a a", "b b", "c c", "d d", "e e"), "test-voice")

	if len(snaps) != 5 {
		t.Fatalf("Expected 5 progress events, got %d", len(snaps))
	}
	for i, s := range snaps {
		if s.Completed != i+1 {
			t.Errorf("Expected event %d to report %d completed, got %d", i, i+1, s.Completed)
		}
	}
	if snaps[4].Percent != 100 {
		t.Errorf("Expected final snapshot at 100%%, got %v", snaps[4].Percent)
	}
}

func TestRun_ArtifactsRegisteredForCleanup(t *testing.T) {
	synth := &tts.MockSynthesizer{}
	o, reg := newTestOrchestrator(t, synth, 2, nil)

	results := o.Run(context.Background(), makeChunks("one", "two"), "test-voice")
	if got := len(reg.Paths()); got != 2 {
		t.Fatalf("Expected 2 registered artifacts, got %d", got)
	}

	removed, leaked := reg.Cleanup(zerolog.Nop())
	if removed != 2 || leaked != 0 {
		t.Errorf("Expected 2 removed and 0 leaked, got %d and %d", removed, leaked)
	}
	_ = results
}
