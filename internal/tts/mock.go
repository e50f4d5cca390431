package tts

import (
	"context"
	"os"
	"time"
)

// MockSynthesizer is a Synthesizer for tests. It writes a fixed payload to
// the output path after an optional per-call delay, and can be made to fail
// for selected calls.
type MockSynthesizer struct {
	// Payload is written to the output file on success. Defaults to a short
	// non-empty placeholder when nil.
	Payload []byte

	// Delay invoked per call to determine how long synthesis takes.
	// May be nil for instant completion.
	Delay func(text string) time.Duration

	// Fail invoked per call; returning a non-nil error fails the synthesis
	// without writing anything. May be nil.
	Fail func(text string) error
}

// Synthesize implements Synthesizer
func (m *MockSynthesizer) Synthesize(ctx context.Context, text, voice, outputPath string) error {
	if m.Delay != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.Delay(text)):
		}
	}
	if m.Fail != nil {
		if err := m.Fail(text); err != nil {
			return err
		}
	}
	payload := m.Payload
	if payload == nil {
		payload = []byte("mock-audio")
	}
	return os.WriteFile(outputPath, payload, 0o644)
}
