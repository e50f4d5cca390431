package tts

import (
	"context"
	"strings"
)

// Voice describes one entry of the remote voice catalog
type Voice struct {
	ShortName      string   `json:"ShortName"`
	FriendlyName   string   `json:"FriendlyName"`
	Gender         string   `json:"Gender"`
	Locale         string   `json:"Locale"`
	VoicePersonalities []string `json:"VoicePersonalities,omitempty"`
}

// DisplayName returns the catalog entry formatted for listing,
// e.g. "en-US-AriaNeural (Female, en-US)"
func (v Voice) DisplayName() string {
	gender := v.Gender
	if gender == "" {
		gender = "N/A"
	}
	locale := v.Locale
	if locale == "" {
		locale = "N/A"
	}
	return v.ShortName + " (" + gender + ", " + locale + ")"
}

// Multilingual reports whether the voice advertises multilingual support
func (v Voice) Multilingual() bool {
	name := v.FriendlyName
	if name == "" {
		name = v.ShortName
	}
	return strings.Contains(strings.ToLower(name), "multilingual")
}

// Synthesizer defines the interface for a remote text-to-speech client.
// Implementations write the synthesized audio to outputPath and return an
// error when the remote call fails. One call is one attempt; callers add
// no retry on top.
type Synthesizer interface {
	// Synthesize converts text to audio using the given voice, writing the
	// result to outputPath
	Synthesize(ctx context.Context, text, voice, outputPath string) error
}
