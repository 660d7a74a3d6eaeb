// Package tts defines the speech synthesis stage consumed by the pipeline.
package tts

import "context"

// Synthesizer converts text into audio bytes. Implementations wrap external
// synthesis services and must reject empty input text.
type Synthesizer interface {
	// Synthesize renders text as speech in the given language and returns the
	// encoded audio bytes.
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)

	// Status reports whether the synthesizer is reachable and ready.
	Status() Status
}

// Status describes a synthesizer for status reporting.
type Status struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint,omitempty"`
	Ready    bool   `json:"ready"`
	Message  string `json:"message,omitempty"`
}
