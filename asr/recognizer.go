// Package asr defines the speech recognition stage consumed by the pipeline.
package asr

import "context"

// Recognizer converts an audio file into transcribed text. Implementations
// wrap external inference services; a returned empty string means the service
// found no speech in the audio.
type Recognizer interface {
	// Transcribe converts the audio at path into text in the given source
	// language.
	Transcribe(ctx context.Context, audioPath, sourceLang string) (string, error)

	// Status reports whether the recognizer is reachable and ready.
	Status() Status
}

// Status describes a recognizer for status reporting.
type Status struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint,omitempty"`
	Ready    bool   `json:"ready"`
	Message  string `json:"message,omitempty"`
}
