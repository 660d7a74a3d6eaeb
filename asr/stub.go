package asr

import (
	"context"
	"path/filepath"
	"sync/atomic"
)

// StubRecognizerConfig configures the stub recognizer behavior.
type StubRecognizerConfig struct {
	// Transcripts maps audio file base names to predetermined text. Missing
	// entries return Default.
	Transcripts map[string]string
	// Default is returned for files not listed in Transcripts.
	Default string
	// Err, when set, makes every Transcribe call fail.
	Err error
}

// StubRecognizer is a deterministic in-memory Recognizer for tests. It counts
// calls so tests can assert the pipeline's early-exit behavior.
type StubRecognizer struct {
	config StubRecognizerConfig
	calls  atomic.Int64
}

// NewStubRecognizer creates a stub recognizer with the given config.
func NewStubRecognizer(config StubRecognizerConfig) *StubRecognizer {
	return &StubRecognizer{config: config}
}

// Transcribe returns the configured transcript for the file.
func (s *StubRecognizer) Transcribe(ctx context.Context, audioPath, sourceLang string) (string, error) {
	s.calls.Add(1)
	if s.config.Err != nil {
		return "", s.config.Err
	}
	if text, ok := s.config.Transcripts[filepath.Base(audioPath)]; ok {
		return text, nil
	}
	return s.config.Default, nil
}

// Calls returns how many times Transcribe was invoked.
func (s *StubRecognizer) Calls() int64 { return s.calls.Load() }

// Status reports the stub as ready.
func (s *StubRecognizer) Status() Status {
	return Status{Name: "stub", Ready: true, Message: "stub recognizer ready"}
}
