package tts

import (
	"context"
	"strings"
	"sync/atomic"
)

// StubSynthesizerConfig configures the stub synthesizer behavior.
type StubSynthesizerConfig struct {
	// Audio is the byte payload returned for every call. If nil, the audio is
	// "audio(<lang>):<text>" so tests can assert what was rendered.
	Audio []byte
	// Err, when set, makes every Synthesize call fail.
	Err error
}

// StubSynthesizer is a deterministic in-memory Synthesizer for tests. It
// counts calls so tests can assert the pipeline's early-exit behavior.
type StubSynthesizer struct {
	config StubSynthesizerConfig
	calls  atomic.Int64
}

// NewStubSynthesizer creates a stub synthesizer with the given config.
func NewStubSynthesizer(config StubSynthesizerConfig) *StubSynthesizer {
	return &StubSynthesizer{config: config}
}

// Synthesize returns the configured audio payload.
func (s *StubSynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	s.calls.Add(1)
	if s.config.Err != nil {
		return nil, s.config.Err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if s.config.Audio != nil {
		return s.config.Audio, nil
	}
	return []byte("audio(" + lang + "):" + text), nil
}

// Calls returns how many times Synthesize was invoked.
func (s *StubSynthesizer) Calls() int64 { return s.calls.Load() }

// Status reports the stub as ready.
func (s *StubSynthesizer) Status() Status {
	return Status{Name: "stub", Ready: true, Message: "stub synthesizer ready"}
}
