package mt

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// StubProviderConfig configures the stub provider behavior.
type StubProviderConfig struct {
	// Name reported by the provider. Defaults to "stub".
	Name string
	// Translations maps input text to output text per pair string key
	// ("en-es"). Missing entries fall through to the Transform func.
	Translations map[string]map[string]string
	// Transform generates output text when no fixed translation exists.
	// If nil, the backend echoes "[target] input".
	Transform func(text, sourceLang, targetLang string) string
	// ProvisionErr, when set, makes every Provision call fail.
	ProvisionErr error
	// TranslateErr, when set, makes every Translate call fail.
	TranslateErr error
	// ProvisionDelay lets tests hold provisioning open to exercise the
	// single-flight path. The channel is received from once per call.
	ProvisionDelay chan struct{}
}

// StubProvider is a deterministic in-memory Provider for tests and local
// development. It counts provisioning and translation calls so tests can
// assert the engine's caching behavior.
type StubProvider struct {
	config StubProviderConfig

	provisionCalls atomic.Int64
	translateCalls atomic.Int64

	mu    sync.Mutex
	pairs []Pair
}

// NewStubProvider creates a stub provider with the given config.
func NewStubProvider(config StubProviderConfig) *StubProvider {
	if config.Name == "" {
		config.Name = "stub"
	}
	return &StubProvider{config: config}
}

func (s *StubProvider) Name() string { return s.config.Name }

// Provision records the call and returns a backend bound to the pair.
func (s *StubProvider) Provision(ctx context.Context, sourceLang, targetLang string) (Backend, error) {
	s.provisionCalls.Add(1)

	if s.config.ProvisionDelay != nil {
		select {
		case <-s.config.ProvisionDelay:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.config.ProvisionErr != nil {
		return nil, s.config.ProvisionErr
	}

	pair := Pair{Source: sourceLang, Target: targetLang}
	s.mu.Lock()
	s.pairs = append(s.pairs, pair)
	s.mu.Unlock()

	return &stubBackend{provider: s, pair: pair}, nil
}

// ProvisionCalls returns how many times Provision was invoked.
func (s *StubProvider) ProvisionCalls() int64 { return s.provisionCalls.Load() }

// TranslateCalls returns how many times any provisioned backend translated.
func (s *StubProvider) TranslateCalls() int64 { return s.translateCalls.Load() }

// ProvisionedPairs returns the pairs provisioned so far.
func (s *StubProvider) ProvisionedPairs() []Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Pair(nil), s.pairs...)
}

type stubBackend struct {
	provider *StubProvider
	pair     Pair
}

func (b *stubBackend) Translate(ctx context.Context, text string) (string, error) {
	b.provider.translateCalls.Add(1)

	if err := b.provider.config.TranslateErr; err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if fixed, ok := b.provider.config.Translations[b.pair.String()]; ok {
		if out, ok := fixed[text]; ok {
			return out, nil
		}
	}
	if b.provider.config.Transform != nil {
		return b.provider.config.Transform(text, b.pair.Source, b.pair.Target), nil
	}
	return "[" + b.pair.Target + "] " + text, nil
}

// ErrStubUnavailable is a convenience error for failure-path tests.
var ErrStubUnavailable = errors.New("stub backend unavailable")
