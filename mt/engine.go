package mt

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Engine translates text with a primary backend per language pair, falling
// back to a secondary backend when the primary fails. Provisioned primary
// handles are cached for the process lifetime; the fallback readiness probe
// runs once per pair and its outcome (including failure) is cached too, so a
// persistently unavailable pair is not probed on every request.
type Engine struct {
	primary  Provider
	fallback Provider
	log      *zap.SugaredLogger

	group singleflight.Group

	mu        sync.RWMutex
	backends  map[Pair]Backend
	fallbacks map[Pair]*fallbackProbe
}

// fallbackProbe records the one-time fallback provisioning outcome for a pair.
type fallbackProbe struct {
	backend Backend
	err     error
}

// NewEngine creates a translation engine. fallback may be nil, in which case
// any primary failure surfaces immediately as an UnavailableError.
func NewEngine(primary, fallback Provider, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		primary:   primary,
		fallback:  fallback,
		log:       logger,
		backends:  make(map[Pair]Backend),
		fallbacks: make(map[Pair]*fallbackProbe),
	}
}

// Translate converts text between the given languages. The primary backend is
// tried first; on any primary failure (provisioning or inference) the
// fallback is tried once. If both fail the returned error is an
// *UnavailableError carrying both causes.
func (e *Engine) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	pair := NewPair(sourceLang, targetLang)

	var primaryErr error
	backend, err := e.primaryFor(ctx, pair)
	if err != nil {
		primaryErr = err
	} else {
		out, err := backend.Translate(ctx, text)
		if err == nil {
			return out, nil
		}
		primaryErr = err
	}

	e.log.Warnw("primary translation failed, trying fallback",
		"pair", pair.String(), "provider", e.primary.Name(), "error", primaryErr)

	fb, err := e.fallbackFor(ctx, pair)
	if err != nil {
		return "", &UnavailableError{Pair: pair, Primary: primaryErr, Fallback: err}
	}

	out, err := fb.Translate(ctx, text)
	if err != nil {
		return "", &UnavailableError{Pair: pair, Primary: primaryErr, Fallback: err}
	}
	return out, nil
}

// primaryFor returns the cached primary backend for pair, provisioning it on
// first use. Concurrent first uses of the same pair are collapsed into a
// single provisioning attempt. A failed attempt is not cached; the next call
// retries.
func (e *Engine) primaryFor(ctx context.Context, pair Pair) (Backend, error) {
	e.mu.RLock()
	backend, ok := e.backends[pair]
	e.mu.RUnlock()
	if ok {
		return backend, nil
	}

	v, err, _ := e.group.Do("primary/"+pair.String(), func() (any, error) {
		e.mu.RLock()
		backend, ok := e.backends[pair]
		e.mu.RUnlock()
		if ok {
			return backend, nil
		}

		e.log.Infow("provisioning primary backend",
			"provider", e.primary.Name(), "pair", pair.String())
		backend, err := e.primary.Provision(ctx, pair.Source, pair.Target)
		if err != nil {
			return nil, fmt.Errorf("provision %s for %s: %w", e.primary.Name(), pair, err)
		}

		e.mu.Lock()
		e.backends[pair] = backend
		e.mu.Unlock()
		return backend, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Backend), nil
}

// fallbackFor returns the fallback backend for pair. The provisioning probe
// runs at most once per pair; both success and permanent unavailability are
// remembered.
func (e *Engine) fallbackFor(ctx context.Context, pair Pair) (Backend, error) {
	if e.fallback == nil {
		return nil, ErrNoFallback
	}

	e.mu.RLock()
	probe, ok := e.fallbacks[pair]
	e.mu.RUnlock()
	if ok {
		return probe.backend, probe.err
	}

	v, _, _ := e.group.Do("fallback/"+pair.String(), func() (any, error) {
		e.mu.RLock()
		probe, ok := e.fallbacks[pair]
		e.mu.RUnlock()
		if ok {
			return probe, nil
		}

		e.log.Infow("provisioning fallback backend",
			"provider", e.fallback.Name(), "pair", pair.String())
		backend, err := e.fallback.Provision(ctx, pair.Source, pair.Target)
		if err != nil {
			err = fmt.Errorf("provision %s for %s: %w", e.fallback.Name(), pair, err)
			e.log.Warnw("fallback backend unavailable", "pair", pair.String(), "error", err)
		}

		probe = &fallbackProbe{backend: backend, err: err}
		e.mu.Lock()
		e.fallbacks[pair] = probe
		e.mu.Unlock()
		return probe, nil
	})

	probe = v.(*fallbackProbe)
	return probe.backend, probe.err
}

// Status describes the engine's cache state for status reporting.
type Status struct {
	PrimaryProvider  string          `json:"primaryProvider"`
	FallbackProvider string          `json:"fallbackProvider,omitempty"`
	CachedPairs      []string        `json:"cachedPairs"`
	FallbackReady    map[string]bool `json:"fallbackReady"`
}

// Status returns a snapshot of provisioned pairs and fallback readiness.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := Status{
		PrimaryProvider: e.primary.Name(),
		CachedPairs:     make([]string, 0, len(e.backends)),
		FallbackReady:   make(map[string]bool, len(e.fallbacks)),
	}
	if e.fallback != nil {
		st.FallbackProvider = e.fallback.Name()
	}
	for pair := range e.backends {
		st.CachedPairs = append(st.CachedPairs, pair.String())
	}
	for pair, probe := range e.fallbacks {
		st.FallbackReady[pair.String()] = probe.err == nil
	}
	return st
}
