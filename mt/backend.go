package mt

import (
	"context"
	"strings"
)

// Pair identifies a source-target language combination. Keys are always
// lower-cased so that case variants of the same pair share one cache entry.
type Pair struct {
	Source string
	Target string
}

// NewPair normalizes the language codes into a cache key.
func NewPair(source, target string) Pair {
	return Pair{
		Source: strings.ToLower(strings.TrimSpace(source)),
		Target: strings.ToLower(strings.TrimSpace(target)),
	}
}

func (p Pair) String() string {
	return p.Source + "-" + p.Target
}

// Backend performs translation inference for a single provisioned language
// pair. Implementations are expected to be cheap to call once provisioned.
type Backend interface {
	// Translate converts text from the pair's source language to its target
	// language.
	Translate(ctx context.Context, text string) (string, error)
}

// Provider provisions translation backends per language pair. Provisioning is
// the expensive one-time step (model download/load); the Engine caches the
// returned handles so that cost is paid once per pair.
type Provider interface {
	// Name identifies the provider in logs and status reports.
	Name() string

	// Provision loads a backend for the given language pair. The context can
	// be used to cancel the load.
	Provision(ctx context.Context, sourceLang, targetLang string) (Backend, error)
}
