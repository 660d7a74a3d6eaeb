package mt

import (
	"errors"
	"fmt"
)

// ErrNoFallback is returned by the engine when no fallback provider was
// configured and the primary path failed.
var ErrNoFallback = errors.New("no fallback provider configured")

// UnavailableError reports that neither the primary nor the fallback backend
// could translate for a language pair. Both underlying causes are kept for
// diagnostics.
type UnavailableError struct {
	Pair     Pair
	Primary  error
	Fallback error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("translation unavailable for %s: primary: %v, fallback: %v",
		e.Pair, e.Primary, e.Fallback)
}

// Unwrap exposes the underlying causes for errors.Is checks.
func (e *UnavailableError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}
