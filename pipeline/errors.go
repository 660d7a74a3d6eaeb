package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoSpeech means recognition produced empty text. The pipeline aborts
// before translation or synthesis; callers should treat it as user-facing and
// non-retryable.
var ErrNoSpeech = errors.New("no speech detected in input audio")

// Error attributes a pipeline failure to the stage that caused it.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
