// Package session manages streaming translation sessions: lifecycle, ordered
// chunk processing, and result delivery back to the owning client.
package session

import (
	"errors"
	"sync"
	"time"
)

// State is a session's lifecycle phase.
type State string

const (
	// StateCreated means the client connected but has not started streaming.
	StateCreated State = "created"
	// StateStreaming means the session accepts audio chunks.
	StateStreaming State = "streaming"
	// StateStopped means no new chunks are accepted; in-flight work still
	// completes and delivers.
	StateStopped State = "stopped"
)

// Session event types, mirroring the wire protocol.
const (
	EventConnected         = "connected"
	EventStreamingStarted  = "streaming_started"
	EventChunkReceived     = "chunk_received"
	EventTranslationResult = "translation_result"
	EventTranslationError  = "translation_error"
	EventStreamingStopped  = "streaming_stopped"
)

// Errors reported to callers. Unknown-session events always surface as
// ErrSessionNotFound; they are never silently dropped.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotStreaming    = errors.New("session is not accepting chunks")
)

// Event is one message delivered to a session's client.
type Event struct {
	Type             string             `json:"event"`
	SessionID        string             `json:"session_id,omitempty"`
	TargetLanguage   string             `json:"target_language,omitempty"`
	Seq              uint64             `json:"seq,omitempty"`
	Duration         float64            `json:"duration,omitempty"`
	TotalChunks      int                `json:"total_chunks,omitempty"`
	TotalDuration    float64            `json:"total_duration,omitempty"`
	SourceText       string             `json:"english_text,omitempty"`
	TranslatedText   string             `json:"translated_text,omitempty"`
	Audio            string             `json:"translated_audio,omitempty"`
	Timings          map[string]float64 `json:"timings,omitempty"`
	TranscodeApplied bool               `json:"transcode_applied,omitempty"`
	Message          string             `json:"message,omitempty"`
}

// ChunkInfo is the metadata log entry for one received chunk.
type ChunkInfo struct {
	Seq        uint64
	Duration   float64
	ReceivedAt time.Time
}

// Session is one streaming client connection. It is owned exclusively by the
// Manager; stage adapters only ever see a single chunk's data.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu            sync.Mutex
	state         State
	targetLang    string
	chunks        []ChunkInfo
	totalDuration float64

	workDir string
	tasks   chan chunkTask
	events  chan Event
	closed  chan struct{}
}

// chunkTask is one unit of work for the session's serial worker.
type chunkTask struct {
	seq        uint64
	targetLang string
	inputPath  string
	outputPath string
}

// Events returns the channel the client reads results and acknowledgments
// from. The channel is never closed; readers exit via Done. Closing it would
// race with manager calls that may still be emitting on another goroutine.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed when the session is removed. After that no further events
// are delivered.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Snapshot is a point-in-time copy of the session's mutable state.
type Snapshot struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	State         State     `json:"state"`
	TargetLang    string    `json:"target_language"`
	TotalChunks   int       `json:"total_chunks"`
	TotalDuration float64   `json:"total_duration"`
}

// Snapshot returns a copy of the session's current state and counters.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:            s.ID,
		CreatedAt:     s.CreatedAt,
		State:         s.state,
		TargetLang:    s.targetLang,
		TotalChunks:   len(s.chunks),
		TotalDuration: s.totalDuration,
	}
}

// emit delivers an event to the session's client. Once the session is
// removed, delivery becomes a no-op so late-finishing work cannot fault.
func (s *Session) emit(ev Event) {
	select {
	case <-s.closed:
	case s.events <- ev:
	}
}
