package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alekhya6767/Avatar-Talk/pipeline"
)

// Runner executes one translation for a chunk. *pipeline.Pipeline satisfies
// it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Recorder persists completed chunk results. Implementations must tolerate
// being called after the owning session is gone.
type Recorder interface {
	RecordChunk(ctx context.Context, sessionID string, seq uint64, result pipeline.Result) error
}

// Stats receives session and chunk lifecycle counts.
type Stats interface {
	SessionOpened()
	SessionClosed()
	ChunkProcessed(success bool)
}

// Options configures a Manager.
type Options struct {
	// WorkDir is where per-session chunk files live. Defaults to the OS temp
	// directory.
	WorkDir string
	// DefaultTargetLang is used when start_streaming carries no language.
	// Defaults to "es".
	DefaultTargetLang string
	// EventBuffer sizes each session's event channel.
	EventBuffer int
	// TaskBuffer sizes each session's chunk queue.
	TaskBuffer int
	// Recorder, when set, persists chunk results.
	Recorder Recorder
	// Stats, when set, receives lifecycle counts.
	Stats Stats
	// Logger defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// Manager owns the set of active streaming sessions. Sessions are fully
// independent: each has its own serial worker, so chunks within a session are
// processed and delivered in arrival order while separate sessions run in
// parallel.
type Manager struct {
	runner     Runner
	opts       Options
	log        *zap.SugaredLogger
	mu         sync.RWMutex
	sessions   map[string]*Session
	workersWG  sync.WaitGroup
	shutdownMu sync.Mutex
	shutdown   bool
}

// NewManager creates a session manager dispatching chunks to runner.
func NewManager(runner Runner, opts Options) *Manager {
	if opts.WorkDir == "" {
		opts.WorkDir = filepath.Join(os.TempDir(), "avatar-talk")
	}
	if opts.DefaultTargetLang == "" {
		opts.DefaultTargetLang = "es"
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	if opts.TaskBuffer <= 0 {
		opts.TaskBuffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Manager{
		runner:   runner,
		opts:     opts,
		log:      opts.Logger,
		sessions: make(map[string]*Session),
	}
}

// Connect creates a session, starts its worker, and emits the connected
// event.
func (m *Manager) Connect() (*Session, error) {
	s := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		state:      StateCreated,
		targetLang: m.opts.DefaultTargetLang,
		tasks:      make(chan chunkTask, m.opts.TaskBuffer),
		events:     make(chan Event, m.opts.EventBuffer),
		closed:     make(chan struct{}),
	}
	s.workDir = filepath.Join(m.opts.WorkDir, s.ID)
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session work dir: %w", err)
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.workersWG.Add(1)
	go m.worker(s)

	if m.opts.Stats != nil {
		m.opts.Stats.SessionOpened()
	}
	m.log.Infow("session connected", "session_id", s.ID)
	s.emit(Event{Type: EventConnected, SessionID: s.ID})
	return s, nil
}

// StartStreaming transitions the session into STREAMING and records its
// target language.
func (m *Manager) StartStreaming(sessionID, targetLang string) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if targetLang != "" {
		s.targetLang = targetLang
	}
	s.state = StateStreaming
	lang := s.targetLang
	s.mu.Unlock()

	m.log.Infow("streaming started", "session_id", sessionID, "target_language", lang)
	s.emit(Event{Type: EventStreamingStarted, SessionID: sessionID, TargetLanguage: lang})
	return nil
}

// AudioChunk records the chunk, acknowledges it, and enqueues translation
// work using the session's current target language. The acknowledgment is
// emitted before the task is queued so clients always see chunk_received
// ahead of that chunk's result.
func (m *Manager) AudioChunk(sessionID string, seq uint64, audio []byte, duration float64) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != StateStreaming {
		s.mu.Unlock()
		return ErrNotStreaming
	}
	s.chunks = append(s.chunks, ChunkInfo{Seq: seq, Duration: duration, ReceivedAt: time.Now()})
	s.totalDuration += duration
	total := s.totalDuration
	lang := s.targetLang
	count := len(s.chunks)
	s.mu.Unlock()

	inputPath := filepath.Join(s.workDir, fmt.Sprintf("chunk_%d.bin", seq))
	if err := os.WriteFile(inputPath, audio, 0o644); err != nil {
		return fmt.Errorf("write chunk audio: %w", err)
	}

	m.log.Infow("audio chunk received", "session_id", sessionID,
		"seq", seq, "duration", duration, "total_chunks", count)
	s.emit(Event{
		Type:          EventChunkReceived,
		SessionID:     sessionID,
		Seq:           seq,
		Duration:      duration,
		TotalDuration: total,
	})

	task := chunkTask{
		seq:        seq,
		targetLang: lang,
		inputPath:  inputPath,
		outputPath: filepath.Join(s.workDir, fmt.Sprintf("chunk_%d.mp3", seq)),
	}
	select {
	case s.tasks <- task:
		return nil
	case <-s.closed:
		return ErrSessionNotFound
	}
}

// StopStreaming stops chunk admission and emits the session summary.
// In-flight chunks still complete and deliver their results.
func (m *Manager) StopStreaming(sessionID string) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state = StateStopped
	total := s.totalDuration
	count := len(s.chunks)
	s.mu.Unlock()

	m.log.Infow("streaming stopped", "session_id", sessionID,
		"total_chunks", count, "total_duration", total)
	s.emit(Event{
		Type:          EventStreamingStopped,
		SessionID:     sessionID,
		TotalChunks:   count,
		TotalDuration: total,
	})
	return nil
}

// Disconnect removes the session. The in-flight chunk, if any, completes its
// work but its delivery becomes a no-op; queued chunks are discarded.
func (m *Manager) Disconnect(sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	snap := s.Snapshot()
	m.log.Infow("session disconnected", "session_id", sessionID,
		"total_chunks", snap.TotalChunks, "total_duration", snap.TotalDuration)

	close(s.closed)
	if m.opts.Stats != nil {
		m.opts.Stats.SessionClosed()
	}
	return nil
}

// Session returns the session's current snapshot.
func (m *Manager) Session(sessionID string) (Snapshot, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// ActiveSessions returns how many sessions are currently connected.
func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close disconnects every session and waits for the workers to finish their
// in-flight chunks.
func (m *Manager) Close() {
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return
	}
	m.shutdown = true
	m.shutdownMu.Unlock()

	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.Disconnect(id)
	}
	m.workersWG.Wait()
}

func (m *Manager) lookup(sessionID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// worker drains the session's chunk queue one task at a time, which is what
// guarantees in-order result delivery within a session.
func (m *Manager) worker(s *Session) {
	defer m.workersWG.Done()
	defer os.RemoveAll(s.workDir)

	for {
		select {
		case <-s.closed:
			return
		default:
		}

		select {
		case <-s.closed:
			return
		case task := <-s.tasks:
			m.process(s, task)
		}
	}
}

// process runs the pipeline for one chunk and delivers the outcome. Errors
// stay scoped to the chunk: the session keeps accepting and processing later
// chunks.
func (m *Manager) process(s *Session, task chunkTask) {
	defer os.Remove(task.inputPath)
	defer os.Remove(task.outputPath)

	result, err := m.runner.Run(context.Background(), pipeline.Request{
		InputPath:  task.inputPath,
		OutputPath: task.outputPath,
		TargetLang: task.targetLang,
	})

	if m.opts.Recorder != nil {
		if recErr := m.opts.Recorder.RecordChunk(context.Background(), s.ID, task.seq, result); recErr != nil {
			m.log.Warnw("failed to record chunk result",
				"session_id", s.ID, "seq", task.seq, "error", recErr)
		}
	}

	if err != nil {
		if m.opts.Stats != nil {
			m.opts.Stats.ChunkProcessed(false)
		}
		m.log.Errorw("chunk translation failed",
			"session_id", s.ID, "seq", task.seq, "error", err)
		s.emit(Event{
			Type:      EventTranslationError,
			SessionID: s.ID,
			Seq:       task.seq,
			Message:   err.Error(),
		})
		return
	}

	audio, readErr := os.ReadFile(task.outputPath)
	if readErr != nil {
		if m.opts.Stats != nil {
			m.opts.Stats.ChunkProcessed(false)
		}
		s.emit(Event{
			Type:      EventTranslationError,
			SessionID: s.ID,
			Seq:       task.seq,
			Message:   fmt.Sprintf("read translated audio: %v", readErr),
		})
		return
	}

	if m.opts.Stats != nil {
		m.opts.Stats.ChunkProcessed(true)
	}
	s.emit(Event{
		Type:             EventTranslationResult,
		SessionID:        s.ID,
		Seq:              task.seq,
		TargetLanguage:   task.targetLang,
		SourceText:       result.SourceText,
		TranslatedText:   result.TranslatedText,
		Audio:            base64.StdEncoding.EncodeToString(audio),
		Timings:          result.Timings.Seconds(),
		TranscodeApplied: result.TranscodeApplied,
	})
}
