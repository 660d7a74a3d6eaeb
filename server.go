// Package avatartalk exposes the speech-to-speech translation service over
// HTTP and WebSocket.
package avatartalk

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alekhya6767/Avatar-Talk/asr"
	"github.com/alekhya6767/Avatar-Talk/metrics"
	"github.com/alekhya6767/Avatar-Talk/mt"
	"github.com/alekhya6767/Avatar-Talk/pipeline"
	"github.com/alekhya6767/Avatar-Talk/session"
	"github.com/alekhya6767/Avatar-Talk/store"
	"github.com/alekhya6767/Avatar-Talk/tts"
)

// Deps are the wired service components the server exposes.
type Deps struct {
	Pipeline    *pipeline.Pipeline
	Engine      *mt.Engine
	Recognizer  asr.Recognizer
	Synthesizer tts.Synthesizer
	Sessions    *session.Manager
	Store       *store.Store
	Metrics     *metrics.Metrics
	Logger      *zap.SugaredLogger
}

// Options tunes the HTTP listener.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

type Server struct {
	srv  *http.Server
	log  *zap.SugaredLogger
	deps Deps

	maxBodyBytes    int64
	shutdownTimeout time.Duration
}

func New(opts Options, deps Deps) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8000"
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 300 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 50 << 20
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}

	mux := http.NewServeMux()

	server := &Server{
		srv: &http.Server{
			Addr:         opts.Addr,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  60 * time.Second,
			Handler:      mux,
		},
		log:             deps.Logger,
		deps:            deps,
		maxBodyBytes:    opts.MaxBodyBytes,
		shutdownTimeout: opts.ShutdownTimeout,
	}

	mux.HandleFunc("/ws", server.handleWebSocket)
	mux.HandleFunc("/translate-audio", server.handleTranslateAudio)
	// Stateless per-chunk endpoint for clients that cannot hold a WebSocket
	// open; each chunk is a self-contained batch run.
	mux.HandleFunc("/translate-audio-chunk", server.handleTranslateAudio)
	mux.HandleFunc("/health", server.handleHealth)
	mux.HandleFunc("/status", server.handleStatus)
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics.Handler())
	}
	if deps.Store != nil {
		mux.HandleFunc("/history", server.handleHistory)
	}

	return server
}

// Handler returns the server's route table, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) Start() error {
	var wg sync.WaitGroup
	errChan := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.log.Infow("starting server", "addr", s.srv.Addr)
		errChan <- s.srv.ListenAndServe()
	}()

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	return nil
}

func (s *Server) Stop() error {
	s.log.Infow("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if s.deps.Sessions != nil {
		s.deps.Sessions.Close()
	}
	return s.srv.Shutdown(ctx)
}
