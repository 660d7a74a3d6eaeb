package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	avatartalk "github.com/alekhya6767/Avatar-Talk"
	"github.com/alekhya6767/Avatar-Talk/asr"
	"github.com/alekhya6767/Avatar-Talk/config"
	"github.com/alekhya6767/Avatar-Talk/media"
	"github.com/alekhya6767/Avatar-Talk/metrics"
	"github.com/alekhya6767/Avatar-Talk/mt"
	"github.com/alekhya6767/Avatar-Talk/pipeline"
	"github.com/alekhya6767/Avatar-Talk/session"
	"github.com/alekhya6767/Avatar-Talk/store"
	"github.com/alekhya6767/Avatar-Talk/tts"
)

func main() {
	var configFile = flag.String("config", "", "Path to YAML config file")
	var envFile = flag.String("env", "", "Path to .env file")
	flag.Parse()

	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		logger.Fatalw("load config", "error", err)
	}

	m := metrics.New()

	var st *store.Store
	if cfg.Store.Enabled {
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			logger.Fatalw("open store", "path", cfg.Store.Path, "error", err)
		}
		defer st.Close()
	}

	recognizer := asr.NewWhisperRecognizerWithEndpoint(cfg.ASR.Endpoint)
	synthesizer := tts.NewPiperSynthesizerWithEndpoint(cfg.TTS.Endpoint)

	primary := mt.NewMarianProviderWithEndpoint(cfg.MT.PrimaryEndpoint)
	var fallback mt.Provider
	if cfg.MT.FallbackEndpoint != "" {
		fallback = mt.NewLibreProviderWithEndpoint(cfg.MT.FallbackEndpoint)
	}
	engine := mt.NewEngine(primary, fallback, logger)

	transcoder := media.NewTranscoder(cfg.Media.FFmpegPath, cfg.Media.SampleRate, logger)

	pipe := pipeline.New(recognizer, engine, synthesizer, pipeline.Options{
		Transcoder: transcoder,
		SourceLang: cfg.Pipeline.SourceLang,
		Observer:   m,
		Logger:     logger,
	})

	var recorder session.Recorder
	if st != nil {
		recorder = st
	}
	manager := session.NewManager(pipe, session.Options{
		WorkDir:           cfg.Session.WorkDir,
		DefaultTargetLang: cfg.Session.DefaultTargetLang,
		EventBuffer:       cfg.Session.EventBuffer,
		TaskBuffer:        cfg.Session.TaskBuffer,
		Recorder:          recorder,
		Stats:             m,
		Logger:            logger,
	})

	s := avatartalk.New(avatartalk.Options{
		Addr:            cfg.Server.ListenAddr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxBodyBytes:    int64(cfg.Server.MaxBodyMB) << 20,
	}, avatartalk.Deps{
		Pipeline:    pipe,
		Engine:      engine,
		Recognizer:  recognizer,
		Synthesizer: synthesizer,
		Sessions:    manager,
		Store:       st,
		Metrics:     m,
		Logger:      logger,
	})

	go func() {
		if err := s.Start(); err != nil {
			logger.Fatalw("server failed to start", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	if err := s.Stop(); err != nil {
		logger.Errorw("error during server shutdown", "error", err)
	}
}
