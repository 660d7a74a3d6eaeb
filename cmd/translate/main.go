package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/alekhya6767/Avatar-Talk/asr"
	"github.com/alekhya6767/Avatar-Talk/config"
	"github.com/alekhya6767/Avatar-Talk/media"
	"github.com/alekhya6767/Avatar-Talk/mt"
	"github.com/alekhya6767/Avatar-Talk/pipeline"
	"github.com/alekhya6767/Avatar-Talk/tts"
)

func main() {
	var (
		inputPath        = flag.String("input", "", "Input audio file")
		outputPath       = flag.String("output", "", "Output audio file (default: <input>.<lang>.wav)")
		targetLang       = flag.String("target-lang", "es", "Target language code")
		saveIntermediate = flag.Bool("save-intermediate", true, "Write recognized and translated text beside the output")
		showStatus       = flag.Bool("status", false, "Print backend status and exit")
		configFile       = flag.String("config", "", "Path to YAML config file")
		envFile          = flag.String("env", "", "Path to .env file")
	)
	flag.Parse()

	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		logger.Fatalw("load config", "error", err)
	}

	recognizer := asr.NewWhisperRecognizerWithEndpoint(cfg.ASR.Endpoint)
	synthesizer := tts.NewPiperSynthesizerWithEndpoint(cfg.TTS.Endpoint)

	primary := mt.NewMarianProviderWithEndpoint(cfg.MT.PrimaryEndpoint)
	var fallback mt.Provider
	if cfg.MT.FallbackEndpoint != "" {
		fallback = mt.NewLibreProviderWithEndpoint(cfg.MT.FallbackEndpoint)
	}
	engine := mt.NewEngine(primary, fallback, logger)

	if *showStatus {
		printStatus(recognizer, engine, synthesizer)
		return
	}

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: translate -input <audio file> [-output <file>] [-target-lang <code>]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	out := *outputPath
	if out == "" {
		out = defaultOutputPath(*inputPath, *targetLang)
	}

	transcoder := media.NewTranscoder(cfg.Media.FFmpegPath, cfg.Media.SampleRate, logger)
	pipe := pipeline.New(recognizer, engine, synthesizer, pipeline.Options{
		Transcoder: transcoder,
		SourceLang: cfg.Pipeline.SourceLang,
		Logger:     logger,
	})

	result, err := pipe.Run(context.Background(), pipeline.Request{
		InputPath:        *inputPath,
		OutputPath:       out,
		TargetLang:       *targetLang,
		SaveIntermediate: *saveIntermediate,
	})

	for stage, seconds := range result.Timings.Seconds() {
		fmt.Printf("%-6s %.2fs\n", stage, seconds)
	}
	if err != nil {
		logger.Fatalw("translation failed", "input", *inputPath, "error", err)
	}

	fmt.Printf("Recognized: %s\n", result.SourceText)
	fmt.Printf("Translated: %s\n", result.TranslatedText)
	fmt.Printf("Output written to %s\n", result.OutputFile)
}

func printStatus(recognizer asr.Recognizer, engine *mt.Engine, synthesizer tts.Synthesizer) {
	status := map[string]any{
		"recognizer":  recognizer.Status(),
		"translator":  engine.Status(),
		"synthesizer": synthesizer.Status(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(status)
}

func defaultOutputPath(inputPath, targetLang string) string {
	ext := ".wav"
	base := inputPath
	if i := strings.LastIndex(inputPath, "."); i > 0 {
		base = inputPath[:i]
	}
	return base + "." + targetLang + ext
}
