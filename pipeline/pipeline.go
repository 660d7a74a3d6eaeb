// Package pipeline sequences the three translation stages: speech
// recognition, text translation, and speech synthesis.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alekhya6767/Avatar-Talk/asr"
	"github.com/alekhya6767/Avatar-Talk/media"
	"github.com/alekhya6767/Avatar-Talk/tts"
)

// Stage names used for timing keys and failure attribution.
const (
	StageASR   = "asr"
	StageMT    = "mt"
	StageTTS   = "tts"
	StageTotal = "total"
)

// Timings maps a stage name to its wall-clock duration.
type Timings map[string]time.Duration

// Seconds converts the timings to float seconds, the shape exposed on the
// wire.
func (t Timings) Seconds() map[string]float64 {
	out := make(map[string]float64, len(t))
	for stage, d := range t {
		out[stage] = d.Seconds()
	}
	return out
}

// Request describes one translation run, either a batch call or a single
// streaming chunk.
type Request struct {
	// InputPath is the audio file to translate.
	InputPath string
	// OutputPath is where the synthesized audio is written.
	OutputPath string
	// TargetLang is the language to translate into.
	TargetLang string
	// SaveIntermediate persists the recognized and translated text beside the
	// output as each stage completes.
	SaveIntermediate bool
}

// Result is the outcome of one pipeline run. Timings are populated even on
// failure, covering the stages that ran plus the total time until the failure
// point.
type Result struct {
	InputFile        string  `json:"input_file"`
	OutputFile       string  `json:"output_file"`
	SourceText       string  `json:"english_text"`
	TranslatedText   string  `json:"translated_text"`
	Timings          Timings `json:"-"`
	Success          bool    `json:"success"`
	Error            string  `json:"error,omitempty"`
	TranscodeApplied bool    `json:"transcode_applied"`
}

// Translator is the translation-engine contract the pipeline depends on.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Observer receives per-stage durations. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveStage(stage string, d time.Duration)
}

// Pipeline runs recognition, translation, and synthesis in order. It does not
// retry; the only recovery path is the translator's internal fallback.
type Pipeline struct {
	recognizer  asr.Recognizer
	translator  Translator
	synthesizer tts.Synthesizer
	transcoder  *media.Transcoder
	sourceLang  string
	observer    Observer
	log         *zap.SugaredLogger
}

// Options tunes optional pipeline collaborators.
type Options struct {
	// Transcoder normalizes input audio before recognition. Nil skips
	// normalization entirely.
	Transcoder *media.Transcoder
	// SourceLang is the recognizer's language. Defaults to "en".
	SourceLang string
	// Observer receives stage timings.
	Observer Observer
	// Logger for pipeline progress. Defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// New creates a pipeline over the three stage adapters.
func New(recognizer asr.Recognizer, translator Translator, synthesizer tts.Synthesizer, opts Options) *Pipeline {
	if opts.SourceLang == "" {
		opts.SourceLang = "en"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Pipeline{
		recognizer:  recognizer,
		translator:  translator,
		synthesizer: synthesizer,
		transcoder:  opts.Transcoder,
		sourceLang:  opts.SourceLang,
		observer:    opts.Observer,
		log:         opts.Logger,
	}
}

// SourceLang returns the configured recognition language.
func (p *Pipeline) SourceLang() string { return p.sourceLang }

// Run executes one translation. On failure the returned Result still carries
// the timings of every completed stage and a total up to the failure point,
// and the error is an *Error naming the failing stage.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	result := Result{
		InputFile:  req.InputPath,
		OutputFile: req.OutputPath,
		Timings:    Timings{},
	}

	fail := func(stage string, cause error) (Result, error) {
		result.Timings[StageTotal] = time.Since(start)
		result.Error = cause.Error()
		p.log.Errorw("pipeline failed", "stage", stage, "input", req.InputPath, "error", cause)
		return result, &Error{Stage: stage, Err: cause}
	}

	audioPath := req.InputPath
	if p.transcoder != nil {
		audioPath, result.TranscodeApplied = p.transcoder.Transcode(ctx, req.InputPath, normalizedPath(req.InputPath))
	}

	asrStart := time.Now()
	text, err := p.recognizer.Transcribe(ctx, audioPath, p.sourceLang)
	p.observeStage(&result, StageASR, time.Since(asrStart))
	if err != nil {
		return fail(StageASR, fmt.Errorf("recognition failed: %w", err))
	}
	if strings.TrimSpace(text) == "" {
		// Translating and synthesizing nothing would still produce an output
		// file; surface the condition instead.
		return fail(StageASR, ErrNoSpeech)
	}
	result.SourceText = text
	p.log.Infow("recognition complete", "input", req.InputPath,
		"duration", result.Timings[StageASR], "chars", len(text))

	if req.SaveIntermediate {
		if err := writeSideFile(req.OutputPath, p.sourceLang, text); err != nil {
			return fail(StageASR, err)
		}
	}

	mtStart := time.Now()
	translated, err := p.translator.Translate(ctx, text, p.sourceLang, req.TargetLang)
	p.observeStage(&result, StageMT, time.Since(mtStart))
	if err != nil {
		return fail(StageMT, err)
	}
	result.TranslatedText = translated
	p.log.Infow("translation complete", "target", req.TargetLang,
		"duration", result.Timings[StageMT])

	if req.SaveIntermediate {
		if err := writeSideFile(req.OutputPath, req.TargetLang, translated); err != nil {
			return fail(StageMT, err)
		}
	}

	ttsStart := time.Now()
	audio, err := p.synthesizer.Synthesize(ctx, translated, req.TargetLang)
	p.observeStage(&result, StageTTS, time.Since(ttsStart))
	if err != nil {
		return fail(StageTTS, fmt.Errorf("synthesis failed: %w", err))
	}
	if err := writeOutput(req.OutputPath, audio); err != nil {
		return fail(StageTTS, err)
	}

	result.Timings[StageTotal] = time.Since(start)
	result.Success = true
	if p.observer != nil {
		p.observer.ObserveStage(StageTotal, result.Timings[StageTotal])
	}
	p.log.Infow("pipeline complete", "input", req.InputPath, "output", req.OutputPath,
		"total", result.Timings[StageTotal])
	return result, nil
}

func (p *Pipeline) observeStage(result *Result, stage string, d time.Duration) {
	result.Timings[stage] = d
	if p.observer != nil {
		p.observer.ObserveStage(stage, d)
	}
}

// normalizedPath is where the transcoder writes its mono WAV rendition.
func normalizedPath(inputPath string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".16k.wav"
}

// writeSideFile persists stage text beside the output file, replacing the
// output extension with ".<lang>.txt". Written as soon as the stage
// completes so partial progress survives a later failure.
func writeSideFile(outputPath, lang, text string) error {
	path := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "." + lang + ".txt"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("save intermediate text: %w", err)
	}
	return nil
}

func writeOutput(outputPath string, audio []byte) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
		return fmt.Errorf("write output audio: %w", err)
	}
	return nil
}
