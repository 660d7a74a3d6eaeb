// Package media handles best-effort audio normalization in front of
// recognition. Transcoding depends on an external ffmpeg binary; when it is
// missing or fails the original audio passes through unmodified, trading
// recognition quality for availability.
package media

import (
	"context"
	"os/exec"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// Transcoder converts arbitrary audio containers into mono WAV at a fixed
// sample rate, which is what the recognizer works best with.
type Transcoder struct {
	ffmpegPath string
	sampleRate int
	log        *zap.SugaredLogger

	probeOnce sync.Once
	available bool
}

// NewTranscoder creates a transcoder using the given ffmpeg binary ("ffmpeg"
// when empty) and output sample rate (16000 when zero).
func NewTranscoder(ffmpegPath string, sampleRate int, logger *zap.SugaredLogger) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Transcoder{ffmpegPath: ffmpegPath, sampleRate: sampleRate, log: logger}
}

// Available reports whether the ffmpeg binary can be found. Probed once.
func (t *Transcoder) Available() bool {
	t.probeOnce.Do(func() {
		_, err := exec.LookPath(t.ffmpegPath)
		t.available = err == nil
		if err != nil {
			t.log.Warnw("ffmpeg not found, audio will pass through untranscoded",
				"path", t.ffmpegPath, "error", err)
		}
	})
	return t.available
}

// Transcode converts inputPath into mono WAV at outputPath. It returns the
// path the caller should feed to recognition and whether transcoding was
// applied: on any failure the input path is returned unchanged with a false
// flag, never an error, because degraded recognition beats a failed pipeline.
func (t *Transcoder) Transcode(ctx context.Context, inputPath, outputPath string) (string, bool) {
	if !t.Available() {
		return inputPath, false
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath,
		"-y",
		"-i", inputPath,
		"-ar", strconv.Itoa(t.sampleRate),
		"-ac", "1",
		outputPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.log.Warnw("ffmpeg transcode failed, using original audio",
			"input", inputPath, "error", err, "output", string(out))
		return inputPath, false
	}
	return outputPath, true
}
