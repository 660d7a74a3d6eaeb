package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WhisperRecognizer calls a whisper.cpp-style inference HTTP server that
// accepts a multipart "file" field plus a "language" field and returns JSON
// {"text":"..."}.
type WhisperRecognizer struct {
	endpoint string
	client   *http.Client
}

// NewWhisperRecognizer constructs a recognizer posting to the default local
// endpoint.
func NewWhisperRecognizer() *WhisperRecognizer {
	return NewWhisperRecognizerWithEndpoint("http://localhost:7070/inference")
}

// NewWhisperRecognizerWithEndpoint constructs a recognizer using a custom
// endpoint.
func NewWhisperRecognizerWithEndpoint(endpoint string) *WhisperRecognizer {
	if endpoint == "" {
		endpoint = "http://localhost:7070/inference"
	}
	return &WhisperRecognizer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

type whisperResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Transcribe posts the audio file to the whisper server and returns the
// transcript.
func (w *WhisperRecognizer) Transcribe(ctx context.Context, audioPath, sourceLang string) (string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("write audio to form: %w", err)
	}
	if err := mw.WriteField("language", sourceLang); err != nil {
		return "", fmt.Errorf("write language field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, &b)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post to whisper server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("whisper server returned status %d: %s", resp.StatusCode, string(body))
	}

	var out whisperResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("whisper transcription failed: %s", out.Error)
	}
	return strings.TrimSpace(out.Text), nil
}

// Status probes the server with a HEAD request.
func (w *WhisperRecognizer) Status() Status {
	st := Status{Name: "whisper", Endpoint: w.endpoint}

	req, err := http.NewRequest(http.MethodHead, w.endpoint, nil)
	if err != nil {
		st.Message = err.Error()
		return st
	}
	resp, err := w.client.Do(req)
	if err != nil {
		st.Message = err.Error()
		return st
	}
	resp.Body.Close()

	st.Ready = true
	return st
}
