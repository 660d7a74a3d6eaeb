package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrEmptyText is returned when synthesis is requested for empty or
// whitespace-only text.
var ErrEmptyText = errors.New("text cannot be empty")

// PiperSynthesizer calls a piper HTTP server that accepts url-encoded form
// fields "text" and "voice" and streams back encoded audio.
type PiperSynthesizer struct {
	endpoint string
	client   *http.Client
}

// NewPiperSynthesizer returns a synthesizer for the default local endpoint.
func NewPiperSynthesizer() *PiperSynthesizer {
	return NewPiperSynthesizerWithEndpoint("http://localhost:7071/tts")
}

// NewPiperSynthesizerWithEndpoint allows overriding the piper endpoint.
func NewPiperSynthesizerWithEndpoint(endpoint string) *PiperSynthesizer {
	if endpoint == "" {
		endpoint = "http://localhost:7071/tts"
	}
	// Synthesis of long passages can take a while; the server streams chunked
	// audio as it renders.
	return &PiperSynthesizer{endpoint: endpoint, client: &http.Client{Timeout: 2 * time.Minute}}
}

// Synthesize posts the text and returns the rendered audio bytes.
func (p *PiperSynthesizer) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("voice", lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post to piper server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("piper server returned status %d: %s", resp.StatusCode, string(body))
	}
	if len(body) == 0 {
		return nil, errors.New("piper server returned no audio")
	}
	return body, nil
}

// Status probes the server with a HEAD request.
func (p *PiperSynthesizer) Status() Status {
	st := Status{Name: "piper", Endpoint: p.endpoint}

	req, err := http.NewRequest(http.MethodHead, p.endpoint, nil)
	if err != nil {
		st.Message = err.Error()
		return st
	}
	resp, err := p.client.Do(req)
	if err != nil {
		st.Message = err.Error()
		return st
	}
	resp.Body.Close()

	st.Ready = true
	return st
}
