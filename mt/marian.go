package mt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MarianProvider talks to a marian-server style inference service that loads
// one Helsinki-NLP opus-mt model per language pair. POST /models loads a
// model; POST /translate runs inference against a loaded model.
type MarianProvider struct {
	endpoint string
	client   *http.Client
}

// NewMarianProvider returns a provider for the default local endpoint.
func NewMarianProvider() *MarianProvider {
	return NewMarianProviderWithEndpoint("http://localhost:7072")
}

// NewMarianProviderWithEndpoint allows overriding the marian server base URL.
func NewMarianProviderWithEndpoint(endpoint string) *MarianProvider {
	if endpoint == "" {
		endpoint = "http://localhost:7072"
	}
	// Model loads can take minutes on first use while weights download.
	return &MarianProvider{endpoint: endpoint, client: &http.Client{Timeout: 5 * time.Minute}}
}

func (p *MarianProvider) Name() string { return "marian" }

type marianLoadRequest struct {
	Model string `json:"model"`
}

type marianLoadResponse struct {
	Loaded bool   `json:"loaded"`
	Error  string `json:"error,omitempty"`
}

// Provision asks the server to load the opus-mt model for the pair.
func (p *MarianProvider) Provision(ctx context.Context, sourceLang, targetLang string) (Backend, error) {
	model := fmt.Sprintf("Helsinki-NLP/opus-mt-%s-%s", sourceLang, targetLang)

	body, err := json.Marshal(marianLoadRequest{Model: model})
	if err != nil {
		return nil, fmt.Errorf("marshal load request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/models", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new load request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post to marian server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read load response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("marian server returned status %d: %s", resp.StatusCode, string(raw))
	}

	var out marianLoadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal load response: %w", err)
	}
	if !out.Loaded {
		return nil, fmt.Errorf("marian server could not load %s: %s", model, out.Error)
	}

	return &marianBackend{provider: p, model: model}, nil
}

// marianBackend is a handle to one loaded model on the marian server.
type marianBackend struct {
	provider *MarianProvider
	model    string
}

type marianTranslateRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

type marianTranslateResponse struct {
	Translation string `json:"translation"`
	Error       string `json:"error,omitempty"`
}

func (b *marianBackend) Translate(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(marianTranslateRequest{Model: b.model, Text: text})
	if err != nil {
		return "", fmt.Errorf("marshal translate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.provider.endpoint+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.provider.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post to marian server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read translate response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("marian server returned status %d: %s", resp.StatusCode, string(raw))
	}

	var out marianTranslateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("unmarshal translate response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("marian inference failed: %s", out.Error)
	}
	return out.Translation, nil
}
