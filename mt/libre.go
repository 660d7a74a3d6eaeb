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

// LibreProvider is the fallback translator, speaking the LibreTranslate HTTP
// API. Provisioning checks GET /languages to confirm the pair is served;
// inference goes through POST /translate.
type LibreProvider struct {
	endpoint string
	client   *http.Client
}

// NewLibreProvider returns a provider for the default local endpoint.
func NewLibreProvider() *LibreProvider {
	return NewLibreProviderWithEndpoint("http://localhost:5000")
}

// NewLibreProviderWithEndpoint allows overriding the LibreTranslate base URL.
func NewLibreProviderWithEndpoint(endpoint string) *LibreProvider {
	if endpoint == "" {
		endpoint = "http://localhost:5000"
	}
	return &LibreProvider{endpoint: endpoint, client: &http.Client{Timeout: 30 * time.Second}}
}

func (p *LibreProvider) Name() string { return "libretranslate" }

type libreLanguage struct {
	Code    string   `json:"code"`
	Targets []string `json:"targets"`
}

// Provision verifies the server can translate the pair. The language index is
// fetched once per pair; the Engine caches the outcome either way.
func (p *LibreProvider) Provision(ctx context.Context, sourceLang, targetLang string) (Backend, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/languages", nil)
	if err != nil {
		return nil, fmt.Errorf("new languages request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get languages: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read languages response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("libretranslate returned status %d: %s", resp.StatusCode, string(raw))
	}

	var langs []libreLanguage
	if err := json.Unmarshal(raw, &langs); err != nil {
		return nil, fmt.Errorf("unmarshal languages response: %w", err)
	}

	for _, lang := range langs {
		if lang.Code != sourceLang {
			continue
		}
		for _, target := range lang.Targets {
			if target == targetLang {
				return &libreBackend{provider: p, source: sourceLang, target: targetLang}, nil
			}
		}
	}
	return nil, fmt.Errorf("pair %s-%s not served by libretranslate", sourceLang, targetLang)
}

type libreBackend struct {
	provider *LibreProvider
	source   string
	target   string
}

type libreTranslateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type libreTranslateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

func (b *libreBackend) Translate(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(libreTranslateRequest{
		Q:      text,
		Source: b.source,
		Target: b.target,
		Format: "text",
	})
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
		return "", fmt.Errorf("post to libretranslate: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read translate response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("libretranslate returned status %d: %s", resp.StatusCode, string(raw))
	}

	var out libreTranslateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("unmarshal translate response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("libretranslate inference failed: %s", out.Error)
	}
	return out.TranslatedText, nil
}
