package avatartalk

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alekhya6767/Avatar-Talk/asr"
	"github.com/alekhya6767/Avatar-Talk/metrics"
	"github.com/alekhya6767/Avatar-Talk/mt"
	"github.com/alekhya6767/Avatar-Talk/pipeline"
	"github.com/alekhya6767/Avatar-Talk/session"
	"github.com/alekhya6767/Avatar-Talk/store"
	"github.com/alekhya6767/Avatar-Talk/tts"
)

type testServerOptions struct {
	transcript string
	store      *store.Store
}

func newTestServer(t *testing.T, opts testServerOptions) *Server {
	t.Helper()

	recognizer := asr.NewStubRecognizer(asr.StubRecognizerConfig{Default: opts.transcript})
	synthesizer := tts.NewStubSynthesizer(tts.StubSynthesizerConfig{})
	engine := mt.NewEngine(mt.NewStubProvider(mt.StubProviderConfig{Name: "stub-primary"}), nil, nil)

	pipe := pipeline.New(recognizer, engine, synthesizer, pipeline.Options{
		Logger: zap.NewNop().Sugar(),
	})

	manager := session.NewManager(pipe, session.Options{
		WorkDir: t.TempDir(),
		Logger:  zap.NewNop().Sugar(),
	})
	t.Cleanup(manager.Close)

	return New(Options{}, Deps{
		Pipeline:    pipe,
		Engine:      engine,
		Recognizer:  recognizer,
		Synthesizer: synthesizer,
		Sessions:    manager,
		Store:       opts.store,
		Metrics:     metrics.New(),
		Logger:      zap.NewNop().Sugar(),
	})
}

func postTranslate(t *testing.T, handler http.Handler, req TranslateRequest) (*httptest.ResponseRecorder, TranslateResponse) {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/translate-audio", bytes.NewReader(body)))

	var resp TranslateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, testServerOptions{transcript: "hello"})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTranslateAudio(t *testing.T) {
	server := newTestServer(t, testServerOptions{transcript: "hello world"})

	rec, resp := postTranslate(t, server.Handler(), TranslateRequest{
		AudioData:      base64.StdEncoding.EncodeToString([]byte("fake wav bytes")),
		TargetLanguage: "fr",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "hello world", resp.SourceText)
	assert.Equal(t, "[fr] hello world", resp.TranslatedText)
	assert.NotEmpty(t, resp.TranslatedAudio)

	audio, err := base64.StdEncoding.DecodeString(resp.TranslatedAudio)
	require.NoError(t, err)
	assert.Equal(t, "audio(fr):[fr] hello world", string(audio))

	for _, stage := range []string{"asr", "mt", "tts", "total"} {
		assert.Contains(t, resp.Timings, stage)
	}
}

func TestTranslateAudioNoSpeech(t *testing.T) {
	server := newTestServer(t, testServerOptions{transcript: "   "})

	rec, resp := postTranslate(t, server.Handler(), TranslateRequest{
		AudioData:      base64.StdEncoding.EncodeToString([]byte("silence")),
		TargetLanguage: "es",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "no speech")
	assert.Empty(t, resp.TranslatedAudio)
	assert.Contains(t, resp.Timings, "total")
}

func TestTranslateAudioValidation(t *testing.T) {
	server := newTestServer(t, testServerOptions{transcript: "hello"})

	tests := []struct {
		name string
		req  TranslateRequest
	}{
		{name: "MissingAudio", req: TranslateRequest{TargetLanguage: "es"}},
		{name: "MissingTargetLanguage", req: TranslateRequest{AudioData: base64.StdEncoding.EncodeToString([]byte("x"))}},
		{name: "BadBase64", req: TranslateRequest{AudioData: "not-base64!!", TargetLanguage: "es"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := postTranslate(t, server.Handler(), tc.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestTranslateAudioChunkAlias(t *testing.T) {
	server := newTestServer(t, testServerOptions{transcript: "one moment"})

	body, err := json.Marshal(TranslateRequest{
		AudioData:      base64.StdEncoding.EncodeToString([]byte("pcm chunk")),
		TargetLanguage: "es",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/translate-audio-chunk", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TranslateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "[es] one moment", resp.TranslatedText)
}

func TestTranslateAudioMethodNotAllowed(t *testing.T) {
	server := newTestServer(t, testServerOptions{transcript: "hello"})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/translate-audio", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusReportsComponents(t *testing.T) {
	server := newTestServer(t, testServerOptions{transcript: "hello"})

	// Warm one pair so the cache state shows up.
	_, resp := postTranslate(t, server.Handler(), TranslateRequest{
		AudioData:      base64.StdEncoding.EncodeToString([]byte("x")),
		TargetLanguage: "de",
	})
	require.True(t, resp.Success)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "stub-primary", status.Translator.PrimaryProvider)
	assert.Contains(t, status.Translator.CachedPairs, "en-de")
	assert.True(t, status.Recognizer.Ready)
	assert.Zero(t, status.Sessions)
}

func TestHistoryEndpoint(t *testing.T) {
	st, err := store.Open(t.TempDir() + "/history.db")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	server := newTestServer(t, testServerOptions{transcript: "good morning", store: st})

	_, resp := postTranslate(t, server.Handler(), TranslateRequest{
		AudioData:      base64.StdEncoding.EncodeToString([]byte("x")),
		TargetLanguage: "es",
	})
	require.True(t, resp.Success)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var records []store.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "good morning", records[0].SourceText)
	assert.Equal(t, "[es] good morning", records[0].TranslatedText)
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, testServerOptions{transcript: "hi"})

	_, resp := postTranslate(t, server.Handler(), TranslateRequest{
		AudioData:      base64.StdEncoding.EncodeToString([]byte("x")),
		TargetLanguage: "es",
	})
	require.True(t, resp.Success)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `avatartalk_translations_total{mode="batch",status="ok"} 1`)
}
