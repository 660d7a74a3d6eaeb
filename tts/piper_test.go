package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPiperSynthesizer_Synthesize(t *testing.T) {
	audio := []byte("RIFF fake wav payload")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Hola mundo", r.FormValue("text"))
		assert.Equal(t, "es", r.FormValue("voice"))
		w.Write(audio)
	}))
	defer server.Close()

	synth := NewPiperSynthesizerWithEndpoint(server.URL)

	out, err := synth.Synthesize(context.Background(), "Hola mundo", "es")
	require.NoError(t, err)
	assert.Equal(t, audio, out)
}

func TestPiperSynthesizer_EmptyText(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	synth := NewPiperSynthesizerWithEndpoint(server.URL)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := synth.Synthesize(context.Background(), text, "es")
		assert.ErrorIs(t, err, ErrEmptyText)
	}
	assert.False(t, called, "empty text must not reach the server")
}

func TestPiperSynthesizer_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "voice not found", http.StatusNotFound)
	}))
	defer server.Close()

	synth := NewPiperSynthesizerWithEndpoint(server.URL)

	_, err := synth.Synthesize(context.Background(), "hello", "xx")
	require.Error(t, err)
	assert.ErrorContains(t, err, "status 404")
}

func TestPiperSynthesizer_EmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	synth := NewPiperSynthesizerWithEndpoint(server.URL)

	_, err := synth.Synthesize(context.Background(), "hello", "es")
	require.Error(t, err)
	assert.ErrorContains(t, err, "no audio")
}
