package main

import (
	"bufio"
	"bytes"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alekhya6767/Avatar-Talk/session"
)

// mockWebSocketServer creates a test WebSocket server driven by handler.
func mockWebSocketServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("WebSocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func connectToTestServer(t *testing.T, server *httptest.Server) *websocket.Conn {
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}
	return conn
}

func createTestClient(conn *websocket.Conn, output io.Writer) *Client {
	client := &Client{
		conn:    conn,
		log:     log.New(io.Discard, "", 0),
		deduper: NewTranslationDeduper(10, dedupThreshold),
		stop:    make(chan struct{}),
	}
	if output != nil {
		client.bufWriter = bufio.NewWriter(output)
	}
	return client
}

func TestReaderWritesTranslations(t *testing.T) {
	results := []session.Event{
		{Type: session.EventTranslationResult, Seq: 1, SourceText: "hello", TranslatedText: "hola"},
		{Type: session.EventTranslationResult, Seq: 2, SourceText: "hello", TranslatedText: "hola"},
		{Type: session.EventTranslationResult, Seq: 3, SourceText: "goodbye", TranslatedText: "adios"},
	}

	server := mockWebSocketServer(t, func(conn *websocket.Conn) {
		for _, ev := range results {
			if err := conn.WriteJSON(ev); err != nil {
				t.Errorf("WriteJSON failed: %v", err)
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	conn := connectToTestServer(t, server)
	defer conn.Close()

	var output bytes.Buffer
	client := createTestClient(conn, &output)

	client.wg.Add(1)
	go client.reader()

	// Reader exits when the server side closes the connection.
	client.wg.Wait()
	client.bufWriter.Flush()

	got := output.String()
	if !strings.Contains(got, "hello -> hola") {
		t.Errorf("Output missing first translation, got %q", got)
	}
	if !strings.Contains(got, "goodbye -> adios") {
		t.Errorf("Output missing second translation, got %q", got)
	}
	// The repeated "hola" must be deduplicated.
	if strings.Count(got, "hola") != 1 {
		t.Errorf("Expected one hola line, got %q", got)
	}
}

func TestReaderIgnoresAcksAndErrors(t *testing.T) {
	events := []session.Event{
		{Type: session.EventConnected, SessionID: "abc"},
		{Type: session.EventChunkReceived, Seq: 1},
		{Type: session.EventTranslationError, Seq: 1, Message: "backend down"},
		{Type: session.EventTranslationResult, Seq: 2, SourceText: "ok", TranslatedText: "vale"},
	}

	server := mockWebSocketServer(t, func(conn *websocket.Conn) {
		for _, ev := range events {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	conn := connectToTestServer(t, server)
	defer conn.Close()

	var output bytes.Buffer
	client := createTestClient(conn, &output)

	client.wg.Add(1)
	go client.reader()
	client.wg.Wait()
	client.bufWriter.Flush()

	got := output.String()
	if strings.Count(got, "\n") != 1 {
		t.Errorf("Expected exactly one output line, got %q", got)
	}
	if !strings.Contains(got, "ok -> vale") {
		t.Errorf("Output missing translation, got %q", got)
	}
}

func TestStartSendsStreamingHandshake(t *testing.T) {
	var mu sync.Mutex
	var received []clientMessage
	done := make(chan struct{})

	server := mockWebSocketServer(t, func(conn *websocket.Conn) {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
		close(done)
	})
	defer server.Close()

	conn := connectToTestServer(t, server)
	defer conn.Close()

	client := createTestClient(conn, nil)
	client.targetLang = "fr"

	if err := client.writeJSON(clientMessage{Event: "start_streaming", TargetLanguage: client.targetLang}); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for handshake")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(received))
	}
	if received[0].Event != "start_streaming" || received[0].TargetLanguage != "fr" {
		t.Errorf("Unexpected handshake: %+v", received[0])
	}
}
