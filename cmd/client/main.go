package main

import (
	"bufio"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alekhya6767/Avatar-Talk/session"
)

const dedupThreshold = 0.85

// clientMessage is one outbound frame in the streaming protocol.
type clientMessage struct {
	Event          string  `json:"event"`
	TargetLanguage string  `json:"target_language,omitempty"`
	AudioData      string  `json:"audio_data,omitempty"`
	Duration       float64 `json:"duration,omitempty"`
}

type Client struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	mic      *MicrophoneReader
	log      *log.Logger
	wg       sync.WaitGroup
	deduper  *TranslationDeduper
	audioDir string

	chunkSeconds float64
	targetLang   string

	outputFile *os.File
	bufWriter  *bufio.Writer

	stop chan struct{}
}

func main() {
	var serverURL = flag.String("url", "ws://localhost:8000/ws", "WebSocket server URL")
	var targetLang = flag.String("target-lang", "es", "Target language code")
	var chunkSeconds = flag.Float64("chunk-seconds", 3.0, "Audio chunk length in seconds")
	var outputPath = flag.String("output", "", "Output file path for translated text (optional)")
	var audioDir = flag.String("audio-dir", "", "Directory to save translated audio chunks (optional)")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)

	mic, err := NewMicrophoneReader()
	if err != nil {
		logger.Printf("Failed to open microphone: %v\n", err)
		return
	}
	defer mic.Close()

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		logger.Printf("WebSocket dial failed: %v\n", err)
		return
	}
	defer conn.Close()

	client := &Client{
		conn:         conn,
		mic:          mic,
		log:          logger,
		deduper:      NewTranslationDeduper(8, dedupThreshold),
		audioDir:     *audioDir,
		chunkSeconds: *chunkSeconds,
		targetLang:   *targetLang,
		stop:         make(chan struct{}),
	}

	if *outputPath != "" {
		outputFile, err := os.Create(*outputPath)
		if err != nil {
			logger.Printf("Failed to create output file: %v\n", err)
			return
		}
		defer outputFile.Close()

		client.outputFile = outputFile
		client.bufWriter = bufio.NewWriter(outputFile)
		defer client.bufWriter.Flush()
	}

	if *audioDir != "" {
		if err := os.MkdirAll(*audioDir, 0o755); err != nil {
			logger.Printf("Failed to create audio dir: %v\n", err)
			return
		}
	}

	fmt.Println("Recording... Press Ctrl+C to stop.")
	client.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	client.Close()
	fmt.Println("\nDone.")
}

func (c *Client) Start() {
	if err := c.writeJSON(clientMessage{Event: "start_streaming", TargetLanguage: c.targetLang}); err != nil {
		c.log.Printf("Failed to start streaming: %v\n", err)
		return
	}

	c.wg.Add(2)
	go c.reader()
	go c.writer()
}

func (c *Client) writeJSON(msg clientMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *Client) reader() {
	defer c.wg.Done()

	for {
		var ev session.Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Printf("WebSocket read error: %v\n", err)
			}
			return
		}

		switch ev.Type {
		case session.EventTranslationResult:
			c.printResult(ev)
		case session.EventTranslationError:
			c.log.Printf("Chunk %d failed: %s\n", ev.Seq, ev.Message)
		case "error":
			c.log.Printf("Server error: %s\n", ev.Message)
		}
	}
}

func (c *Client) printResult(ev session.Event) {
	if c.deduper.Seen(ev.TranslatedText) {
		return
	}

	timestamp := time.Now().Format("15:04:05")
	line := fmt.Sprintf("[%s] %s -> %s\n", timestamp, ev.SourceText, ev.TranslatedText)

	fmt.Print(line)

	if c.bufWriter != nil {
		if _, err := c.bufWriter.WriteString(line); err != nil {
			c.log.Printf("Failed to write to output file: %v\n", err)
		} else {
			c.bufWriter.Flush()
		}
	}

	if c.audioDir != "" && ev.Audio != "" {
		c.saveAudio(ev)
	}
}

func (c *Client) saveAudio(ev session.Event) {
	audio, err := base64.StdEncoding.DecodeString(ev.Audio)
	if err != nil {
		c.log.Printf("Failed to decode chunk %d audio: %v\n", ev.Seq, err)
		return
	}

	path := filepath.Join(c.audioDir, fmt.Sprintf("chunk_%d.wav", ev.Seq))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		c.log.Printf("Failed to save chunk %d audio: %v\n", ev.Seq, err)
	}
}

func (c *Client) writer() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		pcm, duration, err := c.mic.ReadChunk(c.chunkSeconds)
		if err != nil {
			c.log.Printf("Audio read error: %v\n", err)
			return
		}

		msg := clientMessage{
			Event:     "audio_chunk",
			AudioData: base64.StdEncoding.EncodeToString(pcm),
			Duration:  duration,
		}
		if err := c.writeJSON(msg); err != nil {
			if !errors.Is(err, net.ErrClosed) {
				c.log.Printf("WebSocket write error: %v\n", err)
			}
			return
		}
	}
}

func (c *Client) Close() {
	c.log.Println("Closing client...")
	close(c.stop)

	if err := c.writeJSON(clientMessage{Event: "stop_streaming"}); err != nil {
		c.log.Printf("Failed to stop streaming: %v\n", err)
	}

	if c.conn != nil {
		c.conn.Close()
	}
	c.wg.Wait()
}
