package avatartalk

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alekhya6767/Avatar-Talk/session"
)

// Client message types.
const (
	msgStartStreaming = "start_streaming"
	msgAudioChunk     = "audio_chunk"
	msgStopStreaming  = "stop_streaming"
)

// ClientMessage is one inbound WebSocket frame.
type ClientMessage struct {
	Event          string  `json:"event"`
	TargetLanguage string  `json:"target_language,omitempty"`
	AudioData      string  `json:"audio_data,omitempty"`
	Duration       float64 `json:"duration,omitempty"`
}

// WebConn bridges one WebSocket connection to its streaming session.
type WebConn struct {
	conn     *websocket.Conn
	log      *zap.SugaredLogger
	sessions *session.Manager
	wg       sync.WaitGroup

	sess *session.Session
	// outbound carries reader-side error events so the writer goroutine stays
	// the only writer on the connection.
	outbound chan session.Event

	seq uint64
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  8192,
		WriteBufferSize: 8192,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorw("websocket upgrade failed", "error", err)
		return
	}

	sess, err := s.deps.Sessions.Connect()
	if err != nil {
		s.log.Errorw("session connect failed", "error", err)
		conn.Close()
		return
	}

	webConn := &WebConn{
		conn:     conn,
		log:      s.log,
		sessions: s.deps.Sessions,
		sess:     sess,
		outbound: make(chan session.Event, 8),
	}

	webConn.Start()
}

func (wc *WebConn) Start() {
	defer wc.conn.Close()

	wc.wg.Add(1)
	go func() {
		defer wc.wg.Done()
		wc.writer()
	}()

	wc.reader()

	// Remove the session before waiting on the writer: its Done signal is
	// what releases a writer idling on the event channel.
	if err := wc.sessions.Disconnect(wc.sess.ID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		wc.log.Errorw("session disconnect failed", "session_id", wc.sess.ID, "error", err)
	}
	close(wc.outbound)
	wc.wg.Wait()
}

func (wc *WebConn) reader() {
	for {
		_, message, err := wc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				wc.log.Errorw("websocket read error", "session_id", wc.sess.ID, "error", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			wc.fail("invalid JSON message")
			continue
		}

		switch msg.Event {
		case msgStartStreaming:
			if err := wc.sessions.StartStreaming(wc.sess.ID, msg.TargetLanguage); err != nil {
				wc.fail(err.Error())
			}
		case msgAudioChunk:
			wc.handleChunk(msg)
		case msgStopStreaming:
			if err := wc.sessions.StopStreaming(wc.sess.ID); err != nil {
				wc.fail(err.Error())
			}
		default:
			wc.fail("unknown event: " + msg.Event)
		}
	}
}

func (wc *WebConn) handleChunk(msg ClientMessage) {
	audio, err := base64.StdEncoding.DecodeString(msg.AudioData)
	if err != nil {
		wc.fail("audio_data is not valid base64")
		return
	}
	if len(audio) == 0 {
		wc.fail("audio_data is empty")
		return
	}

	wc.seq++
	if err := wc.sessions.AudioChunk(wc.sess.ID, wc.seq, audio, msg.Duration); err != nil {
		wc.seq--
		wc.fail(err.Error())
	}
}

// fail queues an error event for the writer. Drops the event rather than
// blocking the reader if the client stopped draining.
func (wc *WebConn) fail(message string) {
	ev := session.Event{
		Type:      "error",
		SessionID: wc.sess.ID,
		Message:   message,
	}
	select {
	case wc.outbound <- ev:
	default:
		wc.log.Errorw("dropping error event, outbound full", "session_id", wc.sess.ID)
	}
}

func (wc *WebConn) writer() {
	for {
		select {
		case <-wc.sess.Done():
			return
		case ev := <-wc.sess.Events():
			if !wc.write(ev) {
				return
			}
		case ev, ok := <-wc.outbound:
			if !ok {
				return
			}
			if !wc.write(ev) {
				return
			}
		}
	}
}

func (wc *WebConn) write(ev session.Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		wc.log.Errorw("marshal event failed", "session_id", wc.sess.ID, "error", err)
		return true
	}
	if err := wc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		wc.log.Errorw("websocket write error", "session_id", wc.sess.ID, "error", err)
		return false
	}
	return true
}
