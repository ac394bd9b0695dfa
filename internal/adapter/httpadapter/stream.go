package httpadapter

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamSendBuffer = 32
)

// streamMessage is pushed to animation stream clients. Hour is null while all
// hours are shown.
type streamMessage struct {
	Hour *int `json:"hour"`
}

// handleStream upgrades to a WebSocket and pushes the current hour once, then
// every tick until the client disconnects or the server shuts down. A client
// too slow to drain its buffer misses ticks rather than stalling the animator.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	clientID := uuid.New().String()
	logger := s.logger.With("client_id", clientID)

	send := make(chan streamMessage, streamSendBuffer)
	unsubscribe := s.deps.Animator.Subscribe(func(hour int) {
		select {
		case send <- streamMessage{Hour: &hour}:
		default:
			logger.Warn("dropping tick for slow stream client", "hour", hour)
		}
	})
	defer unsubscribe()

	send <- streamMessage{Hour: s.deps.Animator.State().CurrentHour}
	logger.Info("animation stream opened")

	done := make(chan struct{})
	go s.readStream(conn, done)

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("stream write failed", "error", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			logger.Info("animation stream closed")
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(streamWriteWait))
			return
		}
	}
}

// readStream discards client frames so control messages are processed, and
// closes done when the connection ends.
func (s *Server) readStream(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("stream read error", "error", err)
			}
			return
		}
	}
}
