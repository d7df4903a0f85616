package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cheapskatecoder/draconic/queue"
)

// WebSocket timeouts, following the same Gorilla best-practice constants
// the teacher's client.go documents (writeWait/pongWait/pingPeriod).
const (
	eventWriteWait  = 10 * time.Second
	eventPongWait   = 60 * time.Second
	eventPingPeriod = 54 * time.Second
)

var eventUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleEvents upgrades GET /v1/events to a WebSocket and streams every
// queue.Event published by the Scheduler's event bus until the client
// disconnects or the server shuts down. There is no client->server
// message protocol; this is a pure server push feed, a narrower
// generalization of the teacher's bidirectional Client (readPump +
// writePump) down to writePump's ping/graph-push half only.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	upgrader := eventUpgrader
	upgrader.CheckOrigin = s.checkOrigin

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("server: websocket upgrade failed", "error", err)
		return
	}

	events, unsubscribe := s.scheduler.Subscribe()

	s.wg.Add(1)
	go s.runEventStream(conn, events, unsubscribe)
}

func (s *Server) runEventStream(conn *websocket.Conn, events <-chan queue.Event, unsubscribe func()) {
	defer s.wg.Done()
	defer unsubscribe()
	defer conn.Close()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(eventPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(eventPongWait))
		return nil
	})

	// Drain (and discard) client reads solely to drive the pong handler
	// and notice disconnects; the feed has no inbound protocol.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	ticker := time.NewTicker(eventPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				s.logger.Debugw("server: event stream write failed", "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
