package httpapi

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/home-hub/home-hub/internal/domain/event"
	"github.com/home-hub/home-hub/internal/infrastructure/hub"
)

const wsWriteTimeout = 5 * time.Second

// clientFrame is the only inbound message shape observers may send.
type clientFrame struct {
	Type string `json:"type"`
}

// wsEndpoint upgrades the connection and streams hub events to the
// observer until either side disconnects.
func (s *Server) wsEndpoint(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{
			"localhost",
			"localhost:*",
			"127.0.0.1",
			"127.0.0.1:*",
			"[::1]",
			"[::1]:*",
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket accept failed")
		return
	}

	sub := s.eventHub.Subscribe()
	defer s.eventHub.Unsubscribe(sub.ID)

	s.logger.Info().Str("subscriber_id", sub.ID).Msg("observer connected")
	_ = s.eventHub.SendTo(sub.ID, event.NewConnected("connected to home hub"))

	// Write loop runs concurrently; the read loop blocks until the client
	// goes away, which tears down both through the subscriber queue.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		s.writeLoop(ws, sub)
	}()

	s.readLoop(r.Context(), ws, sub)

	s.eventHub.Unsubscribe(sub.ID)
	<-writeDone
	ws.Close(websocket.StatusNormalClosure, "")
	s.logger.Info().Str("subscriber_id", sub.ID).Msg("observer disconnected")
}

func (s *Server) writeLoop(ws *websocket.Conn, sub *hub.Subscriber) {
	for msg := range sub.Events() {
		ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
		err := wsjson.Write(ctx, ws, msg)
		cancel()
		if err != nil {
			return
		}
	}
}

func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, sub *hub.Subscriber) {
	for {
		var frame clientFrame
		if err := wsjson.Read(ctx, ws, &frame); err != nil {
			return
		}
		switch frame.Type {
		case "ping":
			_ = s.eventHub.SendTo(sub.ID, event.NewPong())
		default:
			// Unknown client messages are ignored.
		}
	}
}
