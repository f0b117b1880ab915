package server

import (
	apperrors "chat-notify/errors"
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the router's CORS middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsFrame is one outbound WebSocket message: the event kind plus its payload,
// mirroring the SSE event/data pair.
type wsFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// handleWS runs one streaming session over WebSocket. Same lifecycle and
// delivery semantics as the SSE session; only the framing differs. The data
// flow stays one-directional: client frames are read solely to detect the
// close handshake.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, apperrors.ErrMissingToken)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("WebSocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	defer conn.Close()

	sub := s.registry.Subscribe(userID)
	defer s.registry.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader goroutine: drains control frames and unblocks the writer when
	// the peer closes or the connection errors.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.log.Info("Streaming session opened", "user_id", userID, "session_id", sub.ID(), "transport", "ws")
	defer s.log.Info("Streaming session closed", "user_id", userID, "session_id", sub.ID(), "transport", "ws")

	keepalive := time.NewTicker(s.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case e := <-sub.Events():
			if missed := sub.Missed(); missed > 0 {
				if err := writeFrame(conn, wsFrame{Event: "gap", Data: map[string]uint64{"missed": missed}}); err != nil {
					return
				}
			}
			if err := writeFrame(conn, wsFrame{Event: e.Kind(), Data: e}); err != nil {
				s.log.Warn("Stream write failed", "user_id", userID, "error", err)
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, frame wsFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(frame)
}
