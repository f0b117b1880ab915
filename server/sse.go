package server

import (
	"chat-notify/domain/event"
	apperrors "chat-notify/errors"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// handleSSE runs one streaming session over Server-Sent Events.
//
// Lifecycle: the caller was already authenticated by the middleware; the
// session subscribes, streams until the client disconnects or the server
// shuts down, and unsubscribes on every exit path (the defer also covers
// panics, so a broken session can never leak a registry entry).
//
// The stream is not restartable. A client that reconnects gets a new session
// and a gap covering whatever it missed while away.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, apperrors.ErrMissingToken)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, apperrors.ErrStreamingUnsupported)
		return
	}

	sub := s.registry.Subscribe(userID)
	defer s.registry.Unsubscribe(sub)

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Confirm the stream before the first event so clients can tell a
	// successful subscribe from a hanging request.
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	s.log.Info("Streaming session opened", "user_id", userID, "session_id", sub.ID())
	defer s.log.Info("Streaming session closed", "user_id", userID, "session_id", sub.ID())

	keepalive := time.NewTicker(s.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e := <-sub.Events():
			// A gap is information for the client, not a fault.
			if missed := sub.Missed(); missed > 0 {
				if err := writeGap(w, missed); err != nil {
					return
				}
			}
			if err := writeEvent(w, e); err != nil {
				s.log.Warn("Stream write failed", "user_id", userID, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, e event.DomainEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind(), data)
	return err
}

func writeGap(w io.Writer, missed uint64) error {
	_, err := fmt.Fprintf(w, "event: gap\ndata: {\"missed\":%d}\n\n", missed)
	return err
}
