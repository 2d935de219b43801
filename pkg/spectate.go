package pkg

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const spectateWriteWait = 10 * time.Second

// handleSpectate streams a match's journal as JSON text frames: everything
// recorded so far, then each new entry as it happens.
func (s *Server) handleSpectate(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("match")
	m, ok := s.match(id)
	if !ok {
		http.Error(w, "unknown match", http.StatusNotFound)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("spectate upgrade", zap.String("match", id), zap.Error(err))
		return
	}
	defer conn.Close()

	backlog, entries, stop := m.Watch()
	defer stop()

	// Spectators never talk; reading only notices the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for _, e := range backlog {
		conn.SetWriteDeadline(time.Now().Add(spectateWriteWait))
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "match closed"),
					time.Now().Add(spectateWriteWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(spectateWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
