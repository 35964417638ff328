package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// SocketRequest is an inbound WebSocket message.
//
//	{"type": "widget", "key": "app:key:name", "value": "Ada"}
//	{"type": "rerun", "path": "/settings"}
type SocketRequest struct {
	Type  string              `json:"type"`
	Key   string              `json:"key,omitempty"`
	Value any                 `json:"value,omitempty"`
	Path  *string             `json:"path,omitempty"`
	Query map[string][]string `json:"query,omitempty"`
}

// SocketError is sent back when an inbound message is rejected.
type SocketError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Socket handles the GET /sessions/{sessionID}/ws request.
// Outbound frames are the same JSON messages as the SSE stream; inbound frames update widgets
// and trigger runs.
func (s *Server) Socket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	conn, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "session_id", sessionID, "err", err)
		return
	}
	defer conn.Close()

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	developer := s.isDeveloper(r)
	ctx := r.Context()

	// Writes only happen on this goroutine; the reader hands errors over through errs.
	errs := make(chan SocketError, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			var req SocketRequest
			if err := conn.ReadJSON(&req); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("WebSocket read failed", "session_id", sessionID, "err", err)
				}
				return
			}
			if err := s.handleSocket(r, sessionID, developer, req); err != nil {
				select {
				case errs <- SocketError{Type: "error", Error: err.Error()}:
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case e := <-errs:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleSocket(r *http.Request, sessionID string, developer bool, req SocketRequest) error {
	ctx := r.Context()
	if err := s.App.SetDeveloper(ctx, sessionID, developer); err != nil {
		return err
	}
	switch req.Type {
	case "widget":
		if err := s.App.UpdateWidget(ctx, sessionID, req.Key, req.Value); err != nil {
			return err
		}
	case "rerun":
		if req.Path != nil {
			if err := s.App.SetURLContext(ctx, sessionID, *req.Path, req.Query); err != nil {
				return err
			}
		}
	default:
		return errUnknownMessage(req.Type)
	}
	if out := s.App.Run(ctx, sessionID, s.Script); out.Err != nil {
		return out.Err
	}
	return nil
}

type errUnknownMessage string

func (e errUnknownMessage) Error() string {
	return "unknown message type " + string(e)
}
