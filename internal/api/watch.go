package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	watchWriteWait = 10 * time.Second
	watchReadLimit = 512
)

// Frame types pushed over a watch stream.
const (
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

// WatchFrame is one message on a watch stream. Exists is false when the
// document has not been written yet.
type WatchFrame struct {
	Type   string    `json:"type"`
	Exists bool      `json:"exists"`
	Data   any       `json:"data,omitempty"`
	Error  *APIError `json:"error,omitempty"`
	SentAt time.Time `json:"sentAt"`
}

// allowWatchOrigin accepts non-browser clients (no Origin), the app itself,
// and any configured CORS origin.
func (s *Server) allowWatchOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if s.config.AppURL != "" && strings.TrimRight(s.config.AppURL, "/") == origin {
		return true
	}
	for _, o := range s.config.CORSAllowedOrigins {
		if o == origin || o == "*" {
			return true
		}
	}
	return false
}

// streamDocument upgrades the request to a websocket and pushes a snapshot
// of the document now and after every change to docKey. It returns when the
// peer goes away or the store closes.
func (s *Server) streamDocument(w http.ResponseWriter, r *http.Request, docKey, label string, load func() (any, bool, error)) {
	// Subscribe before the first read so no write can slip between them.
	changes, cancel := s.store.Watch(docKey)
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		logFor(r.Context()).Debug("watch upgrade failed", "doc", label, "err", err)
		return
	}
	defer conn.Close()

	done := s.metrics.WatchOpened(label)
	defer done()

	log := logFor(r.Context()).With("doc", label)
	log.Info("watch opened")
	defer log.Info("watch closed")

	pongWait := 2 * s.watchPingInterval
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(watchReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		frame := WatchFrame{Type: FrameSnapshot, SentAt: s.now().UTC()}
		data, exists, err := load()
		if err != nil {
			log.Error("watch load", "err", err)
			frame = WatchFrame{
				Type:   FrameError,
				Error:  &APIError{Code: ErrCodeInternal, Message: "failed to load " + label},
				SentAt: frame.SentAt,
			}
		} else {
			frame.Data = data
			frame.Exists = exists
		}
		_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
		return conn.WriteJSON(frame)
	}

	if err := send(); err != nil {
		return
	}

	ticker := time.NewTicker(s.watchPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case _, ok := <-changes:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(watchWriteWait))
				return
			}
			if err := send(); err != nil {
				log.Debug("watch send", "err", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(watchWriteWait)); err != nil {
				return
			}
		}
	}
}
