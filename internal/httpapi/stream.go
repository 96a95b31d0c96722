package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const streamWriteTimeout = 5 * time.Second

var streamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(r.Host), u.Host)
	},
}

// handleStream pushes the status document right away and then once per
// refresh period until the client goes away or the server shuts down.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.Logger.Debug("stream_opened", zap.String("remote", r.RemoteAddr))

	push := func() error {
		doc, err := s.document(r)
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		return conn.WriteJSON(doc)
	}
	if err := push(); err != nil {
		return
	}

	ticker := time.NewTicker(s.Opts.Refresh)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			if err := push(); err != nil {
				s.Logger.Debug("stream_write_error", zap.Error(err))
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteTimeout))
			return
		}
	}
}
