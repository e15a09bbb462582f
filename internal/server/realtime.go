package server

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"smartplate/internal/metrics"
	"smartplate/internal/realtime"

	"github.com/gorilla/websocket"
)

const (
	realtimeWriteWait  = 10 * time.Second
	realtimePongWait   = 60 * time.Second
	realtimePingPeriod = (realtimePongWait * 9) / 10
)

// checkOrigin allows non-browser clients, the configured origins, and the
// server's own host when no origins are configured.
func (s *Service) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.config.AllowedOrigins) == 0 {
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}

	return slices.Contains(s.config.AllowedOrigins, origin)
}

// handleRealtime streams change events for ?table= and optionally ?id=.
// Clients refetch whatever the event points at.
func (s *Service) handleRealtime(w http.ResponseWriter, r *http.Request) {
	filter := realtime.Filter{
		Table: strings.TrimSpace(r.URL.Query().Get("table")),
		RowID: strings.TrimSpace(r.URL.Query().Get("id")),
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Info("failed to upgrade realtime connection")
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(filter)
	defer sub.Close()

	metrics.RealtimeConnections.Inc()
	defer metrics.RealtimeConnections.Dec()

	// The read side only exists to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(realtimePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(realtimePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(realtimePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(realtimeWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
			metrics.RealtimeEvents.WithLabelValues(event.Table).Inc()
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(realtimeWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
