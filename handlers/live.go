// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	defaultOpenTimeout = 10 * time.Second
)

type LiveHandler struct {
	svc      *service.Service
	cfg      cliparse.Config
	upgrader websocket.Upgrader

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func NewLiveHandler(svc *service.Service, cfg cliparse.Config) *LiveHandler {
	h := &LiveHandler{
		svc:      svc,
		cfg:      cfg,
		shutdown: make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin applies ALLOWED_ORIGINS to the WebSocket handshake
func (h *LiveHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	// Same-origin requests are always fine
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// Shutdown ends every open stream. Hijacked connections are not closed by
// http.Server.Shutdown, so the server registers this with RegisterOnShutdown.
func (h *LiveHandler) Shutdown() {
	h.shutdownOnce.Do(func() { close(h.shutdown) })
}

// Stream handles GET /polls/{id}/live
// Sends a snapshot on connect and an update after every folded vote
func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	// The view must outlive the request context once the connection is
	// hijacked, so only the initial load is bounded
	timeout := h.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultOpenTimeout
	}
	openCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
	defer cancel()

	view, err := h.svc.OpenLive(openCtx, pollID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	defer view.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		slog.Warn("websocket upgrade failed", "poll_id", pollID, "error", err)
		return
	}
	defer conn.Close()

	slog.Info("live stream opened", "poll_id", pollID, "remote", middleware.GetClientIP(r))

	// Reads only detect the peer going away; clients send nothing
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	write := func(msg models.LiveMessage) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	if err := write(models.LiveMessage{Type: models.LiveSnapshot, Results: view.Snapshot()}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case results, ok := <-view.Updates():
			if !ok {
				return
			}
			if err := write(models.LiveMessage{Type: models.LiveUpdate, Results: results}); err != nil {
				slog.Debug("live stream write failed", "poll_id", pollID, "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			slog.Info("live stream closed", "poll_id", pollID)
			return
		case <-h.shutdown:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}
