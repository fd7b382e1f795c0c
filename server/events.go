// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bvk/steambot/api"
	"github.com/gorilla/websocket"
	"github.com/visvasity/topic"
)

const (
	eventsWriteTimeout = 10 * time.Second
	eventsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// serveEvents streams bot status snapshots over a websocket. The current
// status is sent first, followed by one message per state change.
func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	if s.cg.Done() {
		writeJSON(w, http.StatusServiceUnavailable, &api.ErrorResponse{Error: "server is closed", Code: api.CodeInternal})
		return
	}

	receiver, err := s.manager.Subscribe()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, &api.ErrorResponse{Error: err.Error(), Code: api.CodeInternal})
		return
	}
	defer receiver.Close()

	eventsCh, err := topic.ReceiveCh(receiver)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, &api.ErrorResponse{Error: err.Error(), Code: api.CodeInternal})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("could not upgrade to websocket", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(s.lifeCtx)
	defer cancel()

	// Reader detects the peer going away; incoming messages are ignored.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(time.Second)
			conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), deadline)
			return

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventsWriteTimeout)); err != nil {
				return
			}

		case e, ok := <-eventsCh:
			if !ok {
				return
			}
			msg := &api.EventMessage{
				At:     e.At,
				Status: statusResponse(e.Status),
				Alert:  e.Alert,
			}
			conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				slog.Warn("could not write event to websocket", "remote", r.RemoteAddr, "err", err)
				return
			}
		}
	}
}
