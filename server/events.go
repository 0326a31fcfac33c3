// Copyright (c) 2023 BVK Chaitanya

package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/visvasity/topic"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// serveEvents streams engine events to a websocket client. Each event
// is one JSON message. Slow clients are disconnected when the engine
// event topic closes their receiver.
func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("could not upgrade events connection", "err", err)
		return
	}
	defer conn.Close()

	receiver, err := topic.Subscribe(s.engine.Events(), 16, false /* includeRecent */)
	if err != nil {
		slog.Error("could not subscribe to engine events", "err", err)
		return
	}
	defer receiver.Close()

	eventCh, err := topic.ReceiveCh(receiver)
	if err != nil {
		slog.Error("could not open engine events channel", "err", err)
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				slog.Warn("could not write event to websocket client (closing)", "err", err)
				return
			}
		}
	}
}
