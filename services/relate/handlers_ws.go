// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package relate

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/RelateFOSS/services/relate/workflow"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

func sendJSON(ws *websocket.Conn, v any) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleResolveStream handles GET /v1/relate/stream.
//
// Description:
//
//	Upgrades the connection and serves resolution requests as a stream of
//	workflow events. Each JSON message {"name": ...} received from the
//	client runs one resolution; every state transition is forwarded as it
//	happens (start, node, result, error, end). The connection stays open
//	for further queries until the client disconnects.
//
// Thread Safety: This method is safe for concurrent use. Each connection
// is served by its own goroutine; events for one run are written in order
// from that goroutine only.
func (h *Handlers) HandleResolveStream(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("failed to upgrade the websocket", "error", err)
		return
	}
	defer ws.Close()
	slog.Info("stream client connected", "remote", ws.RemoteAddr().String())

	for {
		var req ResolveRequest
		if err := ws.ReadJSON(&req); err != nil {
			slog.Info("stream client disconnected", "error", err.Error())
			return
		}

		writeErr := error(nil)
		emit := func(ev workflow.Event) {
			if writeErr == nil {
				writeErr = sendJSON(ws, ev)
			}
		}

		// Workflow errors are already reported to the client as an error
		// event by the state machine; nothing more to send here.
		if _, err := h.svc.ResolveStream(c.Request.Context(), req.Name, emit); err != nil {
			slog.Debug("streamed resolution failed", "error", err)
		}
		if writeErr != nil {
			return
		}
	}
}
