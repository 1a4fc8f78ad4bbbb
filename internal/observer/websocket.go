// SPDX-License-Identifier: AGPL-3.0-or-later
// STARS - a text-line message broker for distributed laboratory instrument control
// Copyright (C) 2023-2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package observer

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/starsnet/stars/internal/events"
)

const wsBufferSize = 1024

type wsHandler struct {
	upgrader websocket.Upgrader
	emitter  *events.Emitter
}

func newWSHandler(emitter *events.Emitter) *wsHandler {
	return &wsHandler{
		emitter: emitter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsBufferSize,
			WriteBufferSize: wsBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// eventsHandler upgrades the request to a WebSocket and streams
// newline-delimited JSON Events from a fresh Emitter subscription until
// the client disconnects or a write fails. A pure observer: nothing read
// from the client feeds back into the core.
func (h *wsHandler) eventsHandler(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("observer: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sink := h.emitter.Subscribe()
	defer sink.Close()

	readFailed := make(chan struct{})
	go func() {
		defer close(readFailed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-readFailed:
			return
		case ev, ok := <-sink.Channel():
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				slog.Error("observer: failed to marshal event", "error", err)
				continue
			}
			payload = append(payload, '\n')
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
