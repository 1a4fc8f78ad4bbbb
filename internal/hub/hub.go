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

// Package hub wires the directory, policy store, handshake engine,
// router and System handler together behind a TCP listener. One
// goroutine runs accept; one goroutine per connected node runs its
// read loop. A panic in a read loop is contained to that connection.
package hub

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"runtime/debug"
	"time"

	"github.com/starsnet/stars/internal/directory"
	"github.com/starsnet/stars/internal/events"
	"github.com/starsnet/stars/internal/handshake"
	"github.com/starsnet/stars/internal/lifecycle"
	"github.com/starsnet/stars/internal/metrics"
	"github.com/starsnet/stars/internal/policy"
	"github.com/starsnet/stars/internal/protocol"
	"github.com/starsnet/stars/internal/router"
	"github.com/starsnet/stars/internal/system"
)

// Hub owns every shared resource and the listener loop.
type Hub struct {
	Directory *directory.Directory
	Policy    *policy.Store
	Events    *events.Emitter
	Metrics   *metrics.Metrics

	Handshake *handshake.Engine
	Router    *router.Router

	listener net.Listener
}

// New builds a Hub with all of its component wiring, given a
// configured handshake engine read timeout and key directory.
func New(libDir, keyDir string, readTimeout time.Duration, m *metrics.Metrics) *Hub {
	dir := directory.New()
	pol := policy.New(libDir)
	em := events.NewEmitter()
	sys := &system.Handler{Directory: dir, Policy: pol, Events: em, Metrics: m, StartedAt: time.Now()}

	return &Hub{
		Directory: dir,
		Policy:    pol,
		Events:    em,
		Metrics:   m,
		Handshake: &handshake.Engine{
			Directory:   dir,
			Policy:      pol,
			Events:      em,
			Metrics:     m,
			KeyDir:      keyDir,
			ReadTimeout: readTimeout,
		},
		Router: &router.Router{
			Directory: dir,
			Policy:    pol,
			Events:    em,
			System:    sys,
		},
	}
}

// LoadPolicy performs the initial, fatal-on-error load of every
// permission and alias file (§7 error kind 1). Shutdown-permission
// absence is tolerated elsewhere (policy.Store.ShutdownAllowed simply
// denies); every other file load error here is fatal at startup.
func (h *Hub) LoadPolicy() error {
	return h.Policy.LoadAll()
}

// Serve accepts connections on ln until it is closed. It blocks the
// calling goroutine; callers typically invoke it in its own goroutine
// and close ln to stop it.
func (h *Hub) Serve(ln net.Listener) error {
	h.listener = ln
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go h.handleConn(conn)
	}
}

// Close stops accepting new connections and shuts down every
// registered node's socket.
func (h *Hub) Close() error {
	var err error
	if h.listener != nil {
		err = h.listener.Close()
	}
	h.Directory.Shutdown()
	return err
}

func (h *Hub) handleConn(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("connection handler panic", "panic", r, "stack", string(debug.Stack()))
			_ = conn.Close()
		}
	}()

	node, err := h.Handshake.Perform(conn)
	if err != nil {
		slog.Info("handshake rejected", "error", err, "remote", conn.RemoteAddr())
		return
	}

	slog.Info("node connected", "node", node.Name, "host", node.Host)
	h.readLoop(node)
}

func (h *Hub) readLoop(node *directory.Node) {
	defer lifecycle.Remove(h.Directory, h.Policy, h.Events, node.Name, node)

	framer := protocol.NewFramer(node.Conn)
	for {
		frame, err := framer.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Info("read error, closing connection", "node", node.Name, "error", err)
			}
			return
		}

		if protocol.IsExit(frame) {
			return
		}

		h.Router.Route(node.Name, frame)
	}
}
