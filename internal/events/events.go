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

// Package events implements the one-way, lossy, non-blocking activity
// feed consumed by external observers such as the visualizer bridge.
//
// The core (directory, policy store, router) never blocks on a slow or
// absent observer: Emit always returns immediately, dropping the event
// for any subscriber whose channel is full.
package events

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// Kind identifies the class of a Event.
type Kind string

const (
	// NodeConnected fires when a node completes the handshake and joins the directory.
	NodeConnected Kind = "node_connected"
	// NodeDisconnected fires when a node leaves the directory, for any reason.
	NodeDisconnected Kind = "node_disconnected"
	// MessageRouted fires for every message the router delivers to a destination.
	MessageRouted Kind = "message_routed"
)

// Event is a single activity record. From/To are populated only for
// MessageRouted; Name is populated only for NodeConnected/NodeDisconnected.
type Event struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Emitter fans Events out to any number of registered sinks.
type Emitter struct {
	sinks   *xsync.Map[uint64, chan Event]
	nextID  atomic.Uint64
	dropped atomic.Uint64
}

// NewEmitter constructs an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		sinks: xsync.NewMap[uint64, chan Event](),
	}
}

// Sink is a registered subscription. Close deregisters it.
type Sink struct {
	id uint64
	ch chan Event
	em *Emitter
}

// Channel returns the channel events for this sink arrive on.
func (s *Sink) Channel() <-chan Event {
	return s.ch
}

// Close deregisters the sink so later Emit calls skip it. The channel is
// neither closed nor drained.
func (s *Sink) Close() {
	s.em.sinks.Delete(s.id)
}

const sinkBuffer = 64

// Subscribe registers a new sink. The caller must call Close when done.
func (e *Emitter) Subscribe() *Sink {
	id := e.nextID.Add(1)
	ch := make(chan Event, sinkBuffer)
	e.sinks.Store(id, ch)
	return &Sink{id: id, ch: ch, em: e}
}

// Emit delivers ev to every registered sink, never blocking. A full sink
// channel silently drops the event and increments the dropped counter.
func (e *Emitter) Emit(ev Event) {
	e.sinks.Range(func(_ uint64, ch chan Event) bool {
		select {
		case ch <- ev:
		default:
			e.dropped.Add(1)
		}
		return true
	})
}

// Dropped returns the total number of events dropped since startup,
// for metrics exposition.
func (e *Emitter) Dropped() uint64 {
	return e.dropped.Load()
}

// EmitNodeConnected is a convenience wrapper around Emit.
func (e *Emitter) EmitNodeConnected(name string) {
	e.Emit(Event{Kind: NodeConnected, Name: name})
}

// EmitNodeDisconnected is a convenience wrapper around Emit.
func (e *Emitter) EmitNodeDisconnected(name string) {
	e.Emit(Event{Kind: NodeDisconnected, Name: name})
}

// EmitMessageRouted is a convenience wrapper around Emit.
func (e *Emitter) EmitMessageRouted(from, to string) {
	e.Emit(Event{Kind: MessageRouted, From: from, To: to})
}
