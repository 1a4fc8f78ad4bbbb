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

// Package router implements the STARS message router (§4.4): alias
// resolution, policy filtering, and delivery to either the directory
// or the virtual System node.
package router

import (
	"fmt"
	"strings"

	"github.com/starsnet/stars/internal/directory"
	"github.com/starsnet/stars/internal/events"
	"github.com/starsnet/stars/internal/policy"
	"github.com/starsnet/stars/internal/protocol"
	"github.com/starsnet/stars/internal/system"
)

const systemNodeName = "System"

// payloadClass is the classification of a frame's payload (§4.4 step 2).
type payloadClass int

const (
	classCommand payloadClass = iota
	classEvent
	classReply
)

func classify(payload string) payloadClass {
	switch {
	case strings.HasPrefix(payload, "_"):
		return classEvent
	case strings.HasPrefix(payload, "@"):
		return classReply
	default:
		return classCommand
	}
}

// Router wires the directory, policy store, event emitter and System
// handler together to route one parsed frame at a time.
type Router struct {
	Directory *directory.Directory
	Policy    *policy.Store
	Events    *events.Emitter
	System    *system.Handler
}

// Route processes one frame received from fromnode (the authenticated
// socket identity). raw is the unparsed line as read off the wire.
func (r *Router) Route(fromnode, raw string) {
	frame, ok := protocol.Parse(raw)
	displayedFrom := fromnode
	if frame.HasFromOverride {
		displayedFrom = frame.FromOverride
	}
	if !ok {
		r.Directory.WriteTo(fromnode, fmt.Sprintf("System>%s> @\n", displayedFrom))
		return
	}

	toAddress := r.Policy.ResolveDestination(frame.To)
	class := classify(frame.Payload)

	toHead, _, _ := strings.Cut(toAddress, ".")

	if toHead == systemNodeName {
		if class == classEvent {
			// Events addressed to System are never routed; they are
			// rebroadcast to fromnode's own subscribers (§4.5).
			r.System.HandleEvent(fromnode, frame.Payload)
			return
		}
		if class == classCommand && r.denied(fromnode, toAddress, frame.Payload) {
			r.denyReply(fromnode, displayedFrom, frame.Payload)
			return
		}
		r.System.Handle(fromnode, displayedFrom, frame.Payload)
		return
	}

	if class == classCommand && r.denied(fromnode, toAddress, frame.Payload) {
		r.denyReply(fromnode, displayedFrom, frame.Payload)
		return
	}

	if _, online := r.Directory.Get(toHead); online {
		displayedFrom = r.Policy.ResolveOriginatorAlias(fromnode)
		if frame.HasFromOverride {
			displayedFrom = frame.FromOverride
		}
		r.Directory.WriteTo(toHead, fmt.Sprintf("%s>%s %s\n", displayedFrom, toAddress, frame.Payload))
		r.Events.EmitMessageRouted(displayedFrom, toAddress)
		return
	}

	if class == classCommand {
		r.Directory.WriteTo(fromnode, fmt.Sprintf("System>%s @%s Er: %s is down.\n", displayedFrom, frame.Payload, toHead))
	}
}

func (r *Router) denied(fromnode, toAddress, payload string) bool {
	return r.Policy.CommandDenied(fromnode, toAddress, payload)
}

func (r *Router) denyReply(fromnode, displayedFrom, payload string) {
	r.Directory.WriteTo(fromnode, fmt.Sprintf("System>%s @%s Er: Command denied.\n", displayedFrom, payload))
}
