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

// Package system implements the built-in verbs of the virtual System
// node (§4.5). System is never present in the node directory and
// cannot be addressed as a subscriber.
package system

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/starsnet/stars/internal/directory"
	"github.com/starsnet/stars/internal/events"
	"github.com/starsnet/stars/internal/lifecycle"
	"github.com/starsnet/stars/internal/metrics"
	"github.com/starsnet/stars/internal/policy"
	"github.com/starsnet/stars/internal/sdk"
)

// Verbs supported by the virtual System node, in help-text order.
var Verbs = []string{
	"hello", "gettime", "getversion", "help", "listnodes", "listaliases",
	"loadpermission", "loadreconnectablepermission", "loadaliases",
	"flgon", "flgoff", "disconnect", "shutdown", "uptime",
}

// Handler dispatches command-class frames addressed to System.
type Handler struct {
	Directory *directory.Directory
	Policy    *policy.Store
	Events    *events.Emitter
	Metrics   *metrics.Metrics

	// StartedAt is when the hub began serving; uptime is measured from
	// here. Zero means "not set", in which case uptime reports 0s.
	StartedAt time.Time

	// Shutdown is invoked once shutdown has broadcast SYSTEMSHUTDOWN and
	// closed every socket; it terminates the process. Tests may
	// substitute a recording stub instead of os.Exit.
	Shutdown func(code int)
}

func (h *Handler) uptime() time.Duration {
	if h.StartedAt.IsZero() {
		return 0
	}
	return time.Since(h.StartedAt).Round(time.Second)
}

func (h *Handler) shutdownFn() func(int) {
	if h.Shutdown != nil {
		return h.Shutdown
	}
	return os.Exit
}

// Handle processes one command-class frame addressed to System on
// behalf of fromnode (the authenticated socket identity), displayed as
// displayedFrom (the frame's from-override if it carried one, otherwise
// fromnode; no alias is applied to it).
// payload is the verb plus its argument, without the leading address.
func (h *Handler) Handle(fromnode, displayedFrom, payload string) {
	verb, arg, _ := strings.Cut(payload, " ")
	arg = strings.TrimSpace(arg)

	if h.Metrics != nil {
		h.Metrics.RecordSystemCommand(verb)
	}

	if arg == "" {
		switch strings.ToLower(verb) {
		case "flgon", "flgoff", "disconnect":
			h.reply(fromnode, displayedFrom, verb, "Er: Command is not found or parameter is not enough!")
			return
		}
	}

	switch strings.ToLower(verb) {
	case "hello":
		h.reply(fromnode, displayedFrom, verb, "Nice to meet you.")
	case "gettime":
		h.reply(fromnode, displayedFrom, verb, time.Now().Format("2006/01/02 15:04:05"))
	case "getversion":
		h.reply(fromnode, displayedFrom, verb, sdk.Version)
	case "help":
		h.reply(fromnode, displayedFrom, verb, strings.Join(Verbs, " "))
	case "listnodes":
		h.reply(fromnode, displayedFrom, verb, strings.Join(h.Directory.Names(), " "))
	case "listaliases":
		h.reply(fromnode, displayedFrom, verb, strings.Join(h.Policy.ListAliases(), " "))
	case "loadpermission":
		h.reloadReply(fromnode, displayedFrom, verb, h.Policy.LoadCommandPermissions())
	case "loadreconnectablepermission":
		h.reloadReply(fromnode, displayedFrom, verb, h.Policy.LoadReconnectPermissions())
	case "loadaliases":
		h.reloadReply(fromnode, displayedFrom, verb, h.Policy.LoadAliases())
	case "flgon":
		h.handleFlgon(fromnode, displayedFrom, verb, arg)
	case "flgoff":
		h.handleFlgoff(fromnode, displayedFrom, verb, arg)
	case "disconnect":
		h.handleDisconnect(fromnode, displayedFrom, verb, arg)
	case "shutdown":
		h.handleShutdown(fromnode, displayedFrom, verb)
	case "uptime":
		h.reply(fromnode, displayedFrom, verb, h.uptime().String())
	default:
		h.reply(fromnode, displayedFrom, verb, "Er: Command is not found or parameter is not enough!")
	}
}

// HandleEvent delivers an event-class frame (payload starting with
// "_") addressed to System: it is never routed, only broadcast to
// fromnode's subscribers.
func (h *Handler) HandleEvent(fromnode, payload string) {
	for _, note := range h.Policy.MatchingSubscriptions(fromnode) {
		h.Directory.WriteTo(note.Subscriber, fmt.Sprintf("%s>%s %s\n", fromnode, note.WatchedPath, payload))
	}
}

// reply sends a System verb response to fromnode's socket, displaying
// the originator as displayedFrom in the addressing token (§4.5: all
// replies take the form "System>displayed_from @verb[ text]\n").
func (h *Handler) reply(fromnode, displayedFrom, verb, text string) {
	line := fmt.Sprintf("System>%s @%s", displayedFrom, verb)
	if text != "" {
		line += " " + text
	}
	h.Directory.WriteTo(fromnode, line+"\n")
}

func (h *Handler) reloadReply(fromnode, displayedFrom, verb string, err error) {
	if err != nil {
		h.reply(fromnode, displayedFrom, verb, "Er: "+err.Error())
		return
	}
	h.reply(fromnode, displayedFrom, verb, "Ok.")
}

func (h *Handler) handleFlgon(fromnode, displayedFrom, verb, path string) {
	err := h.Policy.Subscribe(fromnode, path)
	switch {
	case err == nil:
		h.reply(fromnode, displayedFrom, verb, fmt.Sprintf("Node %s has been registered.", path))
	case err == policy.ErrAlreadySubscribed:
		h.reply(fromnode, displayedFrom, verb, fmt.Sprintf("Er: Node %s is allready in the list.", path))
	default:
		h.reply(fromnode, displayedFrom, verb, "Er: "+err.Error())
	}
}

func (h *Handler) handleFlgoff(fromnode, displayedFrom, verb, path string) {
	err := h.Policy.Unsubscribe(fromnode, path)
	switch {
	case err == nil:
		h.reply(fromnode, displayedFrom, verb, fmt.Sprintf("Node %s has been removed.", path))
	case err == policy.ErrNoSubscriptions:
		h.reply(fromnode, displayedFrom, verb, "Er: List is void.")
	case err == policy.ErrNotSubscribed:
		h.reply(fromnode, displayedFrom, verb, fmt.Sprintf("Er: Node %s is not in the list.", path))
	default:
		h.reply(fromnode, displayedFrom, verb, "Er: "+err.Error())
	}
}

func (h *Handler) handleDisconnect(fromnode, displayedFrom, verb, name string) {
	real := h.Policy.ResolveDestination(name)
	victim, online := h.Directory.Get(real)
	if !online {
		h.reply(fromnode, displayedFrom, verb, fmt.Sprintf("Er: Node %s is down.", real))
		return
	}
	h.reply(fromnode, displayedFrom, verb, real+".")
	lifecycle.Remove(h.Directory, h.Policy, h.Events, real, victim)
}

func (h *Handler) handleShutdown(fromnode, displayedFrom, verb string) {
	if !h.Policy.ShutdownAllowed(displayedFrom) {
		h.reply(fromnode, displayedFrom, verb, "Er: Command denied.")
		return
	}
	names := h.Directory.Names()
	sort.Strings(names)
	for _, name := range names {
		h.Directory.WriteTo(name, fmt.Sprintf("System>%s SYSTEMSHUTDOWN\n", name))
	}
	slog.Warn("shutdown requested", "by", displayedFrom)
	h.Directory.Shutdown()
	h.shutdownFn()(0)
}
