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

// Package lifecycle implements node removal (§4.6), the one sequence of
// steps shared by every path a node can leave through: reader EOF,
// exit/quit, eviction on reconnect, System.disconnect, and
// System.shutdown.
package lifecycle

import (
	"fmt"

	"github.com/starsnet/stars/internal/directory"
	"github.com/starsnet/stars/internal/events"
	"github.com/starsnet/stars/internal/policy"
)

// Remove tears a node down: deregister it from the directory, drop its
// own subscriptions, notify its subscribers, and emit NodeDisconnected.
// expect may be nil to skip the identity check (see Directory.Delete).
// Remove is a no-op if name is not currently registered under expect.
func Remove(dir *directory.Directory, pol *policy.Store, em *events.Emitter, name string, expect *directory.Node) {
	_, ok := dir.Delete(name, expect)
	if !ok {
		return
	}

	pol.RemoveSubscriber(name)

	displayed := pol.ResolveOriginatorAlias(name)
	for _, note := range pol.MatchingSubscriptions(name) {
		dir.WriteTo(note.Subscriber, fmt.Sprintf("%s>%s _Disconnected\n", displayed, note.WatchedPath))
	}

	em.EmitNodeDisconnected(name)
}
