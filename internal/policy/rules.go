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

package policy

import "path"

// CommandRule binds a (from, to, command) glob triple to a decision.
// Rules are evaluated top-to-bottom; the first match wins.
type CommandRule struct {
	From    string
	To      string
	Command string
}

// Match reports whether from, to, and command all satisfy the rule's
// glob patterns. Patterns use path.Match syntax (*, ?, [...]).
func (r CommandRule) Match(from, to, command string) bool {
	return globMatch(r.From, from) && globMatch(r.To, to) && globMatch(r.Command, command)
}

// CommandRuleSet matches if any rule in it matches.
type CommandRuleSet []CommandRule

// Match reports whether any rule in the set matches the triple.
func (rs CommandRuleSet) Match(from, to, command string) bool {
	for _, r := range rs {
		if r.Match(from, to, command) {
			return true
		}
	}
	return false
}

// HostRule binds a (node-name, host-or-ip) glob pair. A rule whose Name
// pattern is exactly "*" matches the pre-handshake global check, where
// the node's name is not yet known; a rule naming a specific node
// pattern only matches the post-handshake, name-specific check.
type HostRule struct {
	Name string
	Host string
}

// Match reports whether name and one of host or ip satisfy the rule.
func (r HostRule) Match(name, host, ip string) bool {
	if !globMatch(r.Name, name) {
		return false
	}
	return globMatch(r.Host, host) || globMatch(r.Host, ip)
}

// HostRuleSet is an allow-list: empty means allow everyone, non-empty
// means allow only what matches.
type HostRuleSet []HostRule

// Allowed reports whether the set is empty (allow-all) or some rule
// matches (name, host, ip).
func (rs HostRuleSet) Allowed(name, host, ip string) bool {
	if len(rs) == 0 {
		return true
	}
	for _, r := range rs {
		if r.Match(name, host, ip) {
			return true
		}
	}
	return false
}

// ReconnectRule governs whether a new connection presenting an
// already-registered name may evict the incumbent.
type ReconnectRule struct {
	Host string
	Name string
}

// Match reports whether host or ip, and name, satisfy the rule.
func (r ReconnectRule) Match(host, ip, name string) bool {
	return (globMatch(r.Host, host) || globMatch(r.Host, ip)) && globMatch(r.Name, name)
}

// ReconnectRuleSet is a deny-by-default list: a new connection may only
// evict an incumbent if some rule explicitly matches. An empty or
// missing reconnect-permission file means reconnection is never
// permitted, mirroring the shutdown-permission default in §7.1.
type ReconnectRuleSet []ReconnectRule

// Allowed reports whether some rule permits the reconnect.
func (rs ReconnectRuleSet) Allowed(host, ip, name string) bool {
	for _, r := range rs {
		if r.Match(host, ip, name) {
			return true
		}
	}
	return false
}

// ShutAllowRuleSet lists the name patterns permitted to invoke
// System.shutdown. Empty means always denied.
type ShutAllowRuleSet []string

// Allowed reports whether name matches any pattern in the set.
func (rs ShutAllowRuleSet) Allowed(name string) bool {
	for _, pattern := range rs {
		if globMatch(pattern, name) {
			return true
		}
	}
	return false
}

func globMatch(pattern, s string) bool {
	if pattern == "" {
		return false
	}
	ok, err := path.Match(pattern, s)
	return err == nil && ok
}
