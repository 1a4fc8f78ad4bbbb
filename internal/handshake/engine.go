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

package handshake

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/starsnet/stars/internal/directory"
	"github.com/starsnet/stars/internal/events"
	"github.com/starsnet/stars/internal/lifecycle"
	"github.com/starsnet/stars/internal/metrics"
	"github.com/starsnet/stars/internal/policy"
	"github.com/starsnet/stars/internal/protocol"
)

// ErrRejected is returned by Perform for every failure path; the
// connection has already been written to (where applicable) and
// closed by the time it is returned.
var ErrRejected = errors.New("handshake rejected")

// Engine performs the seven-step handshake of §4.1 against a shared
// directory, policy store, and event emitter.
type Engine struct {
	Directory   *directory.Directory
	Policy      *policy.Store
	Events      *events.Emitter
	Metrics     *metrics.Metrics
	KeyDir      string
	ReadTimeout time.Duration
}

func (e *Engine) fail(conn net.Conn, reason, line string) error {
	if line != "" {
		_, _ = conn.Write([]byte(line))
	}
	_ = conn.Close()
	if e.Metrics != nil {
		e.Metrics.RecordHandshakeFailure(reason)
	}
	return fmt.Errorf("%w: %s", ErrRejected, reason)
}

// Perform runs the handshake against a freshly accepted connection. On
// success it returns the new directory.Node, already inserted.
func (e *Engine) Perform(conn net.Conn) (*directory.Node, error) {
	host, ip := remoteIdentity(conn)

	// Step 1: global host check, pre-handshake (node name unknown).
	if !e.Policy.HostAllowed("*", host, ip) {
		return nil, e.fail(conn, "bad_host", fmt.Sprintf("Bad host. %s\n", host))
	}

	// Step 2: nonce challenge.
	nonce, err := NewNonce()
	if err != nil {
		return nil, e.fail(conn, "nonce_error", "")
	}
	if _, err := conn.Write([]byte(nonce + "\n")); err != nil {
		return nil, e.fail(conn, "write_error", "")
	}

	if e.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(e.ReadTimeout))
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return nil, e.fail(conn, "handshake_timeout", "")
	}
	_ = conn.SetReadDeadline(time.Time{})

	// Step 3: reply must be exactly two whitespace-separated tokens.
	fields := strings.Fields(reply)
	if len(fields) != 2 {
		return nil, e.fail(conn, "malformed_reply", "")
	}
	name, digest := fields[0], fields[1]
	if !protocol.ValidName(name) {
		return nil, e.fail(conn, "invalid_name", "")
	}

	// Step 4: name collision / reconnect policy.
	if existing, online := e.Directory.Get(name); online {
		if !e.Policy.ReconnectAllowed(host, ip, name) {
			return nil, e.fail(conn, "name_collision", fmt.Sprintf("System> Er: %s already exists.\n", name))
		}
		lifecycle.Remove(e.Directory, e.Policy, e.Events, name, existing)
		slog.Info("evicted node for reconnect", "node", name, "host", host)
	}

	// Step 5: name-specific host check.
	if !e.Policy.HostAllowed(name, host, ip) {
		return nil, e.fail(conn, "bad_host_for_name", fmt.Sprintf("System> Er: Bad host for %s\n", name))
	}

	// Step 6: key digest verification.
	if !VerifyDigest(e.KeyDir, name, nonce, digest) {
		return nil, e.fail(conn, "bad_key", "System> Er: Bad node name or key\n")
	}

	// Step 7: success.
	if _, err := conn.Write([]byte(fmt.Sprintf("System>%s Ok:\n", name))); err != nil {
		return nil, e.fail(conn, "write_error", "")
	}

	node := &directory.Node{Name: name, Conn: conn, Host: host, IP: ip}
	e.Directory.Insert(node)
	e.Events.EmitNodeConnected(name)

	displayed := e.Policy.ResolveOriginatorAlias(name)
	for _, note := range e.Policy.MatchingSubscriptions(name) {
		e.Directory.WriteTo(note.Subscriber, fmt.Sprintf("%s>%s _Connected\n", displayed, note.WatchedPath))
	}

	return node, nil
}

func remoteIdentity(conn net.Conn) (host, ip string) {
	addr := conn.RemoteAddr().String()
	ip, _, err := net.SplitHostPort(addr)
	if err != nil {
		ip = addr
	}
	names, err := net.LookupAddr(ip)
	if err != nil || len(names) == 0 {
		return ip, ip
	}
	return strings.TrimSuffix(names[0], "."), ip
}
