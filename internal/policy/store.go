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

// Package policy holds the command allow/deny lists, the host and
// reconnect permission tables, the alias table, and the subscription
// table — everything the spec calls "the policy store." All of it sits
// behind one mutex, the inner lock in the mandated directory ->
// policy-store lock order.
package policy

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/hashstructure/v2"
)

const (
	cmdAllowFile  = "cmdallow"
	cmdDenyFile   = "cmddeny"
	reconnectFile = "reconnecttable"
	shutAllowFile = "shutallow"
	hostListFile  = "hostlist"
	aliasFile     = "aliases"
)

// Store holds every reloadable policy artifact plus the live
// subscription table. The subscription table is not file-backed; it is
// mutated directly by flgon/flgoff and by node disconnects.
type Store struct {
	mu sync.RWMutex

	libDir string

	cmdAllow  CommandRuleSet
	cmdDeny   CommandRuleSet
	reconnect ReconnectRuleSet
	shutAllow ShutAllowRuleSet
	hostlist  HostRuleSet

	aliasToReal map[string]string
	realToAlias map[string]string // first alias, alphabetically, per real name

	// subscriber -> set of watched paths
	subscriptions map[string]map[string]struct{}

	ruleHash uint64
}

// New constructs a Store rooted at libDir. Call LoadAll before serving
// traffic.
func New(libDir string) *Store {
	return &Store{
		libDir:        libDir,
		aliasToReal:   map[string]string{},
		realToAlias:   map[string]string{},
		subscriptions: map[string]map[string]struct{}{},
	}
}

type snapshot struct {
	CmdAllow  CommandRuleSet
	CmdDeny   CommandRuleSet
	Reconnect ReconnectRuleSet
	ShutAllow ShutAllowRuleSet
	Hostlist  HostRuleSet
	Aliases   map[string]string
}

// LoadAll re-reads every policy file. On success it swaps the new rules
// in under the write lock and logs whether the effective policy
// actually changed, via a hashstructure digest of the loaded snapshot.
func (s *Store) LoadAll() error {
	cmdAllow, err := loadCommandRules(filepath.Join(s.libDir, cmdAllowFile))
	if err != nil {
		return err
	}
	cmdDeny, err := loadCommandRules(filepath.Join(s.libDir, cmdDenyFile))
	if err != nil {
		return err
	}
	reconnect, err := loadReconnectRules(filepath.Join(s.libDir, reconnectFile))
	if err != nil {
		return err
	}
	shutAllow, err := loadShutAllowRules(filepath.Join(s.libDir, shutAllowFile))
	if err != nil {
		return err
	}
	hostlist, err := loadHostRules(filepath.Join(s.libDir, hostListFile))
	if err != nil {
		return err
	}
	aliases, err := loadAliasFile(filepath.Join(s.libDir, aliasFile))
	if err != nil {
		return err
	}

	snap := snapshot{cmdAllow, cmdDeny, reconnect, shutAllow, hostlist, aliases}
	hash, err := hashstructure.Hash(snap, hashstructure.FormatV2, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.ruleHash != hash || s.aliasToReal == nil
	s.cmdAllow = cmdAllow
	s.cmdDeny = cmdDeny
	s.reconnect = reconnect
	s.shutAllow = shutAllow
	s.hostlist = hostlist
	s.aliasToReal = aliases
	s.realToAlias = invertAliases(aliases)
	s.ruleHash = hash

	if changed {
		slog.Info("policy reloaded", "cmdallow", len(cmdAllow), "cmddeny", len(cmdDeny),
			"reconnecttable", len(reconnect), "shutallow", len(shutAllow), "hostlist", len(hostlist), "aliases", len(aliases))
	} else {
		slog.Info("policy reloaded, no effective change")
	}
	return nil
}

// LoadCommandPermissions re-reads only cmdallow/cmddeny.
func (s *Store) LoadCommandPermissions() error {
	cmdAllow, err := loadCommandRules(filepath.Join(s.libDir, cmdAllowFile))
	if err != nil {
		return err
	}
	cmdDeny, err := loadCommandRules(filepath.Join(s.libDir, cmdDenyFile))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmdAllow = cmdAllow
	s.cmdDeny = cmdDeny
	return nil
}

// LoadReconnectPermissions re-reads only the reconnect table.
func (s *Store) LoadReconnectPermissions() error {
	reconnect, err := loadReconnectRules(filepath.Join(s.libDir, reconnectFile))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnect = reconnect
	return nil
}

// LoadAliases re-reads only the alias file.
func (s *Store) LoadAliases() error {
	aliases, err := loadAliasFile(filepath.Join(s.libDir, aliasFile))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliasToReal = aliases
	s.realToAlias = invertAliases(aliases)
	return nil
}

func invertAliases(aliasToReal map[string]string) map[string]string {
	byReal := map[string][]string{}
	for alias, real := range aliasToReal {
		byReal[real] = append(byReal[real], alias)
	}
	inverted := make(map[string]string, len(byReal))
	for real, aliases := range byReal {
		sort.Strings(aliases)
		inverted[real] = aliases[0]
	}
	return inverted
}

// ErrCmdRuleFileMissing names a hard failure loading required policy
// files. No loader in this package returns it: LoadAll and the Load*
// methods return the underlying open, read or parse error directly.
var ErrCmdRuleFileMissing = errors.New("required policy file could not be read")

// ResolveDestination applies alias->real once to a destination address,
// per §4.4 step 1. Only the address's leading (pre-dot) segment is
// resolved; everything after the first dot is a sub-path under it.
func (s *Store) ResolveDestination(address string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveAliasHead(address, s.aliasToReal)
}

// ResolveOriginatorAlias rewrites a real node name into its public alias
// for delivery, per §4.4 step 4. If the name has no alias, it is
// returned unchanged.
func (s *Store) ResolveOriginatorAlias(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveAliasHead(name, s.realToAlias)
}

func (s *Store) resolveAliasHead(address string, table map[string]string) string {
	head, rest, hasRest := strings.Cut(address, ".")
	resolved, ok := table[head]
	if !ok {
		return address
	}
	if hasRest {
		return resolved + "." + rest
	}
	return resolved
}

// ListAliases returns "alias=real" pairs sorted by alias, for the
// listaliases verb.
func (s *Store) ListAliases() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pairs := make([]string, 0, len(s.aliasToReal))
	aliases := make([]string, 0, len(s.aliasToReal))
	for alias := range s.aliasToReal {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		pairs = append(pairs, alias+"="+s.aliasToReal[alias])
	}
	return pairs
}

// CommandDenied applies §4.4 step 3: deny if cmddeny matches, or if
// cmdallow is non-empty and fails to match.
func (s *Store) CommandDenied(from, to, command string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.cmdDeny) > 0 && s.cmdDeny.Match(from, to, command) {
		return true
	}
	if len(s.cmdAllow) > 0 && !s.cmdAllow.Match(from, to, command) {
		return true
	}
	return false
}

// HostAllowed checks name/host/ip against the hostlist.
func (s *Store) HostAllowed(name, host, ip string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostlist.Allowed(name, host, ip)
}

// ReconnectAllowed checks whether a new connection from host/ip may
// evict the incumbent registered under name.
func (s *Store) ReconnectAllowed(host, ip, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reconnect.Allowed(host, ip, name)
}

// ShutdownAllowed checks whether name may invoke System.shutdown.
func (s *Store) ShutdownAllowed(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shutAllow.Allowed(name)
}
