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

// Package directory holds the in-memory node registry: the sole
// authority for "is node X online, and if so, what is its socket."
package directory

import (
	"net"
	"sort"
	"sync"
)

// Node is a registered connection.
type Node struct {
	Name     string
	Conn     net.Conn
	Host     string
	IP       string
	shutdown sync.Once
}

// Close shuts the node's socket down exactly once. Safe to call
// concurrently and more than once.
func (n *Node) Close() {
	n.shutdown.Do(func() {
		_ = n.Conn.Close()
	})
}

// Directory is the node-name -> *Node registry. The directory lock is
// the outer lock in the mandated lock order: directory, then policy
// store. It is never acquired while holding the policy-store lock.
type Directory struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// New constructs an empty Directory.
func New() *Directory {
	return &Directory{nodes: make(map[string]*Node)}
}

// Insert registers node under its Name. Callers must ensure name
// collisions were already resolved (evicted or rejected) before calling.
func (d *Directory) Insert(n *Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nodes[n.Name] = n
}

// Get returns the node registered under name, if any.
func (d *Directory) Get(name string) (*Node, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.nodes[name]
	return n, ok
}

// Online reports whether name is currently registered.
func (d *Directory) Online(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.nodes[name]
	return ok
}

// Delete removes name from the directory, closing its socket exactly
// once. It is a no-op if name is not present, or if the node present
// under name is not the same connection as expect (expect may be nil to
// skip the identity check). Reader-loop teardown passes its own node, so
// its delete is a no-op once an eviction has replaced the entry.
func (d *Directory) Delete(name string, expect *Node) (removed *Node, ok bool) {
	d.mu.Lock()
	n, present := d.nodes[name]
	if !present {
		d.mu.Unlock()
		return nil, false
	}
	if expect != nil && n != expect {
		d.mu.Unlock()
		return nil, false
	}
	delete(d.nodes, name)
	d.mu.Unlock()
	n.Close()
	return n, true
}

// WriteTo looks up name and writes line to its socket while holding the
// directory lock, per the mandated "write under directory lock"
// invariant. Returns false if name is not registered.
func (d *Directory) WriteTo(name string, line string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.nodes[name]
	if !ok {
		return false
	}
	_, err := n.Conn.Write([]byte(line))
	return err == nil
}

// Names returns a sorted snapshot of every registered node name.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.nodes))
	for name := range d.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered nodes.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.nodes)
}

// Shutdown closes every registered node's socket, for process shutdown.
func (d *Directory) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range d.nodes {
		n.Close()
	}
}
