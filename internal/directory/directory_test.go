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

package directory_test

import (
	"net"
	"testing"

	"github.com/starsnet/stars/internal/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeNode(name string) (*directory.Node, net.Conn) {
	client, server := net.Pipe()
	return &directory.Node{Name: name, Conn: server}, client
}

func TestDirectory_InsertAndGet(t *testing.T) {
	t.Parallel()
	d := directory.New()
	n, client := pipeNode("A")
	defer client.Close()

	d.Insert(n)

	got, ok := d.Get("A")
	require.True(t, ok)
	assert.Same(t, n, got)
	assert.True(t, d.Online("A"))
	assert.Equal(t, 1, d.Count())
}

func TestDirectory_DeleteClosesSocketOnce(t *testing.T) {
	t.Parallel()
	d := directory.New()
	n, client := pipeNode("A")
	defer client.Close()
	d.Insert(n)

	removed, ok := d.Delete("A", nil)
	require.True(t, ok)
	assert.Same(t, n, removed)
	assert.False(t, d.Online("A"))

	// Second delete is a no-op, not a double-close panic.
	_, ok = d.Delete("A", nil)
	assert.False(t, ok)
}

func TestDirectory_DeleteWithWrongExpectIsNoop(t *testing.T) {
	t.Parallel()
	d := directory.New()
	n1, c1 := pipeNode("A")
	defer c1.Close()
	n2, c2 := pipeNode("A")
	defer c2.Close()

	d.Insert(n1)
	d.Insert(n2) // simulate eviction replacing the registry entry

	_, ok := d.Delete("A", n1)
	assert.False(t, ok, "delete must not remove a node that has already been replaced")
	assert.True(t, d.Online("A"))
}

func TestDirectory_NamesSorted(t *testing.T) {
	t.Parallel()
	d := directory.New()
	for _, name := range []string{"Charlie", "Alice", "Bob"} {
		n, c := pipeNode(name)
		defer c.Close()
		d.Insert(n)
	}
	assert.Equal(t, []string{"Alice", "Bob", "Charlie"}, d.Names())
}

func TestDirectory_WriteToMissingNodeReturnsFalse(t *testing.T) {
	t.Parallel()
	d := directory.New()
	assert.False(t, d.WriteTo("ghost", "hi\n"))
}
