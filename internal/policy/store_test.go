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

package policy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starsnet/stars/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestStore_LoadAll_MissingFilesMeanNoRules(t *testing.T) {
	t.Parallel()
	s := policy.New(t.TempDir())
	require.NoError(t, s.LoadAll())

	assert.False(t, s.CommandDenied("A", "B", "anything"))
	assert.True(t, s.HostAllowed("*", "1.2.3.4", "1.2.3.4"))
	assert.False(t, s.ReconnectAllowed("1.2.3.4", "1.2.3.4", "A"))
	assert.False(t, s.ShutdownAllowed("A"))
}

func TestStore_LoadAll_DenyListDenies(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "cmddeny", "* B secret*\n")
	s := policy.New(dir)
	require.NoError(t, s.LoadAll())

	assert.True(t, s.CommandDenied("A", "B", "secret 1"))
	assert.False(t, s.CommandDenied("A", "B", "public"))
}

func TestStore_LoadAll_AllowListDeniesUnlisted(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "cmdallow", "A B hello\n")
	s := policy.New(dir)
	require.NoError(t, s.LoadAll())

	assert.False(t, s.CommandDenied("A", "B", "hello"))
	assert.True(t, s.CommandDenied("A", "B", "goodbye"))
}

func TestStore_AliasResolution(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "aliases", "Alice=A\n")
	s := policy.New(dir)
	require.NoError(t, s.LoadAll())

	assert.Equal(t, "A", s.ResolveDestination("Alice"))
	assert.Equal(t, "A.temp", s.ResolveDestination("Alice.temp"))
	assert.Equal(t, "B", s.ResolveDestination("B"), "unaliased names are returned unchanged")
	assert.Equal(t, "Alice", s.ResolveOriginatorAlias("A"))
	assert.Equal(t, "B", s.ResolveOriginatorAlias("B"), "names without an alias are returned unchanged")
}

func TestStore_ListAliases_SortedAliasEqualsReal(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "aliases", "Zed=A\nAlice=A\n")
	s := policy.New(dir)
	require.NoError(t, s.LoadAll())

	assert.Equal(t, []string{"Alice=A", "Zed=A"}, s.ListAliases())
}

func TestStore_ReconnectAllowedFromTable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "reconnecttable", "10.0.0.* PumpA\n")
	s := policy.New(dir)
	require.NoError(t, s.LoadAll())

	assert.True(t, s.ReconnectAllowed("10.0.0.5", "10.0.0.5", "PumpA"))
	assert.False(t, s.ReconnectAllowed("10.0.0.5", "10.0.0.5", "PumpB"))
}

func TestStore_ShutdownAllowedFromTable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "shutallow", "Operator\n")
	s := policy.New(dir)
	require.NoError(t, s.LoadAll())

	assert.True(t, s.ShutdownAllowed("Operator"))
	assert.False(t, s.ShutdownAllowed("A"))
}

func TestStore_LoadCommandPermissions_MalformedFileErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "cmdallow", "only two\n")
	s := policy.New(dir)
	require.Error(t, s.LoadCommandPermissions())
}
