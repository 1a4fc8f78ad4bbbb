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

package hub_test

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starsnet/stars/internal/hub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*hub.Hub, net.Listener) {
	t.Helper()
	libDir := t.TempDir()
	keyDir := t.TempDir()
	h := hub.New(libDir, keyDir, time.Second, nil)
	require.NoError(t, h.LoadPolicy())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go h.Serve(ln)
	t.Cleanup(func() { _ = h.Close() })
	return h, ln
}

func dialAndHandshake(t *testing.T, addr, keyDir, name, key string) net.Conn {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(keyDir, name+".key"), []byte(key+"\n"), 0o600))

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	nonceLine, err := r.ReadString('\n')
	require.NoError(t, err)
	nonce := strings.TrimSpace(nonceLine)

	sum := sha256.Sum256([]byte(key + nonce))
	digest := hex.EncodeToString(sum[:])
	_, err = conn.Write([]byte(name + " " + digest + "\n"))
	require.NoError(t, err)

	okLine, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, okLine, "Ok:")

	return conn
}

func TestHub_EndToEndRouting(t *testing.T) {
	t.Parallel()
	h, ln := newTestHub(t)
	keyDir := h.Handshake.KeyDir

	a := dialAndHandshake(t, ln.Addr().String(), keyDir, "A", "secretA")
	defer a.Close()
	b := dialAndHandshake(t, ln.Addr().String(), keyDir, "B", "secretB")
	defer b.Close()

	_, err := a.Write([]byte("B Hello\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(b).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "A>B Hello\n", line)
}

func TestHub_ExitClosesConnectionAndRemovesFromDirectory(t *testing.T) {
	t.Parallel()
	h, ln := newTestHub(t)
	keyDir := h.Handshake.KeyDir

	a := dialAndHandshake(t, ln.Addr().String(), keyDir, "A", "secretA")
	defer a.Close()

	_, err := a.Write([]byte("exit\n"))
	require.NoError(t, err)

	buf := make([]byte, 1)
	_ = a.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = a.Read(buf)
	assert.Error(t, err)

	assert.Eventually(t, func() bool { return !h.Directory.Online("A") }, time.Second, 10*time.Millisecond)
}
