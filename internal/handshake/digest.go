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

// Package handshake implements the STARS connection handshake: host
// checks, nonce challenge, and key-file digest verification.
package handshake

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
)

const nonceBound = 1 << 16

// NewNonce generates a fresh 16-bit decimal nonce, per §4.1 step 2.
func NewNonce() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(nonceBound))
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return n.String(), nil
}

// Digest computes the expected digest for name's key file and nonce:
// sha256(trimmed key file contents || nonce), hex-encoded: the secret
// comes first and the decimal line-protocol nonce is appended to it.
func Digest(keyDir, name, nonce string) (string, error) {
	keyPath := filepath.Join(keyDir, name+".key")
	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return "", fmt.Errorf("read key file: %w", err)
	}
	key := strings.TrimSpace(string(raw))
	sum := sha256.Sum256([]byte(key + nonce))
	return hex.EncodeToString(sum[:]), nil
}

// VerifyDigest reports whether digest matches the expected value for
// name/nonce under keyDir. A missing or unreadable key file is treated
// as a verification failure, not a protocol error — the caller always
// replies with the generic "bad node name or key" message.
func VerifyDigest(keyDir, name, nonce, digest string) bool {
	expected, err := Digest(keyDir, name, nonce)
	if err != nil {
		return false
	}
	return expected == digest
}
