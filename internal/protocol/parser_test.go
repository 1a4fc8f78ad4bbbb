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

package protocol_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/starsnet/stars/internal/protocol"
	"github.com/stretchr/testify/assert"
)

func TestParse_SimpleToAndPayload(t *testing.T) {
	t.Parallel()
	f, ok := protocol.Parse("B Hello")
	assert.True(t, ok)
	want := protocol.Frame{To: "B", Payload: "Hello"}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Fatalf("unexpected frame (-want +got):\n%s", diff)
	}
}

func TestParse_FromOverrideIsExtractedAndRemoved(t *testing.T) {
	t.Parallel()
	f, ok := protocol.Parse("SomeoneElse>Alice hi")
	assert.True(t, ok)
	want := protocol.Frame{FromOverride: "SomeoneElse", HasFromOverride: true, To: "Alice", Payload: "hi"}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Fatalf("unexpected frame (-want +got):\n%s", diff)
	}
}

func TestParse_EmptyPayloadIsAllowed(t *testing.T) {
	t.Parallel()
	f, ok := protocol.Parse("B")
	assert.True(t, ok)
	assert.Equal(t, "B", f.To)
	assert.Empty(t, f.Payload)
}

func TestParse_NoToAddressFails(t *testing.T) {
	t.Parallel()
	_, ok := protocol.Parse(" leading space breaks the match")
	assert.False(t, ok)
}

func TestParse_EventAndCommandClassPayloads(t *testing.T) {
	t.Parallel()
	f, ok := protocol.Parse("System _heartbeat")
	assert.True(t, ok)
	assert.Equal(t, "System", f.To)
	assert.Equal(t, "_heartbeat", f.Payload)
}

func TestIsExit_CaseInsensitiveWithTrailingText(t *testing.T) {
	t.Parallel()
	assert.True(t, protocol.IsExit("exit"))
	assert.True(t, protocol.IsExit("EXIT"))
	assert.True(t, protocol.IsExit("Quit now"))
	assert.True(t, protocol.IsExit("exiting"), "prefix match is intentionally unanchored at the end, per the resolved open question")
	assert.False(t, protocol.IsExit("B exit"))
}

func TestValidName(t *testing.T) {
	t.Parallel()
	assert.True(t, protocol.ValidName("Pump.A-1_2"))
	assert.False(t, protocol.ValidName(""))
	assert.False(t, protocol.ValidName("has space"))
	assert.False(t, protocol.ValidName("has@at"))
}
