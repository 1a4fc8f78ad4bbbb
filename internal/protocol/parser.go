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

// Package protocol implements the STARS line framer and frame parser:
// reading a byte stream into newline-terminated frames, and splitting a
// frame into (optional from-override, to-address, payload).
package protocol

import "regexp"

// NamePattern is the name grammar shared by node names, aliases, and
// addresses: [A-Za-z_0-9.\-]+.
const NamePattern = `[A-Za-z_0-9.\-]+`

var (
	fromOverrideRe = regexp.MustCompile(`(` + NamePattern + `)>`)
	toAddressRe    = regexp.MustCompile(`^(` + NamePattern + `)\s*`)
	exitRe         = regexp.MustCompile(`(?i)^(exit|quit)`)
	nameRe         = regexp.MustCompile(`^` + NamePattern + `$`)
)

// ValidName reports whether s is a syntactically valid node/alias name.
func ValidName(s string) bool {
	return s != "" && nameRe.MatchString(s)
}

// IsExit reports whether frame is an exit/quit control line: the
// case-insensitive literal "exit" or "quit" at the start, with any
// trailing text permitted.
func IsExit(frame string) bool {
	return exitRe.MatchString(frame)
}

// Frame is a single parsed protocol line.
type Frame struct {
	// FromOverride is the displayed originator the sender requested,
	// or "" if the frame carried none. It is not authenticated.
	FromOverride string
	// HasFromOverride distinguishes an empty override from no override.
	HasFromOverride bool
	To              string
	Payload         string
}

// Parse splits frame per §4.3. ok is false when no valid to-address
// could be found, in which case the caller must reply with the
// malformed-address error and drop the frame.
func Parse(frame string) (f Frame, ok bool) {
	rest := frame
	if loc := fromOverrideRe.FindStringSubmatchIndex(rest); loc != nil {
		f.FromOverride = rest[loc[2]:loc[3]]
		f.HasFromOverride = true
		rest = rest[:loc[0]] + rest[loc[1]:]
	}

	loc := toAddressRe.FindStringSubmatchIndex(rest)
	if loc == nil {
		// The from-override, if any, was already extracted above and
		// survives in f for the caller's malformed-address reply.
		return f, false
	}
	f.To = rest[loc[2]:loc[3]]
	f.Payload = rest[loc[1]:]
	return f, true
}
