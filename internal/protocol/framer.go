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

package protocol

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"
)

// Framer splits a byte stream into '\n'-terminated frames, with any
// immediately preceding '\r' trimmed, holding a trailing partial frame
// until more bytes arrive.
type Framer struct {
	r *bufio.Reader
}

// NewFramer wraps r. The initial buffer accepts at least 4 KiB per
// read per §6; bufio grows beyond that as needed for longer frames.
func NewFramer(r io.Reader) *Framer {
	const initialBuffer = 4096
	return &Framer{r: bufio.NewReaderSize(r, initialBuffer)}
}

// ReadFrame returns the next complete frame, with its trailing \r\n (or
// \n) stripped and any invalid UTF-8 replaced with U+FFFD. It returns
// io.EOF (or the underlying read error) when the stream ends.
func (f *Framer) ReadFrame() (string, error) {
	line, err := f.r.ReadString('\n')
	if err != nil {
		if line == "" {
			return "", err
		}
		// Last partial frame before EOF: hand it back trimmed alongside
		// err so a caller that wants to process a final unterminated
		// line may choose to; STARS nodes always terminate frames with
		// \n, so in practice this path only fires on an abrupt
		// disconnect.
		return trimFrame(line), err
	}
	return trimFrame(line), nil
}

func trimFrame(line string) string {
	line = strings.TrimRight(line, "\n")
	line = strings.TrimRight(line, "\r")
	if !utf8.ValidString(line) {
		line = strings.ToValidUTF8(line, "�")
	}
	return line
}
