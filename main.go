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

package main

import (
	"fmt"
	"os"

	"github.com/USA-RedDragon/configulator"
	"github.com/starsnet/stars/cmd"
	"github.com/starsnet/stars/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	c, err := configulator.New[config.Config]()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create configulator:", err)
		return 1
	}

	root := cmd.NewCommand(version, commit)
	if err := c.Execute(root); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}
