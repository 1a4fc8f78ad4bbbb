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

package cmd

import (
	"testing"

	"github.com/starsnet/stars/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewCommand_SetsVersionAnnotations(t *testing.T) {
	t.Parallel()
	cmd := NewCommand("1.2.3", "abcdef")
	assert.Equal(t, "1.2.3", cmd.Annotations["version"])
	assert.Equal(t, "abcdef", cmd.Annotations["commit"])
	assert.Contains(t, cmd.Version, "1.2.3")
}

func TestNewMetrics_DisabledReturnsNil(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.Metrics.Enabled = false
	assert.Nil(t, newMetrics(cfg))
}

func TestNewMetrics_EnabledReturnsInstance(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.Metrics.Enabled = true
	assert.NotNil(t, newMetrics(cfg))
}
