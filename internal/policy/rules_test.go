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
	"testing"

	"github.com/starsnet/stars/internal/policy"
	"github.com/stretchr/testify/assert"
)

func TestCommandRuleSet_MatchRequiresAllThreeFields(t *testing.T) {
	t.Parallel()
	rules := policy.CommandRuleSet{
		{From: "*", To: "B", Command: "secret*"},
	}
	assert.True(t, rules.Match("A", "B", "secret 1"))
	assert.False(t, rules.Match("A", "B", "public"))
	assert.False(t, rules.Match("A", "C", "secret 1"))
}

func TestCommandRuleSet_EmptyMatchesNothing(t *testing.T) {
	t.Parallel()
	var rules policy.CommandRuleSet
	assert.False(t, rules.Match("A", "B", "anything"))
}

func TestHostRuleSet_AllowedEmptyAllowsAll(t *testing.T) {
	t.Parallel()
	var rules policy.HostRuleSet
	assert.True(t, rules.Allowed("anything", "10.0.0.1", "10.0.0.1"))
}

func TestHostRuleSet_WildcardNameMatchesPreHandshakeCheck(t *testing.T) {
	t.Parallel()
	rules := policy.HostRuleSet{{Name: "*", Host: "10.0.0.*"}}
	assert.True(t, rules.Allowed("*", "10.0.0.5", "10.0.0.5"))
	assert.False(t, rules.Allowed("*", "192.168.1.5", "192.168.1.5"))
}

func TestHostRuleSet_NamedRuleOnlyMatchesThatName(t *testing.T) {
	t.Parallel()
	rules := policy.HostRuleSet{{Name: "PumpA", Host: "10.0.0.*"}}
	assert.True(t, rules.Allowed("PumpA", "10.0.0.5", "10.0.0.5"))
	assert.False(t, rules.Allowed("PumpB", "10.0.0.5", "10.0.0.5"))
}

func TestReconnectRuleSet_DeniedByDefault(t *testing.T) {
	t.Parallel()
	var rules policy.ReconnectRuleSet
	assert.False(t, rules.Allowed("10.0.0.1", "10.0.0.1", "PumpA"))
}

func TestReconnectRuleSet_ExplicitMatchAllows(t *testing.T) {
	t.Parallel()
	rules := policy.ReconnectRuleSet{{Host: "10.0.0.*", Name: "PumpA"}}
	assert.True(t, rules.Allowed("10.0.0.5", "10.0.0.5", "PumpA"))
	assert.False(t, rules.Allowed("10.0.0.5", "10.0.0.5", "PumpB"))
}

func TestShutAllowRuleSet_EmptyDeniesEverything(t *testing.T) {
	t.Parallel()
	var rules policy.ShutAllowRuleSet
	assert.False(t, rules.Allowed("Operator"))
}
