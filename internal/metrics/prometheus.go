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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the STARS hub's Prometheus collectors.
type Metrics struct {
	NodesConnected        prometheus.Gauge
	MessagesRoutedTotal    prometheus.Counter
	CommandsDeniedTotal    prometheus.Counter
	HandshakeFailuresTotal *prometheus.CounterVec
	SystemCommandsTotal    *prometheus.CounterVec
	EventsDroppedTotal     prometheus.Counter
}

// NewMetrics constructs and registers the STARS collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		NodesConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stars_nodes_connected",
			Help: "The current number of nodes registered in the directory",
		}),
		MessagesRoutedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stars_messages_routed_total",
			Help: "The total number of messages successfully delivered by the router",
		}),
		CommandsDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stars_commands_denied_total",
			Help: "The total number of command-class messages denied by policy",
		}),
		HandshakeFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stars_handshake_failures_total",
			Help: "The total number of failed node handshakes, by reason",
		}, []string{"reason"}),
		SystemCommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stars_system_commands_total",
			Help: "The total number of System verb invocations, by verb",
		}, []string{"verb"}),
		EventsDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stars_events_dropped_total",
			Help: "The total number of activity events dropped because an observer sink was full",
		}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	prometheus.MustRegister(m.NodesConnected)
	prometheus.MustRegister(m.MessagesRoutedTotal)
	prometheus.MustRegister(m.CommandsDeniedTotal)
	prometheus.MustRegister(m.HandshakeFailuresTotal)
	prometheus.MustRegister(m.SystemCommandsTotal)
	prometheus.MustRegister(m.EventsDroppedTotal)
}

// RecordHandshakeFailure increments the handshake failure counter for reason.
func (m *Metrics) RecordHandshakeFailure(reason string) {
	m.HandshakeFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordSystemCommand increments the system command counter for verb.
func (m *Metrics) RecordSystemCommand(verb string) {
	m.SystemCommandsTotal.WithLabelValues(verb).Inc()
}
