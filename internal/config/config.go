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

// Package config defines and loads the STARS hub configuration.
package config

// Metrics configures the Prometheus metrics server.
type Metrics struct {
	Enabled bool   `yaml:"enabled" name:"metrics-enabled" description:"Enable the Prometheus metrics server" default:"true"`
	Bind    string `yaml:"bind" name:"metrics-bind" description:"Bind address for the metrics server" default:"127.0.0.1"`
	Port    int    `yaml:"port" name:"metrics-port" description:"Port for the metrics server" default:"9100"`
}

// PProf configures the debug pprof server.
type PProf struct {
	Enabled bool   `yaml:"enabled" name:"pprof-enabled" description:"Enable the pprof debug server" default:"false"`
	Bind    string `yaml:"bind" name:"pprof-bind" description:"Bind address for the pprof server" default:"127.0.0.1"`
	Port    int    `yaml:"port" name:"pprof-port" description:"Port for the pprof server" default:"6061"`
}

// Observer configures the HTTP/WebSocket event bridge used by external
// visualizers.
type Observer struct {
	Bind string `yaml:"bind" name:"observer-bind" description:"Bind address for the observer bridge" default:"127.0.0.1"`
	Port int    `yaml:"port" name:"observer-port" description:"Port for the observer bridge" default:"6058"`
}

// Config stores the STARS hub configuration.
type Config struct {
	// Port is the TCP port the hub listens on for node connections.
	Port int `yaml:"port" name:"port" description:"TCP port to listen for node connections on" default:"6057"`
	// LibDir holds the permission, reconnect, and alias files.
	LibDir string `yaml:"lib_dir" name:"libdir" description:"Directory containing permission, reconnect, and alias files" default:"."`
	// KeyDir holds per-node key files. Defaults to LibDir when empty.
	KeyDir string `yaml:"key_dir" name:"keydir" description:"Directory containing per-node key files" default:""`
	// ReadTimeoutMS bounds how long the handshake read may take.
	ReadTimeoutMS int `yaml:"read_timeout_ms" name:"timeout" description:"Handshake read timeout in milliseconds" default:"5000"`
	// Visualize starts the observer HTTP/WebSocket bridge.
	Visualize bool `yaml:"visualize" name:"visualize" description:"Start the external event observer bridge" default:"false"`

	LogLevel LogLevel `yaml:"log_level" name:"log-level" description:"Logging level (debug, info, warn, error)" default:"info"`

	Metrics  Metrics  `yaml:"metrics"`
	PProf    PProf    `yaml:"pprof"`
	Observer Observer `yaml:"observer"`
}

// EffectiveKeyDir returns KeyDir, falling back to LibDir when unset.
func (c Config) EffectiveKeyDir() string {
	if c.KeyDir == "" {
		return c.LibDir
	}
	return c.KeyDir
}
