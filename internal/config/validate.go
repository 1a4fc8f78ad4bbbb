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

package config

import "errors"

var (
	// ErrInvalidLogLevel indicates that the provided log level is not valid.
	ErrInvalidLogLevel = errors.New("invalid log level provided")
	// ErrInvalidPort indicates that the provided node port is not valid.
	ErrInvalidPort = errors.New("invalid port provided")
	// ErrLibDirRequired indicates that the library directory is required.
	ErrLibDirRequired = errors.New("lib directory is required")
	// ErrInvalidMetricsBindAddress indicates that the metrics bind address is not valid.
	ErrInvalidMetricsBindAddress = errors.New("invalid metrics server bind address provided")
	// ErrInvalidMetricsPort indicates that the metrics port is not valid.
	ErrInvalidMetricsPort = errors.New("invalid metrics server port provided")
	// ErrInvalidPProfBindAddress indicates that the pprof bind address is not valid.
	ErrInvalidPProfBindAddress = errors.New("invalid pprof server bind address provided")
	// ErrInvalidPProfPort indicates that the pprof port is not valid.
	ErrInvalidPProfPort = errors.New("invalid pprof server port provided")
	// ErrInvalidObserverBindAddress indicates that the observer bind address is not valid.
	ErrInvalidObserverBindAddress = errors.New("invalid observer bridge bind address provided")
	// ErrInvalidObserverPort indicates that the observer port is not valid.
	ErrInvalidObserverPort = errors.New("invalid observer bridge port provided")
)

// Validate validates the Metrics configuration.
func (m Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Bind == "" {
		return ErrInvalidMetricsBindAddress
	}
	if m.Port <= 0 || m.Port > 65535 {
		return ErrInvalidMetricsPort
	}
	return nil
}

// Validate validates the PProf configuration.
func (p PProf) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.Bind == "" {
		return ErrInvalidPProfBindAddress
	}
	if p.Port <= 0 || p.Port > 65535 {
		return ErrInvalidPProfPort
	}
	return nil
}

// Validate validates the Observer configuration.
func (o Observer) Validate() error {
	if o.Bind == "" {
		return ErrInvalidObserverBindAddress
	}
	if o.Port <= 0 || o.Port > 65535 {
		return ErrInvalidObserverPort
	}
	return nil
}

// Validate validates the full Config.
func (c Config) Validate() error {
	if c.LogLevel != LogLevelDebug &&
		c.LogLevel != LogLevelInfo &&
		c.LogLevel != LogLevelWarn &&
		c.LogLevel != LogLevelError {
		return ErrInvalidLogLevel
	}

	if c.Port <= 0 || c.Port > 65535 {
		return ErrInvalidPort
	}

	if c.LibDir == "" {
		return ErrLibDirRequired
	}

	if err := c.Metrics.Validate(); err != nil {
		return err
	}

	if err := c.PProf.Validate(); err != nil {
		return err
	}

	if c.Visualize {
		if err := c.Observer.Validate(); err != nil {
			return err
		}
	}

	return nil
}
