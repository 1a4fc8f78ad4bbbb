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

package pprof

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	pprof "github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/starsnet/stars/internal/config"
)

const readTimeout = 3 * time.Second

// CreatePProfServer blocks serving the pprof debug endpoints on
// config.PProf.Bind:Port. It is a no-op if pprof is disabled. Bound to
// loopback by default since this exposes stack traces and heap dumps.
func CreatePProfServer(config *config.Config) error {
	if !config.PProf.Enabled {
		return nil
	}

	r := gin.New()
	r.Use(gin.Recovery())
	pprof.Register(r)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.PProf.Bind, config.PProf.Port),
		Handler:           r,
		ReadHeaderTimeout: readTimeout,
	}
	slog.Info("pprof server listening", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil {
		return fmt.Errorf("pprof server: %w", err)
	}
	return nil
}
