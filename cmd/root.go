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
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/USA-RedDragon/configulator"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/starsnet/stars/internal/config"
	"github.com/starsnet/stars/internal/hub"
	"github.com/starsnet/stars/internal/metrics"
	"github.com/starsnet/stars/internal/observer"
	"github.com/starsnet/stars/internal/pprof"
	"github.com/starsnet/stars/internal/sdk"
)

// NewCommand builds the root STARS server command.
func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stars",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("STARS - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sdk.Version = cmd.Annotations["version"]

	h := hub.New(cfg.LibDir, cfg.EffectiveKeyDir(), time.Duration(cfg.ReadTimeoutMS)*time.Millisecond, newMetrics(cfg))
	if err := h.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to load policy files: %w", err)
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to open listener: %w", err)
	}
	slog.Info("listening", "port", cfg.Port)

	startBackgroundServices(cfg, h)

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- h.Serve(ln)
	}()

	interruptCh := make(chan os.Signal, 1)
	signal.Notify(interruptCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-interruptCh:
		slog.Info("shutting down", "signal", sig.String())
		if err := h.Close(); err != nil {
			slog.Error("error during shutdown", "error", err)
		}
	case err := <-serveErrCh:
		if err != nil {
			return fmt.Errorf("listener failure: %w", err)
		}
	}

	return nil
}

// loadConfig loads the configuration from context, set up by the
// configulator cobra integration in main.go.
func loadConfig(ctx context.Context) (*config.Config, error) {
	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config from context: %w", err)
	}

	cfg, err := c.LoadWithoutValidation()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// setupLogger configures the structured logger per the configured level.
func setupLogger(cfg *config.Config) {
	var logger *slog.Logger
	switch cfg.LogLevel {
	case config.LogLevelDebug:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelInfo:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	case config.LogLevelWarn:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)
}

func newMetrics(cfg *config.Config) *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.NewMetrics()
}

// startBackgroundServices starts the metrics, pprof, and (when enabled)
// observer bridge servers in the background.
func startBackgroundServices(cfg *config.Config, h *hub.Hub) {
	go func() {
		if err := metrics.CreateMetricsServer(cfg); err != nil {
			slog.Error("failed to start metrics server", "error", err)
		}
	}()
	go func() {
		if err := pprof.CreatePProfServer(cfg); err != nil {
			slog.Error("failed to start pprof server", "error", err)
		}
	}()
	if cfg.Visualize {
		go func() {
			srv := observer.NewServer(cfg, h.Events)
			if err := srv.Start(); err != nil {
				slog.Error("failed to start observer server", "error", err)
			}
		}()
	}
}
