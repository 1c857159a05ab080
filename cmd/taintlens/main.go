// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command taintlens detects insecure deserialization flows (pickle and
// friends) in a Python codebase: it discovers source files under a
// target, indexes their syntax trees, traces each sink call's argument
// back to its origin, and reports every flow whose origin cannot be
// trusted.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	taintlenserrors "github.com/taintlens/taintlens/internal/errors"
	"github.com/taintlens/taintlens/internal/ui"
)

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(taintlenserrors.ExitSuccess)
		}
		taintlenserrors.FatalError(taintlenserrors.NewInputError(
			"Invalid arguments",
			err.Error(),
			"Run taintlens --help for usage",
		), cfg.JSON)
	}

	ui.InitColors(cfg.NoColor)

	logLevel := slog.LevelInfo
	switch cfg.ScanVerbosity {
	case "quiet":
		logLevel = slog.LevelWarn
	case "verbose":
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", cfg.MetricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	result := run(ctx, cfg, os.Stdout, os.Stderr, logger)
	if result.fatal != nil {
		taintlenserrors.FatalError(result.fatal, cfg.JSON)
	}
	os.Exit(result.exitCode)
}
