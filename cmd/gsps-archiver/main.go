// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

// Package main is the entry point for the GSPS archiver.
//
// The archiver subscribes to the Glider Singleton Publishing Service (GSPS)
// over NATS, buffers each glider session between its start and end
// messages, and writes every completed session as one self-describing
// archive file under OUTPUT_DIR, named after the dataset's global id.
//
// # Startup Order
//
//  1. Configuration: defaults, YAML file, GSPS_* environment, flags (Koanf v2)
//  2. Logging (zerolog) and the optional pid file
//  3. Optional embedded NATS server and JetStream stream
//  4. Glider configuration tree from --configs
//  5. Dead-letter store (BadgerDB) and archive catalog (DuckDB)
//  6. Pipeline: assembler, metadata generator, publisher, worker pool
//  7. Subscriber and session router
//  8. Supervisor tree: ingest, storage (replay) and ops (HTTP) layers
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree. The router logs every open
// session as abandoned, the worker pool drains its queue within
// pipeline.shutdown_timeout, and completions that could not be queued or
// were still queued at the timeout are kept in the dead-letter store for the
// next run.
//
// # Example Usage
//
//	gsps-archiver --nats_url nats://gsps:4222 --configs /etc/gsps-archiver /data/gliders
//
// Development with an in-process broker:
//
//	gsps-archiver --embedded_nats --configs ./configs ./out
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/tomtom215/gsps-archiver/internal/config"
	"github.com/tomtom215/gsps-archiver/internal/logging"
	"github.com/tomtom215/gsps-archiver/internal/metrics"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 2
	}

	closeLog, err := initLogging(&cfg.Logging)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open log file")
		return 1
	}
	defer closeLog()

	metrics.AppInfo.WithLabelValues(Version, runtime.Version()).Set(1)
	logging.Info().
		Str("version", Version).
		Str("output_dir", cfg.Paths.OutputDir).
		Str("configs_dir", cfg.Paths.ConfigsDir).
		Str("nats_url", cfg.Transport.URL).
		Str("subject", cfg.Transport.Subject).
		Msg("Starting GSPS archiver")

	if cfg.Paths.PIDFile != "" {
		if err := writePIDFile(cfg.Paths.PIDFile); err != nil {
			logging.Error().Err(err).Str("path", cfg.Paths.PIDFile).Msg("Failed to write pid file")
			return 1
		}
		defer removePIDFile(cfg.Paths.PIDFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize archiver")
		return 1
	}
	defer app.close()

	if err := app.serve(ctx); err != nil {
		logging.Error().Err(err).Msg("Archiver stopped with error")
		return 1
	}
	logging.Info().Msg("Archiver stopped gracefully")
	return 0
}

func initLogging(cfg *config.LoggingConfig) (func(), error) {
	lc := logging.Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		Caller:    cfg.Caller,
		Timestamp: true,
	}
	closer := func() {}

	if cfg.File != "" {
		f, err := logging.OpenFile(cfg.File)
		if err != nil {
			return closer, err
		}
		lc.Output = io.MultiWriter(os.Stderr, f)
		closer = func() { _ = f.Close() }
	}

	logging.Init(lc)
	return closer, nil
}
