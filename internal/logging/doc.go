// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

// Package logging provides centralized zerolog-based logging for the archiver.
//
// The global logger is configured once from main:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("subject", subject).Msg("Subscribed")
//
// Session-scoped log lines carry a correlation id generated when the session
// starts, so every line for one glider dataset can be grepped together:
//
//	ctx = logging.ContextWithCorrelationID(ctx, buf.CorrelationID)
//	logging.Ctx(ctx).Info().Msg("Dataset published")
//
// Adapters expose the same logger to libraries with their own logging
// interfaces: [NewSlogLogger] for sutureslog and [NewWatermillAdapter] for
// Watermill subscribers.
//
// Always terminate log chains with .Msg() or .Send().
package logging
