// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestWatermillAdapter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var adapter watermill.LoggerAdapter = NewWatermillAdapter(zerolog.New(&buf))

	adapter = adapter.With(watermill.LogFields{"subject": "gsps.>"})
	adapter.Error("Subscriber disconnected", errors.New("eof"), watermill.LogFields{"attempt": 2})

	output := buf.String()
	for _, want := range []string{`"subject":"gsps.>"`, `"attempt":2`, `"error":"eof"`, "Subscriber disconnected"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestSlogHandler_GroupsAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf)))

	logger.WithGroup("supervisor").With("layer", "ingest").Warn("service restarted", "failures", 3)

	output := buf.String()
	for _, want := range []string{`"supervisor.layer":"ingest"`, `"supervisor.failures":3`, `"level":"warn"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}
