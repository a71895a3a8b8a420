// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/gsps-archiver/internal/logging"
)

// MessageSource opens a subscription. transport.Subscriber satisfies it.
type MessageSource interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
}

// MessageRouter consumes a subscription. ingest.Router satisfies it.
type MessageRouter interface {
	Run(ctx context.Context, messages <-chan *message.Message) error
}

// IngestService ties a subscription to the router.
type IngestService struct {
	source MessageSource
	router MessageRouter
	name   string
}

// NewIngestService creates the ingest service.
func NewIngestService(source MessageSource, router MessageRouter) *IngestService {
	return &IngestService{
		source: source,
		router: router,
		name:   "gsps-ingest",
	}
}

// Serve implements suture.Service.
func (s *IngestService) Serve(ctx context.Context) error {
	// The subscription lives only as long as this run, so a restart
	// never leaves a stale subscription behind.
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := s.source.Subscribe(subCtx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	logging.Info().Str("service", s.name).Msg("Subscribed to GSPS stream")

	err = s.router.Run(subCtx, messages)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("router stopped")
	}
	return fmt.Errorf("ingest: %w", err)
}

func (s *IngestService) String() string {
	return s.name
}
