// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package services

import (
	"context"
	"fmt"
)

// Replayer runs a replay loop until ctx is done. deadletter.Replayer
// satisfies it.
type Replayer interface {
	Run(ctx context.Context) error
}

// ReplayService supervises the dead-letter replayer.
type ReplayService struct {
	replayer Replayer
	name     string
}

// NewReplayService creates the replay service.
func NewReplayService(r Replayer) *ReplayService {
	return &ReplayService{replayer: r, name: "dead-letter-replay"}
}

// Serve implements suture.Service.
func (s *ReplayService) Serve(ctx context.Context) error {
	err := s.replayer.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		return fmt.Errorf("replay: %s stopped", s.name)
	}
	return fmt.Errorf("replay: %w", err)
}

func (s *ReplayService) String() string {
	return s.name
}
