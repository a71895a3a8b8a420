// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package deadletter

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/gsps-archiver/internal/logging"
	"github.com/tomtom215/gsps-archiver/internal/metrics"
	"github.com/tomtom215/gsps-archiver/internal/worker"
)

// SubmitFunc hands an entry to the completion pool without blocking.
// It returns worker.ErrQueueFull when the pool has no room.
type SubmitFunc func(*Entry) error

// ReplayConfig configures a Replayer.
type ReplayConfig struct {
	// Interval between scans, and the minimum gap between two attempts of
	// the same entry.
	Interval time.Duration

	// MaxAttempts after which an entry is no longer replayed.
	MaxAttempts int

	// Rate limits submissions per second; Burst is the token bucket size.
	Rate  float64
	Burst int

	// BatchSize caps the entries considered per scan.
	BatchSize int
}

// DefaultReplayConfig returns conservative replay settings.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Interval:    time.Minute,
		MaxAttempts: 5,
		Rate:        2,
		Burst:       4,
		BatchSize:   100,
	}
}

// Replayer resubmits dead-lettered datasets. An entry is not resubmitted
// while an earlier attempt is queued or running; the pipeline's Delete or
// RecordFailure on the store ends the attempt.
type Replayer struct {
	store   *Store
	submit  SubmitFunc
	cfg     ReplayConfig
	limiter *rate.Limiter
	now     func() time.Time
}

// NewReplayer creates a Replayer.
func NewReplayer(store *Store, submit SubmitFunc, cfg ReplayConfig) *Replayer {
	def := DefaultReplayConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Rate <= 0 {
		cfg.Rate = def.Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	return &Replayer{
		store:   store,
		submit:  submit,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		now:     time.Now,
	}
}

// Run scans the store every Interval until ctx is done.
func (r *Replayer) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.ReplayOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Warn().Err(err).Msg("Dead-letter replay scan failed")
			}
		}
	}
}

// ReplayOnce runs a single scan and returns how many entries were submitted.
// A full queue ends the scan early; the remaining entries wait for the next one.
func (r *Replayer) ReplayOnce(ctx context.Context) (int, error) {
	entries, err := r.store.List(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	if n, err := r.store.Count(ctx); err == nil {
		metrics.DeadLetterEntries.Set(float64(n))
	}

	cutoff := r.now().Add(-r.cfg.Interval)
	submitted := 0
	for _, entry := range entries {
		if entry.Attempts >= r.cfg.MaxAttempts {
			metrics.RecordReplay("exhausted")
			continue
		}
		if !entry.LastAttemptAt.IsZero() && entry.LastAttemptAt.After(cutoff) {
			continue
		}

		if !r.store.claim(entry.ID) {
			metrics.RecordReplay("in_flight")
			continue
		}

		if err := r.limiter.Wait(ctx); err != nil {
			r.store.release(entry.ID)
			return submitted, err
		}

		if err := r.submit(entry); err != nil {
			r.store.release(entry.ID)
			if errors.Is(err, worker.ErrQueueFull) {
				metrics.RecordReplay("queue_full")
				logging.Debug().Int("submitted", submitted).Msg("Completion queue full, deferring dead-letter replay")
				return submitted, nil
			}
			return submitted, err
		}

		if _, err := r.store.MarkAttempt(ctx, entry.ID); err != nil && !errors.Is(err, ErrNotFound) {
			logging.Warn().Err(err).Str("dead_letter_id", entry.ID).Msg("Failed to record replay attempt")
		}
		metrics.RecordReplay("submitted")
		submitted++

		logging.Info().
			Str("dead_letter_id", entry.ID).
			Str("session", entry.Buffer.Key.String()).
			Int("attempt", entry.Attempts+1).
			Msg("Replaying dead-lettered dataset")
	}
	return submitted, nil
}
