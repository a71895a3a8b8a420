// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/gsps-archiver/internal/logging"
	"github.com/tomtom215/gsps-archiver/internal/metrics"
	"github.com/tomtom215/gsps-archiver/internal/session"
)

// Completion is one finalized session handed to the worker pool.
type Completion struct {
	Buffer *session.Buffer

	// DeadLetterID is set when the completion is a dead-letter replay.
	DeadLetterID string
}

// Submitter accepts completions, blocking while the queue is full.
// worker.Pool[Completion] satisfies it.
type Submitter interface {
	SubmitWait(ctx context.Context, c Completion) error
}

// Retainer keeps a finalized buffer that could not be handed off.
// deadletter.Store satisfies it.
type Retainer interface {
	Put(ctx context.Context, buf *session.Buffer, stage string, cause error) (string, error)
}

// Dead-letter stages recorded by the router and the pipeline.
const (
	StageSubmit   = "submit"
	StageAssemble = "assemble"
	StageMetadata = "metadata"
)

// RouterConfig configures a Router.
type RouterConfig struct {
	// SessionTTL evicts sessions with no message for this long.
	// Zero disables expiry.
	SessionTTL time.Duration

	// ExpiryInterval is how often idle sessions are checked.
	// Defaults to SessionTTL/4, bounded to at least one second.
	ExpiryInterval time.Duration

	// PoisonSubject receives undecodable payloads. Empty disables forwarding.
	PoisonSubject string
}

// Router applies GSPS messages to the session store. Run must be called from
// one goroutine at a time; the store is not locked.
type Router struct {
	store  *session.Store
	submit Submitter
	retain Retainer
	poison message.Publisher
	cfg    RouterConfig
	now    func() time.Time
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithPoisonPublisher forwards undecodable payloads to cfg.PoisonSubject.
func WithPoisonPublisher(pub message.Publisher) RouterOption {
	return func(r *Router) { r.poison = pub }
}

// WithRetainer keeps completions that could not be submitted.
func WithRetainer(ret Retainer) RouterOption {
	return func(r *Router) { r.retain = ret }
}

// WithRouterClock overrides the clock used for session expiry.
func WithRouterClock(now func() time.Time) RouterOption {
	return func(r *Router) { r.now = now }
}

// NewRouter creates a Router that owns store.
func NewRouter(store *session.Store, submit Submitter, cfg RouterConfig, opts ...RouterOption) *Router {
	if cfg.SessionTTL > 0 && cfg.ExpiryInterval <= 0 {
		cfg.ExpiryInterval = max(cfg.SessionTTL/4, time.Second)
	}
	r := &Router{
		store:  store,
		submit: submit,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OpenSessions returns the number of open sessions.
func (r *Router) OpenSessions() int {
	return r.store.Len()
}

// Run consumes messages until ctx is done or the channel closes.
//
// On cancellation every open session is discarded and logged as abandoned,
// and ctx.Err() is returned. A closed channel returns ErrTransportClosed and
// keeps open sessions, so a restarted Run continues them.
func (r *Router) Run(ctx context.Context, messages <-chan *message.Message) error {
	var tick <-chan time.Time
	if r.cfg.SessionTTL > 0 {
		ticker := time.NewTicker(r.cfg.ExpiryInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			r.abandon()
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					r.abandon()
					return ctx.Err()
				}
				return ErrTransportClosed
			}
			r.Handle(ctx, msg)
		case <-tick:
			r.ExpireIdle()
		}
	}
}

// Handle processes one transport message and always acks it. Decode
// failures and panics are logged, counted and forwarded to the poison subject.
func (r *Router) Handle(ctx context.Context, msg *message.Message) {
	defer msg.Ack()
	defer func() {
		if p := recover(); p != nil {
			metrics.RecordInvalidMessage("panic")
			logging.Error().
				Str("message_uuid", msg.UUID).
				Interface("panic", p).
				Bytes("stack", debug.Stack()).
				Msg("Recovered from panic while handling message")
			r.forwardPoison(ctx, msg, fmt.Errorf("panic: %v", p))
		}
	}()

	m, err := Decode(msg.Payload)
	if err != nil {
		metrics.RecordInvalidMessage("decode")
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Discarding undecodable message")
		r.forwardPoison(ctx, msg, err)
		return
	}

	if err := r.Dispatch(ctx, m); err != nil {
		logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Message handling failed")
	}
}

// Dispatch applies one decoded message to the session store.
func (r *Router) Dispatch(ctx context.Context, m Message) error {
	metrics.RecordMessage(m.messageType())
	defer func() { metrics.SessionsOpen.Set(float64(r.store.Len())) }()

	switch m := m.(type) {
	case StartMessage:
		r.handleStart(m)
		return nil
	case DataMessage:
		r.handleData(m)
		return nil
	case EndMessage:
		return r.handleEnd(ctx, m)
	case UnknownMessage:
		logging.Debug().
			Err(ErrUnknownMessageType).
			Str("message_type", m.Type).
			Str("glider", m.Glider).
			Msg("Ignoring message")
		return nil
	default:
		return fmt.Errorf("unhandled message %T", m)
	}
}

func (r *Router) handleStart(m StartMessage) {
	key := m.Key()
	if r.store.Begin(key, m.Glider, m.Start, m.Segment, m.Headers) {
		metrics.SessionsReplaced.Inc()
		logging.Warn().
			Str("session", key.String()).
			Msg("Repeated start discarded the open session")
	}

	buf, _ := r.store.Get(key)
	logging.Info().
		Str("correlation_id", buf.CorrelationID).
		Str("glider", m.Glider).
		Str("start", m.Start).
		Str("segment", m.Segment).
		Int("headers", len(m.Headers)).
		Msg("Dataset start")
}

func (r *Router) handleData(m DataMessage) {
	key := m.Key()
	if err := r.store.Append(key, m.Row); err != nil {
		metrics.RowsDiscarded.Inc()
		logging.Error().
			Err(err).
			Str("glider", m.Glider).
			Str("start", m.Start).
			Msg("Data for unknown dataset")
		return
	}
	if m.Skipped > 0 {
		logging.Debug().
			Str("session", key.String()).
			Int("skipped", m.Skipped).
			Msg("Non-numeric values read as fill")
	}
}

func (r *Router) handleEnd(ctx context.Context, m EndMessage) error {
	key := m.Key()
	buf, err := r.store.Finalize(key)
	switch {
	case errors.Is(err, session.ErrEmptyDataset):
		metrics.RecordCompletion("empty")
		logging.Info().Str("glider", m.Glider).Str("start", m.Start).Msg("Empty set")
		return nil
	case errors.Is(err, session.ErrEmptySession):
		logging.Warn().Str("glider", m.Glider).Str("start", m.Start).Msg("End for unknown dataset")
		return nil
	case err != nil:
		return err
	}

	logging.Info().
		Str("correlation_id", buf.CorrelationID).
		Str("glider", m.Glider).
		Str("start", m.Start).
		Int("rows", len(buf.Rows)).
		Msg("Dataset end, processing")

	if err := r.submit.SubmitWait(ctx, Completion{Buffer: buf}); err != nil {
		return r.retainUnsubmitted(ctx, buf, err)
	}
	return nil
}

// retainUnsubmitted moves a finalized buffer the pool refused into the
// dead-letter store so it survives shutdown.
func (r *Router) retainUnsubmitted(ctx context.Context, buf *session.Buffer, cause error) error {
	if r.retain == nil {
		metrics.SessionsAbandoned.Inc()
		return fmt.Errorf("submit %s: %w", buf.Key, cause)
	}
	id, err := r.retain.Put(context.WithoutCancel(ctx), buf, StageSubmit, cause)
	if err != nil {
		metrics.SessionsAbandoned.Inc()
		return fmt.Errorf("retain %s after submit failure (%v): %w", buf.Key, cause, err)
	}
	logging.Warn().
		Err(cause).
		Str("correlation_id", buf.CorrelationID).
		Str("dead_letter_id", id).
		Msg("Completion queue unavailable, dataset dead-lettered")
	return nil
}

// ExpireIdle evicts sessions idle longer than the session TTL.
func (r *Router) ExpireIdle() int {
	if r.cfg.SessionTTL <= 0 {
		return 0
	}
	expired := r.store.Expire(r.now().Add(-r.cfg.SessionTTL))
	for _, buf := range expired {
		metrics.SessionsExpired.Inc()
		logging.Warn().
			Str("correlation_id", buf.CorrelationID).
			Str("session", buf.Key.String()).
			Int("rows", len(buf.Rows)).
			Dur("idle", r.now().Sub(buf.UpdatedAt)).
			Msg("Session expired without end")
	}
	metrics.SessionsOpen.Set(float64(r.store.Len()))
	return len(expired)
}

func (r *Router) abandon() {
	for _, buf := range r.store.Drain() {
		metrics.SessionsAbandoned.Inc()
		logging.Warn().
			Str("correlation_id", buf.CorrelationID).
			Str("session", buf.Key.String()).
			Int("rows", len(buf.Rows)).
			Msg("Session abandoned at shutdown")
	}
	metrics.SessionsOpen.Set(0)
}

func (r *Router) forwardPoison(ctx context.Context, msg *message.Message, cause error) {
	if r.poison == nil || r.cfg.PoisonSubject == "" {
		return
	}
	out := message.NewMessage(watermill.NewUUID(), msg.Payload)
	out.Metadata.Set("error", cause.Error())
	out.Metadata.Set("source_uuid", msg.UUID)
	out.SetContext(ctx)

	if err := r.poison.Publish(r.cfg.PoisonSubject, out); err != nil {
		logging.Warn().Err(err).Str("subject", r.cfg.PoisonSubject).Msg("Failed to forward poison message")
		return
	}
	metrics.MessagesPoisoned.Inc()
}
