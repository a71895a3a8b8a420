// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtom215/gsps-archiver/internal/api"
	"github.com/tomtom215/gsps-archiver/internal/archive"
	"github.com/tomtom215/gsps-archiver/internal/catalog"
	"github.com/tomtom215/gsps-archiver/internal/config"
	"github.com/tomtom215/gsps-archiver/internal/configtree"
	"github.com/tomtom215/gsps-archiver/internal/dataset"
	"github.com/tomtom215/gsps-archiver/internal/deadletter"
	"github.com/tomtom215/gsps-archiver/internal/ingest"
	"github.com/tomtom215/gsps-archiver/internal/logging"
	"github.com/tomtom215/gsps-archiver/internal/metadata"
	"github.com/tomtom215/gsps-archiver/internal/session"
	"github.com/tomtom215/gsps-archiver/internal/supervisor"
	"github.com/tomtom215/gsps-archiver/internal/supervisor/services"
	"github.com/tomtom215/gsps-archiver/internal/transport"
	"github.com/tomtom215/gsps-archiver/internal/worker"
)

const poolWaitTimeout = 10 * time.Second

// app owns every long-lived component and closes them in reverse order.
type app struct {
	cfg         *config.Config
	embedded    *transport.EmbeddedServer
	deadLetters *deadletter.Store
	catalog     *catalog.Catalog
	pool        *worker.Pool[ingest.Completion]
	poolCancel  context.CancelFunc
	subscriber  *transport.Subscriber
	poison      message.Publisher
	router      *ingest.Router
	tree        *supervisor.SupervisorTree
}

//nolint:gocyclo // sequential wiring
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	natsURL := cfg.Transport.URL
	if cfg.Transport.Embedded {
		a.embedded, err = transport.NewEmbeddedServer(&transport.ServerConfig{
			Port:      cfg.Transport.EmbeddedPort,
			JetStream: cfg.Transport.JetStream,
			StoreDir:  cfg.Transport.EmbeddedStoreDir,
		})
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		natsURL = a.embedded.ClientURL()
		logging.Warn().Str("url", natsURL).Msg("Using embedded NATS server; not for production")
	}

	if cfg.Transport.JetStream {
		if err = transport.EnsureStream(ctx, natsURL, transport.StreamConfig{
			Name:     cfg.Transport.StreamName,
			Subjects: []string{cfg.Transport.Subject},
			MaxAge:   cfg.Transport.StreamMaxAge,
		}); err != nil {
			return nil, err
		}
	}

	tree, err := configtree.Load(cfg.Paths.ConfigsDir)
	if err != nil {
		return nil, fmt.Errorf("load configuration tree: %w", err)
	}
	for _, perr := range tree.ParseErrors() {
		logging.Warn().Err(perr).Msg("Skipped unreadable configuration file")
	}
	logging.Info().
		Strs("platforms", tree.Platforms()).
		Str("dir", cfg.Paths.ConfigsDir).
		Msg("Configuration tree loaded")

	a.deadLetters, err = deadletter.Open(deadletter.Config{
		Path:       cfg.DeadLetter.Path,
		InMemory:   cfg.DeadLetter.InMemory,
		SyncWrites: cfg.DeadLetter.SyncWrites,
		EntryTTL:   cfg.DeadLetter.EntryTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("open dead-letter store: %w", err)
	}

	a.catalog, err = catalog.Open(ctx, cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	pipeline, err := newPipeline(cfg, tree, a.catalog, a.deadLetters)
	if err != nil {
		return nil, err
	}

	a.pool = worker.NewPool[ingest.Completion](
		cfg.Pipeline.Workers,
		cfg.Pipeline.QueueSize,
		pipeline.Run,
		worker.WithTaskTimeout[ingest.Completion](cfg.Pipeline.TaskTimeout),
		worker.WithMetrics[ingest.Completion](prometheus.DefaultRegisterer, "gsps_pipeline"),
		worker.WithDrain(a.retainUnprocessed),
	)
	// The pool outlives the signal context so queued work drains on shutdown.
	poolCtx, poolCancel := context.WithCancel(context.WithoutCancel(ctx))
	a.poolCancel = poolCancel
	if err = a.pool.Start(poolCtx); err != nil {
		return nil, fmt.Errorf("start worker pool: %w", err)
	}

	wmLogger := logging.NewWatermillAdapter(logging.WithComponent("transport"))
	subCfg := transport.DefaultSubscriberConfig(natsURL)
	subCfg.Subject = cfg.Transport.Subject
	subCfg.QueueGroup = cfg.Transport.QueueGroup
	subCfg.JetStream = cfg.Transport.JetStream
	subCfg.StreamName = cfg.Transport.StreamName
	subCfg.DurableName = cfg.Transport.DurableName
	subCfg.MaxReconnects = cfg.Transport.MaxReconnects
	subCfg.ReconnectWait = cfg.Transport.ReconnectWait
	subCfg.AckWaitTimeout = cfg.Transport.AckWait
	subCfg.CloseTimeout = cfg.Transport.CloseTimeout
	a.subscriber, err = transport.NewSubscriber(&subCfg, wmLogger)
	if err != nil {
		return nil, err
	}

	routerOpts := []ingest.RouterOption{ingest.WithRetainer(a.deadLetters)}
	if cfg.Transport.PoisonSubject != "" {
		a.poison, err = transport.NewPublisher(&transport.PublisherConfig{
			URL:           natsURL,
			MaxReconnects: cfg.Transport.MaxReconnects,
			ReconnectWait: cfg.Transport.ReconnectWait,
		}, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("create poison publisher: %w", err)
		}
		routerOpts = append(routerOpts, ingest.WithPoisonPublisher(a.poison))
	}

	store := session.NewStore(session.WithCorrelationIDs(logging.GenerateCorrelationID))
	a.router = ingest.NewRouter(store, a.pool, ingest.RouterConfig{
		SessionTTL:    cfg.Pipeline.SessionTTL,
		PoisonSubject: cfg.Transport.PoisonSubject,
	}, routerOpts...)

	replayer := deadletter.NewReplayer(a.deadLetters, func(e *deadletter.Entry) error {
		return a.pool.Submit(ingest.Completion{Buffer: e.Buffer, DeadLetterID: e.ID})
	}, deadletter.ReplayConfig{
		Interval:    cfg.DeadLetter.ReplayInterval,
		MaxAttempts: cfg.DeadLetter.MaxAttempts,
		Rate:        cfg.DeadLetter.ReplayRate,
		Burst:       cfg.DeadLetter.ReplayBurst,
		BatchSize:   cfg.DeadLetter.BatchSize,
	})

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Pipeline.ShutdownTimeout
	a.tree, err = supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}
	a.tree.AddIngestService(services.NewIngestService(a.subscriber, a.router))
	a.tree.AddStorageService(services.NewReplayService(replayer))

	if cfg.Server.Enabled {
		handler := api.NewHandler(a.catalog, a.deadLetters)
		addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
		srv := &http.Server{
			Addr: addr,
			Handler: api.NewRouter(handler, api.RouterConfig{
				RateLimit: api.RateLimitConfig{
					Requests: cfg.Server.RateLimitReqs,
					Window:   cfg.Server.RateLimitWindow,
				},
			}),
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		}
		a.tree.AddOpsService(services.NewHTTPServerService(srv, addr, cfg.Pipeline.ShutdownTimeout))
	}

	return a, nil
}

func newPipeline(cfg *config.Config, tree *configtree.Tree, cat *catalog.Catalog, dlq *deadletter.Store) (*ingest.Pipeline, error) {
	var asmOpts []dataset.AssemblerOption
	if cfg.Archive.GPSInterpolation {
		asmOpts = append(asmOpts, dataset.WithTransforms(dataset.GPSInterpolation{}))
	}
	if cfg.Archive.ProfileMinDelta > 0 {
		asmOpts = append(asmOpts, dataset.WithSegmenter(dataset.DepthSegmenter{MinDelta: cfg.Archive.ProfileMinDelta}))
	}
	asm := dataset.NewAssembler(asmOpts...)

	ok, level := zstd.EncoderLevelFromString(cfg.Archive.Compression)
	if !ok {
		return nil, fmt.Errorf("unknown compression level %q", cfg.Archive.Compression)
	}
	breaker := archive.DefaultBreakerConfig()
	breaker.FailureThreshold = cfg.Archive.BreakerThreshold
	breaker.Timeout = cfg.Archive.BreakerTimeout
	pubOpts := []archive.PublisherOption{archive.WithBreaker(breaker)}
	if cfg.Paths.ScratchDir != "" {
		pubOpts = append(pubOpts, archive.WithScratchDir(cfg.Paths.ScratchDir))
	}
	pub := archive.NewPublisher(cfg.Paths.OutputDir, archive.CBOREncoder{Level: level}, pubOpts...)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	gen := metadata.NewGenerator(tree, metadata.WithLocation(loc), metadata.WithExtension(pub.Extension()))

	return ingest.NewPipeline(tree, asm, gen, pub,
		ingest.WithCatalog(cat),
		ingest.WithDeadLetters(dlq),
	), nil
}

// serve blocks until ctx is cancelled or the tree fails, then drains.
func (a *app) serve(ctx context.Context) error {
	logging.Info().
		Int("workers", a.cfg.Pipeline.Workers).
		Bool("jetstream", a.cfg.Transport.JetStream).
		Bool("http", a.cfg.Server.Enabled).
		Msg("Starting supervisor tree")

	err := a.tree.Serve(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}

	unstopped, _ := a.tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().
		Int("queued", a.pool.Stats().QueueDepth).
		Dur("timeout", a.cfg.Pipeline.ShutdownTimeout).
		Msg("Draining worker pool")
	if stopErr := a.pool.Stop(a.cfg.Pipeline.ShutdownTimeout); stopErr != nil {
		logging.Warn().Err(stopErr).Msg("Worker pool did not drain before timeout")
	}
	a.poolCancel()
	// In-flight work sees the cancellation and dead-letters its session.
	if waitErr := a.pool.Wait(poolWaitTimeout); waitErr != nil {
		logging.Warn().Err(waitErr).Msg("Workers still running at shutdown")
	}

	return err
}

// retainUnprocessed keeps a completion the pool abandoned at shutdown.
func (a *app) retainUnprocessed(c ingest.Completion) {
	if c.Buffer == nil {
		return
	}
	log := logging.With().Str("session", c.Buffer.Key.String()).Logger()
	if c.DeadLetterID != "" {
		log.Info().Str("dead_letter_id", c.DeadLetterID).Msg("Replay left in dead-letter store")
		return
	}
	id, err := a.deadLetters.Put(context.Background(), c.Buffer, ingest.StageSubmit, worker.ErrPoolStopped)
	if err != nil {
		log.Error().Err(err).Msg("Failed to dead-letter unprocessed dataset")
		return
	}
	log.Info().Str("dead_letter_id", id).Msg("Unprocessed dataset retained for replay")
}

// close releases resources in reverse start order. Safe on a partial app.
func (a *app) close() {
	if a.poolCancel != nil {
		a.poolCancel()
	}
	if a.subscriber != nil {
		if err := a.subscriber.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing subscriber")
		}
	}
	if a.poison != nil {
		if err := a.poison.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing poison publisher")
		}
	}
	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing catalog")
		}
	}
	if a.deadLetters != nil {
		if err := a.deadLetters.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing dead-letter store")
		}
	}
	if a.embedded != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.embedded.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Error shutting down embedded NATS")
		}
	}
}
