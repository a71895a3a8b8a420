// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/gsps-archiver/internal/archive"
	"github.com/tomtom215/gsps-archiver/internal/catalog"
	"github.com/tomtom215/gsps-archiver/internal/configtree"
	"github.com/tomtom215/gsps-archiver/internal/dataset"
	"github.com/tomtom215/gsps-archiver/internal/deadletter"
	"github.com/tomtom215/gsps-archiver/internal/logging"
	"github.com/tomtom215/gsps-archiver/internal/metadata"
	"github.com/tomtom215/gsps-archiver/internal/metrics"
	"github.com/tomtom215/gsps-archiver/internal/session"
)

// Recorder stores catalog rows. catalog.Catalog satisfies it.
type Recorder interface {
	Record(ctx context.Context, d catalog.Dataset) error
}

// DeadLetters retains failed sessions. deadletter.Store satisfies it.
type DeadLetters interface {
	Retainer
	RecordFailure(ctx context.Context, id, stage string, cause error) (*deadletter.Entry, error)
	Delete(ctx context.Context, id string) error
}

// Pipeline turns one finalized session into a published archive file.
// It is safe for concurrent use by the worker pool.
type Pipeline struct {
	tree      *configtree.Tree
	assembler *dataset.Assembler
	generator *metadata.Generator
	publisher *archive.Publisher
	catalog   Recorder
	dlq       DeadLetters
	now       func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithCatalog records every published dataset.
func WithCatalog(r Recorder) PipelineOption {
	return func(p *Pipeline) { p.catalog = r }
}

// WithDeadLetters retains failed sessions for replay.
func WithDeadLetters(d DeadLetters) PipelineOption {
	return func(p *Pipeline) { p.dlq = d }
}

// NewPipeline creates a Pipeline.
func NewPipeline(tree *configtree.Tree, asm *dataset.Assembler, gen *metadata.Generator, pub *archive.Publisher, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		tree:      tree,
		assembler: asm,
		generator: gen,
		publisher: pub,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process assembles, describes and publishes one completion. It returns the
// published path. On failure the buffer is retained in the dead-letter store
// (or its existing entry updated) and the error is returned.
func (p *Pipeline) Process(ctx context.Context, c Completion) (string, error) {
	buf := c.Buffer
	if buf == nil {
		return "", dataset.ErrNilBuffer
	}

	ctx = logging.ContextWithCorrelationID(ctx, buf.CorrelationID)
	ctx = logging.ContextWithLogger(ctx, logging.LoggerFromContext(ctx).With().
		Str("session", buf.Key.String()).
		Str("dead_letter_id", c.DeadLetterID).
		Logger())
	log := logging.Ctx(ctx)

	start := time.Now()
	path, stage, err := p.publish(ctx, buf)
	if err != nil {
		metrics.RecordPublishError(stage)
		log.Error().Err(err).Str("stage", stage).Msg("Dataset processing failed")
		p.retain(ctx, c, stage, err)
		return "", err
	}
	metrics.RecordPublish(time.Since(start))
	log.Info().Str("path", path).Int("rows", len(buf.Rows)).Msg("Datafile written")

	if c.DeadLetterID != "" && p.dlq != nil {
		if err := p.dlq.Delete(context.WithoutCancel(ctx), c.DeadLetterID); err != nil {
			log.Warn().Err(err).Msg("Failed to remove replayed dead-letter entry")
		}
	}
	return path, nil
}

// Run adapts Process to the worker pool processor signature.
func (p *Pipeline) Run(ctx context.Context, c Completion) error {
	_, err := p.Process(ctx, c)
	return err
}

func (p *Pipeline) publish(ctx context.Context, buf *session.Buffer) (path, stage string, err error) {
	ds, err := p.assembler.Assemble(buf)
	if err != nil {
		return "", StageAssemble, fmt.Errorf("assemble: %w", err)
	}

	attrs, err := p.generator.Generate(ds)
	if err != nil {
		return "", StageMetadata, fmt.Errorf("generate metadata: %w", err)
	}
	filename, err := p.generator.Filename(ds)
	if err != nil {
		return "", StageMetadata, fmt.Errorf("filename: %w", err)
	}
	platform, err := p.tree.Platform(ds.Platform)
	if err != nil {
		return "", StageMetadata, err
	}

	file := &archive.File{
		GlobalAttributes: attrs,
		Platform:         platform.Deployment.Platform,
		TrajectoryID:     platform.Deployment.TrajectoryID,
		SegmentID:        ds.Segment,
		Datatypes:        p.tree.Datatypes(),
		Instruments:      platform.Instruments,
		Times:            ds.Times,
		TimeUV:           ds.TimeUV,
		ProfileIDs:       ds.ProfileIDs,
		ColumnOrder:      ds.ColumnOrder,
		Columns:          ds.Columns,
	}

	path, err = p.publisher.Publish(ctx, archive.PublishRequest{
		Directory: platform.Deployment.Directory,
		Filename:  filename,
		File:      file,
	})
	if err != nil {
		stage = "publish"
		var perr *archive.PublishError
		if errors.As(err, &perr) {
			stage = perr.Stage
		}
		return "", stage, err
	}

	if p.catalog != nil {
		entry := catalogEntry(ds, attrs, path, p.now())
		if err := p.catalog.Record(ctx, entry); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("Failed to record dataset in catalog")
		}
	}
	return path, "", nil
}

func (p *Pipeline) retain(ctx context.Context, c Completion, stage string, cause error) {
	if p.dlq == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := logging.Ctx(ctx)

	if c.DeadLetterID != "" {
		if _, err := p.dlq.RecordFailure(ctx, c.DeadLetterID, stage, cause); err != nil {
			log.Error().Err(err).Str("dead_letter_id", c.DeadLetterID).Msg("Failed to record replay failure")
		}
		return
	}
	id, err := p.dlq.Put(ctx, c.Buffer, stage, cause)
	if err != nil {
		log.Error().Err(err).Msg("Failed to dead-letter dataset")
		return
	}
	log.Info().Str("dead_letter_id", id).Msg("Dataset retained for replay")
}

func catalogEntry(ds *dataset.Dataset, attrs metadata.Attributes, path string, now time.Time) catalog.Dataset {
	entry := catalog.Dataset{
		GlobalID:    fmt.Sprint(attrs["id"]),
		Platform:    ds.Platform,
		Segment:     ds.Segment,
		Path:        path,
		Rows:        ds.Len(),
		LatMin:      floatAttr(attrs, "geospatial_lat_min"),
		LatMax:      floatAttr(attrs, "geospatial_lat_max"),
		LonMin:      floatAttr(attrs, "geospatial_lon_min"),
		LonMax:      floatAttr(attrs, "geospatial_lon_max"),
		DepthMin:    floatAttr(attrs, "geospatial_vertical_min"),
		DepthMax:    floatAttr(attrs, "geospatial_vertical_max"),
		PublishedAt: now.UTC(),
	}
	if ds.Len() > 0 {
		entry.TimeStart, entry.TimeEnd = ds.Times[0], ds.Times[0]
		for _, ts := range ds.Times[1:] {
			entry.TimeStart = min(entry.TimeStart, ts)
			entry.TimeEnd = max(entry.TimeEnd, ts)
		}
	}
	return entry
}

func floatAttr(attrs metadata.Attributes, key string) *float64 {
	v, ok := attrs[key].(float64)
	if !ok {
		return nil
	}
	return &v
}
