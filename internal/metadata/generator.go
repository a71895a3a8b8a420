// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package metadata

import (
	"math"
	"strings"
	"time"

	"github.com/tomtom215/gsps-archiver/internal/configtree"
	"github.com/tomtom215/gsps-archiver/internal/dataset"
)

const (
	globalIDLayout = "20060102T150405"
	historyLayout  = "Mon Jan 02 15:04:05 2006"

	// FilenameSuffix follows the global id in every archive file name.
	FilenameSuffix = "_rt0"
)

// Attributes is the merged global attribute map of one dataset.
type Attributes map[string]any

// Generator derives metadata from datasets and a configuration snapshot.
// It is safe for concurrent use.
type Generator struct {
	tree      *configtree.Tree
	loc       *time.Location
	now       func() time.Time
	extension string
}

// Option configures a Generator.
type Option func(*Generator)

// WithLocation sets the zone used to render dataset timestamps.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// WithClock overrides the clock used for the history attribute.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithExtension sets the file extension appended by Filename, e.g. ".nc".
func WithExtension(ext string) Option {
	return func(g *Generator) { g.extension = ext }
}

// NewGenerator creates a Generator reading from tree.
func NewGenerator(tree *configtree.Tree, opts ...Option) *Generator {
	g := &Generator{
		tree: tree,
		loc:  time.UTC,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GlobalID returns "<platform id>_YYYYMMDDTHHMMSS" built from the first
// timestamp in arrival order.
func (g *Generator) GlobalID(ds *dataset.Dataset) (string, error) {
	if ds.Len() == 0 {
		return "", ErrNoTimes
	}
	p, err := g.tree.Platform(ds.Platform)
	if err != nil {
		return "", err
	}
	return p.Deployment.PlatformID() + "_" + g.timeAt(ds.Times[0]).Format(globalIDLayout), nil
}

// Filename returns "<platform without dashes>-<global id>_rt0<extension>".
func (g *Generator) Filename(ds *dataset.Dataset) (string, error) {
	id, err := g.GlobalID(ds)
	if err != nil {
		return "", err
	}
	return FilenameFor(ds.Platform, id, g.extension), nil
}

// FilenameFor builds an archive file name from its parts.
func FilenameFor(platform, globalID, extension string) string {
	return strings.ReplaceAll(platform, "-", "") + "-" + globalID + FilenameSuffix + extension
}

// GeospatialBounds returns min, max, resolution and units for latitude,
// longitude and depth. A role is omitted when its column is absent or holds
// only fill. geospatial_vertical_positive is always "down".
func (g *Generator) GeospatialBounds(ds *dataset.Dataset) Attributes {
	bounds := Attributes{}
	for _, role := range boundRoles {
		values, ok := ds.Column(role.column)
		if !ok {
			continue
		}
		minimum, ok := MinExcludingFill(values)
		if !ok {
			continue
		}
		bounds[role.prefix+"_min"] = minimum
		bounds[role.prefix+"_max"] = MaxExcludingFill(values, minimum)
		bounds[role.prefix+"_resolution"] = "point"
		bounds[role.prefix+"_units"] = role.units
	}
	bounds["geospatial_vertical_positive"] = "down"
	return bounds
}

// TemporalBounds returns coverage start and end, resolution and history.
func (g *Generator) TemporalBounds(ds *dataset.Dataset) Attributes {
	bounds := Attributes{
		"history":                  "Created on " + g.now().UTC().Format(historyLayout),
		"time_coverage_resolution": "point",
	}
	if ds.Len() == 0 {
		return bounds
	}

	start, end := ds.Times[0], ds.Times[0]
	for _, t := range ds.Times[1:] {
		start = math.Min(start, t)
		end = math.Max(end, t)
	}
	bounds["time_coverage_start"] = g.timeAt(start).Format(time.RFC3339)
	bounds["time_coverage_end"] = g.timeAt(end).Format(time.RFC3339)
	return bounds
}

// Generate merges every attribute source into a new map.
func (g *Generator) Generate(ds *dataset.Dataset) (Attributes, error) {
	p, err := g.tree.Platform(ds.Platform)
	if err != nil {
		return nil, err
	}
	id, err := g.GlobalID(ds)
	if err != nil {
		return nil, err
	}

	attrs := Attributes{}
	for _, src := range []map[string]any{
		g.tree.GlobalAttributes(),
		p.Deployment.GlobalAttributes,
		g.GeospatialBounds(ds),
		g.TemporalBounds(ds),
	} {
		for k, v := range src {
			attrs[k] = v
		}
	}
	attrs["id"] = id
	return attrs, nil
}

// timeAt converts a POSIX timestamp, truncating fractional seconds.
func (g *Generator) timeAt(ts float64) time.Time {
	return time.Unix(int64(math.Floor(ts)), 0).In(g.loc)
}
