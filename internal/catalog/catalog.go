// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/gsps-archiver/internal/logging"
	"github.com/tomtom215/gsps-archiver/internal/metrics"
)

// ErrNotFound is returned when no dataset exists for a global id.
var ErrNotFound = errors.New("dataset not found")

// Dataset is one catalog row. Bounds are nil when the column was absent or
// held only fill.
type Dataset struct {
	GlobalID    string    `json:"global_id"`
	Platform    string    `json:"platform"`
	Segment     string    `json:"segment"`
	Path        string    `json:"path"`
	Rows        int       `json:"rows"`
	TimeStart   float64   `json:"time_start"`
	TimeEnd     float64   `json:"time_end"`
	LatMin      *float64  `json:"lat_min,omitempty"`
	LatMax      *float64  `json:"lat_max,omitempty"`
	LonMin      *float64  `json:"lon_min,omitempty"`
	LonMax      *float64  `json:"lon_max,omitempty"`
	DepthMin    *float64  `json:"depth_min,omitempty"`
	DepthMax    *float64  `json:"depth_max,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Filter narrows List results.
type Filter struct {
	Platform string
	Limit    int
}

// Catalog is a DuckDB-backed dataset index. It is safe for concurrent use.
type Catalog struct {
	conn *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS datasets (
	global_id    VARCHAR PRIMARY KEY,
	platform     VARCHAR NOT NULL,
	segment      VARCHAR NOT NULL,
	path         VARCHAR NOT NULL,
	row_count    BIGINT NOT NULL,
	time_start   DOUBLE NOT NULL,
	time_end     DOUBLE NOT NULL,
	lat_min      DOUBLE,
	lat_max      DOUBLE,
	lon_min      DOUBLE,
	lon_max      DOUBLE,
	depth_min    DOUBLE,
	depth_max    DOUBLE,
	published_at TIMESTAMP NOT NULL
);
`

// Open opens the catalog at path, creating the schema when needed. An empty
// path opens an in-memory catalog.
func Open(ctx context.Context, path string) (*Catalog, error) {
	connStr := ":memory:"
	if path != "" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create catalog directory %s: %w", dir, err)
			}
		}
		connStr = path
	}
	// Extensions are never needed; disabling autoload avoids network access.
	connStr += "?autoinstall_known_extensions=false&autoload_known_extensions=false"

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}

	logging.Info().Str("path", path).Msg("Archive catalog opened")
	return &Catalog{conn: conn}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.conn.Close()
}

// Ping checks the connection for readiness probes.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.conn.PingContext(ctx)
}

// Record inserts or replaces the row for d.GlobalID.
func (c *Catalog) Record(ctx context.Context, d Dataset) (err error) {
	start := time.Now()
	defer func() { metrics.RecordCatalogQuery("record", time.Since(start), err) }()

	_, err = c.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO datasets (
			global_id, platform, segment, path, row_count, time_start, time_end,
			lat_min, lat_max, lon_min, lon_max, depth_min, depth_max, published_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.GlobalID, d.Platform, d.Segment, d.Path, d.Rows, d.TimeStart, d.TimeEnd,
		nullable(d.LatMin), nullable(d.LatMax), nullable(d.LonMin), nullable(d.LonMax),
		nullable(d.DepthMin), nullable(d.DepthMax), d.PublishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record dataset %s: %w", d.GlobalID, err)
	}
	return nil
}

const selectColumns = `global_id, platform, segment, path, row_count, time_start, time_end,
	lat_min, lat_max, lon_min, lon_max, depth_min, depth_max, published_at`

// Get returns the dataset with globalID.
func (c *Catalog) Get(ctx context.Context, globalID string) (_ *Dataset, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordCatalogQuery("get", time.Since(start), nil)
			return
		}
		metrics.RecordCatalogQuery("get", time.Since(start), err)
	}()

	row := c.conn.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM datasets WHERE global_id = ?", globalID)
	d, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// List returns datasets, newest first.
func (c *Catalog) List(ctx context.Context, f Filter) (_ []Dataset, err error) {
	start := time.Now()
	defer func() { metrics.RecordCatalogQuery("list", time.Since(start), err) }()

	var (
		where []string
		args  []any
	)
	if f.Platform != "" {
		where = append(where, "platform = ?")
		args = append(args, f.Platform)
	}

	query := "SELECT " + selectColumns + " FROM datasets"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY time_start DESC, global_id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Count returns the number of catalogued datasets.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	err := c.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM datasets").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*Dataset, error) {
	var (
		d                                                  Dataset
		latMin, latMax, lonMin, lonMax, depthMin, depthMax sql.NullFloat64
	)
	err := s.Scan(
		&d.GlobalID, &d.Platform, &d.Segment, &d.Path, &d.Rows, &d.TimeStart, &d.TimeEnd,
		&latMin, &latMax, &lonMin, &lonMax, &depthMin, &depthMax, &d.PublishedAt,
	)
	if err != nil {
		return nil, err
	}
	d.LatMin, d.LatMax = ptr(latMin), ptr(latMax)
	d.LonMin, d.LonMax = ptr(lonMin), ptr(lonMax)
	d.DepthMin, d.DepthMax = ptr(depthMin), ptr(depthMax)
	d.PublishedAt = d.PublishedAt.UTC()
	return &d, nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
