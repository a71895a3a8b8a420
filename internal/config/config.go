// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package config

import (
	"time"
)

// Config holds all process configuration.
type Config struct {
	Transport  TransportConfig  `koanf:"transport"`
	Paths      PathsConfig      `koanf:"paths"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Archive    ArchiveConfig    `koanf:"archive"`
	Metadata   MetadataConfig   `koanf:"metadata"`
	DeadLetter DeadLetterConfig `koanf:"dead_letter"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// TransportConfig configures the GSPS subscription.
type TransportConfig struct {
	URL           string        `koanf:"url" validate:"required,url"`
	Subject       string        `koanf:"subject" validate:"required,subject"`
	QueueGroup    string        `koanf:"queue_group"`
	PoisonSubject string        `koanf:"poison_subject" validate:"omitempty,subject"`
	JetStream     bool          `koanf:"jetstream"`
	StreamName    string        `koanf:"stream_name" validate:"required_if=JetStream true"`
	DurableName   string        `koanf:"durable_name"`
	StreamMaxAge  time.Duration `koanf:"stream_max_age" validate:"gte=0"`
	MaxReconnects int           `koanf:"max_reconnects" validate:"gte=-1"`
	ReconnectWait time.Duration `koanf:"reconnect_wait" validate:"gte=0"`
	AckWait       time.Duration `koanf:"ack_wait" validate:"gt=0"`
	CloseTimeout  time.Duration `koanf:"close_timeout" validate:"gt=0"`

	// Embedded starts an in-process NATS server (development only).
	Embedded         bool   `koanf:"embedded"`
	EmbeddedPort     int    `koanf:"embedded_port" validate:"gte=-1,lte=65535"`
	EmbeddedStoreDir string `koanf:"embedded_store_dir"`
}

// PathsConfig locates files on disk.
type PathsConfig struct {
	// OutputDir is the archive root. Set by the positional argument.
	OutputDir string `koanf:"output_dir" validate:"required"`

	// ConfigsDir holds the glider configuration tree.
	ConfigsDir string `koanf:"configs_dir" validate:"required"`

	// ScratchDir holds files while they are encoded. Empty uses os.TempDir().
	ScratchDir string `koanf:"scratch_dir"`

	// PIDFile is written at startup when set.
	PIDFile string `koanf:"pid_file"`
}

// PipelineConfig sizes the completion pipeline.
type PipelineConfig struct {
	Workers         int           `koanf:"workers" validate:"min=1,max=256"`
	QueueSize       int           `koanf:"queue_size" validate:"min=1"`
	TaskTimeout     time.Duration `koanf:"task_timeout" validate:"gte=0"`
	SessionTTL      time.Duration `koanf:"session_ttl" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// ArchiveConfig configures encoding and the derived columns.
type ArchiveConfig struct {
	// Compression is one of fastest, default, better, best.
	Compression      string        `koanf:"compression" validate:"oneof=fastest default better best"`
	BreakerThreshold uint32        `koanf:"breaker_threshold" validate:"min=1"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
	GPSInterpolation bool          `koanf:"gps_interpolation"`

	// ProfileMinDelta enables profile segmentation when positive.
	ProfileMinDelta float64 `koanf:"profile_min_delta" validate:"gte=0"`
}

// MetadataConfig configures attribute generation.
type MetadataConfig struct {
	// Timezone formats global ids. Use "Local" for the host zone.
	Timezone string `koanf:"timezone" validate:"required"`
}

// DeadLetterConfig configures retention and replay of failed datasets.
type DeadLetterConfig struct {
	Path           string        `koanf:"path"`
	InMemory       bool          `koanf:"in_memory"`
	SyncWrites     bool          `koanf:"sync_writes"`
	EntryTTL       time.Duration `koanf:"entry_ttl" validate:"gte=0"`
	ReplayInterval time.Duration `koanf:"replay_interval" validate:"gt=0"`
	MaxAttempts    int           `koanf:"max_attempts" validate:"min=1"`
	ReplayRate     float64       `koanf:"replay_rate" validate:"gt=0"`
	ReplayBurst    int           `koanf:"replay_burst" validate:"min=1"`
	BatchSize      int           `koanf:"batch_size" validate:"min=1"`
}

// CatalogConfig configures the DuckDB archive catalog.
type CatalogConfig struct {
	// Path of the database file. Empty keeps the catalog in memory.
	Path string `koanf:"path"`
}

// ServerConfig configures the operations HTTP server.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`

	// File also writes logs to this path when set.
	File string `koanf:"file"`
}
