// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultConfigPaths are searched in order when no config file is given.
var DefaultConfigPaths = []string{
	"gsps-archiver.yaml",
	"gsps-archiver.yml",
	"/etc/gsps-archiver/gsps-archiver.yaml",
	"/etc/gsps-archiver/gsps-archiver.yml",
}

// ConfigPathEnvVar names the environment variable holding the config file path.
const ConfigPathEnvVar = "GSPS_CONFIG_PATH"

// EnvPrefix is stripped from environment variable names before mapping.
const EnvPrefix = "GSPS_"

func defaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			URL:           "nats://127.0.0.1:4222",
			Subject:       "gsps.>",
			QueueGroup:    "",
			PoisonSubject: "",
			JetStream:     false,
			StreamName:    "GSPS",
			DurableName:   "gsps-archiver",
			StreamMaxAge:  7 * 24 * time.Hour,
			MaxReconnects: -1, // Reconnect forever
			ReconnectWait: 2 * time.Second,
			AckWait:       5 * time.Minute,
			CloseTimeout:  30 * time.Second,
			Embedded:      false,
			EmbeddedPort:  4222,
		},
		Paths: PathsConfig{
			ConfigsDir: "/etc/gsps-archiver",
		},
		Pipeline: PipelineConfig{
			Workers:         4,
			QueueSize:       64,
			TaskTimeout:     5 * time.Minute,
			SessionTTL:      6 * time.Hour,
			ShutdownTimeout: 30 * time.Second,
		},
		Archive: ArchiveConfig{
			Compression:      "default",
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
			GPSInterpolation: true,
			ProfileMinDelta:  2,
		},
		Metadata: MetadataConfig{
			Timezone: "UTC",
		},
		DeadLetter: DeadLetterConfig{
			Path:           "/var/lib/gsps-archiver/deadletter",
			ReplayInterval: time.Minute,
			MaxAttempts:    5,
			ReplayRate:     2,
			ReplayBurst:    4,
			BatchSize:      100,
		},
		Catalog: CatalogConfig{
			Path: "/var/lib/gsps-archiver/catalog.duckdb",
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            9464,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// flagKeys maps command-line flags to koanf paths. Flags not listed here
// (such as --config) are not configuration values.
var flagKeys = map[string]string{
	"nats_url":      "transport.url",
	"configs":       "paths.configs_dir",
	"log_file":      "logging.file",
	"log_level":     "logging.level",
	"pid_file":      "paths.pid_file",
	"http_port":     "server.port",
	"embedded_nats": "transport.embedded",
}

// NewFlagSet returns the command-line flags.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Path of a YAML configuration file")
	fs.String("nats_url", "", "NATS url of the GSPS publisher (default nats://127.0.0.1:4222)")
	fs.String("configs", "", "Directory holding global and glider configuration files (default /etc/gsps-archiver)")
	fs.String("log_file", "", "Also write logs to this file")
	fs.String("log_level", "", "Log level: trace, debug, info, warn, error")
	fs.String("pid_file", "", "Write the process id to this file")
	fs.Int("http_port", 0, "Port of the operations HTTP server (default 9464)")
	fs.Bool("embedded_nats", false, "Start an embedded NATS server (development)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] OUTPUT_DIR\n\n", name)
		fmt.Fprintln(fs.Output(), "Subscribes to the Glider Singleton Publishing Service and writes every")
		fmt.Fprintln(fs.Output(), "completed dataset to OUTPUT_DIR.")
		fmt.Fprintln(fs.Output())
		fs.PrintDefaults()
	}
	return fs
}

// Load parses args and builds the configuration.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("gsps-archiver")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return LoadWithFlags(fs)
}

// LoadWithFlags builds the configuration from defaults, an optional YAML
// file, the environment and an already parsed flag set.
func LoadWithFlags(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	explicit, _ := fs.GetString("config")
	configPath, err := findConfigFile(explicit)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables
	// GSPS_NATS_URL -> transport.url
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Layer 4: Command-line flags (highest priority). Unchanged flags never
	// override a value from a lower layer.
	flagProvider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	})
	if err := k.Load(flagProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}
	if out := fs.Arg(0); out != "" {
		if err := k.Set("paths.output_dir", out); err != nil {
			return nil, fmt.Errorf("failed to set output directory: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the file to load. An explicit path must exist; the
// environment variable and default paths are optional.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}

	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// envMappings maps lowercased variable names, without EnvPrefix, to koanf
// paths. Unlisted variables are ignored.
var envMappings = map[string]string{
	// Transport
	"nats_url":            "transport.url",
	"nats_subject":        "transport.subject",
	"nats_queue_group":    "transport.queue_group",
	"nats_poison_subject": "transport.poison_subject",
	"nats_jetstream":      "transport.jetstream",
	"nats_stream_name":    "transport.stream_name",
	"nats_durable_name":   "transport.durable_name",
	"nats_stream_max_age": "transport.stream_max_age",
	"nats_max_reconnects": "transport.max_reconnects",
	"nats_reconnect_wait": "transport.reconnect_wait",
	"nats_ack_wait":       "transport.ack_wait",
	"nats_close_timeout":  "transport.close_timeout",
	"nats_embedded":       "transport.embedded",
	"nats_embedded_port":  "transport.embedded_port",
	"nats_store_dir":      "transport.embedded_store_dir",

	// Paths
	"output_dir":  "paths.output_dir",
	"configs_dir": "paths.configs_dir",
	"scratch_dir": "paths.scratch_dir",
	"pid_file":    "paths.pid_file",

	// Pipeline
	"workers":          "pipeline.workers",
	"queue_size":       "pipeline.queue_size",
	"task_timeout":     "pipeline.task_timeout",
	"session_ttl":      "pipeline.session_ttl",
	"shutdown_timeout": "pipeline.shutdown_timeout",

	// Archive
	"compression":       "archive.compression",
	"breaker_threshold": "archive.breaker_threshold",
	"breaker_timeout":   "archive.breaker_timeout",
	"gps_interpolation": "archive.gps_interpolation",
	"profile_min_delta": "archive.profile_min_delta",

	// Metadata
	"timezone": "metadata.timezone",

	// Dead letters
	"dead_letter_path":            "dead_letter.path",
	"dead_letter_in_memory":       "dead_letter.in_memory",
	"dead_letter_sync_writes":     "dead_letter.sync_writes",
	"dead_letter_entry_ttl":       "dead_letter.entry_ttl",
	"dead_letter_replay_interval": "dead_letter.replay_interval",
	"dead_letter_max_attempts":    "dead_letter.max_attempts",
	"dead_letter_replay_rate":     "dead_letter.replay_rate",
	"dead_letter_replay_burst":    "dead_letter.replay_burst",
	"dead_letter_batch_size":      "dead_letter.batch_size",

	// Catalog
	"catalog_path": "catalog.path",

	// Server
	"http_enabled":        "server.enabled",
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_read_timeout":   "server.read_timeout",
	"http_write_timeout":  "server.write_timeout",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
	"log_file":   "logging.file",
}

func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// normalize trims trailing separators the historical CLI tolerated.
func (c *Config) normalize() {
	c.Paths.OutputDir = trimTrailingSlash(c.Paths.OutputDir)
	c.Paths.ConfigsDir = trimTrailingSlash(c.Paths.ConfigsDir)
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)
}

func trimTrailingSlash(p string) string {
	if len(p) > 1 {
		return strings.TrimRight(p, "/")
	}
	return p
}
