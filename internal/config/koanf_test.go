// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate clears the environment the loader reads and moves into an empty
// directory so default config paths are not found.
func isolate(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, EnvPrefix) {
			name := strings.SplitN(kv, "=", 2)[0]
			t.Setenv(name, "")
			_ = os.Unsetenv(name)
		}
	}
	t.Chdir(t.TempDir())
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Transport.URL != "nats://127.0.0.1:4222" {
		t.Errorf("Transport.URL = %q, want nats://127.0.0.1:4222", cfg.Transport.URL)
	}
	if cfg.Transport.Subject != "gsps.>" {
		t.Errorf("Transport.Subject = %q, want gsps.>", cfg.Transport.Subject)
	}
	if cfg.Transport.JetStream {
		t.Error("Transport.JetStream should be false by default")
	}
	if cfg.Pipeline.Workers != 4 {
		t.Errorf("Pipeline.Workers = %d, want 4", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.SessionTTL != 6*time.Hour {
		t.Errorf("Pipeline.SessionTTL = %v, want 6h", cfg.Pipeline.SessionTTL)
	}
	if cfg.Metadata.Timezone != "UTC" {
		t.Errorf("Metadata.Timezone = %q, want UTC", cfg.Metadata.Timezone)
	}
	if cfg.Paths.OutputDir != "" {
		t.Errorf("Paths.OutputDir = %q, want empty", cfg.Paths.OutputDir)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"GSPS_NATS_URL", "transport.url"},
		{"GSPS_WORKERS", "pipeline.workers"},
		{"GSPS_SESSION_TTL", "pipeline.session_ttl"},
		{"GSPS_DEAD_LETTER_MAX_ATTEMPTS", "dead_letter.max_attempts"},
		{"GSPS_LOG_LEVEL", "logging.level"},
		{"GSPS_UNKNOWN_THING", ""},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestLoad_PositionalOutputDir(t *testing.T) {
	isolate(t)

	cfg, err := Load([]string{"/data/gliders/"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Paths.OutputDir != "/data/gliders" {
		t.Errorf("Paths.OutputDir = %q, want /data/gliders", cfg.Paths.OutputDir)
	}
	if cfg.Transport.URL != "nats://127.0.0.1:4222" {
		t.Errorf("Transport.URL = %q, want default", cfg.Transport.URL)
	}
}

func TestLoad_MissingOutputDir(t *testing.T) {
	isolate(t)

	if _, err := Load(nil); err == nil {
		t.Fatal("Load() error = nil, want missing output directory error")
	}
}

func TestLoad_Flags(t *testing.T) {
	isolate(t)

	cfg, err := Load([]string{
		"--nats_url", "nats://gsps.example.org:4222",
		"--configs", "/etc/gliders/",
		"--log_file", "/var/log/gsps.log",
		"--pid_file", "/run/gsps.pid",
		"--http_port", "8080",
		"/data/out",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Transport.URL != "nats://gsps.example.org:4222" {
		t.Errorf("Transport.URL = %q", cfg.Transport.URL)
	}
	if cfg.Paths.ConfigsDir != "/etc/gliders" {
		t.Errorf("Paths.ConfigsDir = %q, want /etc/gliders", cfg.Paths.ConfigsDir)
	}
	if cfg.Logging.File != "/var/log/gsps.log" {
		t.Errorf("Logging.File = %q", cfg.Logging.File)
	}
	if cfg.Paths.PIDFile != "/run/gsps.pid" {
		t.Errorf("Paths.PIDFile = %q", cfg.Paths.PIDFile)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
}

func TestLoad_Layering(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "gsps.yaml")
	content := `
transport:
  url: nats://from-file:4222
  subject: gsps.usf.>
pipeline:
  workers: 8
  session_ttl: 2h
paths:
  output_dir: /data/file
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("GSPS_WORKERS", "12")
	t.Setenv("GSPS_NATS_URL", "nats://from-env:4222")

	cfg, err := Load([]string{"--nats_url", "nats://from-flag:4222"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Transport.URL != "nats://from-flag:4222" {
		t.Errorf("Transport.URL = %q, flag should win", cfg.Transport.URL)
	}
	if cfg.Transport.Subject != "gsps.usf.>" {
		t.Errorf("Transport.Subject = %q, file value expected", cfg.Transport.Subject)
	}
	if cfg.Pipeline.Workers != 12 {
		t.Errorf("Pipeline.Workers = %d, env should override file", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.SessionTTL != 2*time.Hour {
		t.Errorf("Pipeline.SessionTTL = %v, want 2h", cfg.Pipeline.SessionTTL)
	}
	if cfg.Paths.OutputDir != "/data/file" {
		t.Errorf("Paths.OutputDir = %q, want /data/file", cfg.Paths.OutputDir)
	}
}

func TestLoad_ExplicitConfigMustExist(t *testing.T) {
	isolate(t)

	_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "/data/out"})
	if err == nil {
		t.Fatal("Load() error = nil, want missing config file error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad subject", mutate: func(c *Config) { c.Transport.Subject = "gsps..x" }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.Pipeline.Workers = 0 }, wantErr: true},
		{name: "bad compression", mutate: func(c *Config) { c.Archive.Compression = "max" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: true},
		{name: "warning alias", mutate: func(c *Config) { c.Logging.Level = "warning" }},
		{name: "logging disabled", mutate: func(c *Config) { c.Logging.Level = "disabled" }},
		{name: "upper-case level", mutate: func(c *Config) { c.Logging.Level = "DEBUG" }},
		{name: "bad timezone", mutate: func(c *Config) { c.Metadata.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "jetstream without stream", mutate: func(c *Config) {
			c.Transport.JetStream = true
			c.Transport.StreamName = ""
		}, wantErr: true},
		{name: "poison inside subscription", mutate: func(c *Config) { c.Transport.PoisonSubject = "gsps.poison" }, wantErr: true},
		{name: "poison outside subscription", mutate: func(c *Config) { c.Transport.PoisonSubject = "archiver.poison" }},
		{name: "dead letter without path", mutate: func(c *Config) { c.DeadLetter.Path = "" }, wantErr: true},
		{name: "in-memory dead letter", mutate: func(c *Config) {
			c.DeadLetter.Path = ""
			c.DeadLetter.InMemory = true
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Paths.OutputDir = "/data/out"
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
