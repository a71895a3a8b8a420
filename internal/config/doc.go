// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

/*
Package config provides process configuration for the archiver.

Configuration is layered with koanf, lowest priority first:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file (--config, GSPS_CONFIG_PATH or a default path)
 3. Environment variables (GSPS_*, see envMappings)
 4. Command-line flags

The flags mirror the historical subscriber CLI:

	gsps-archiver [--nats_url URL] [--configs DIR] [--log_file PATH] [--pid_file PATH] OUTPUT_DIR

The configuration tree that describes gliders and deployments is separate;
see package configtree. This package only locates it (paths.configs_dir).

# Example YAML

	transport:
	  url: nats://gsps.example.org:4222
	  subject: gsps.>
	paths:
	  output_dir: /data/gliders
	  configs_dir: /etc/gsps-archiver
	pipeline:
	  workers: 4
	  session_ttl: 6h
	dead_letter:
	  path: /var/lib/gsps-archiver/deadletter
	server:
	  port: 9464
*/
package config
