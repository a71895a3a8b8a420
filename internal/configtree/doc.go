// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

/*
Package configtree loads the read-only attribute tree that drives metadata
generation and publishing.

The tree mirrors a directory on disk. Directories become nested maps and files
become parsed leaves keyed by their basename up to the first '.'. Hidden
entries are skipped. JSON is the default leaf format; files ending in .yaml or
.yml are parsed as YAML. A leaf that fails to parse is logged as a
ConfigParseError and loaded as an empty map so one bad file never aborts
startup.

Expected layout:

	configs/
	├── global_attributes.json   attributes shared by every dataset
	├── datatypes.json           column catalog handed to the encoder
	└── usf-bass/                one directory per platform (glider name)
	    ├── deployment.json      platform record, trajectory_id, directory,
	    │                        global_attributes
	    └── instruments.json     instrument list

A Tree is immutable once loaded. Every accessor returns a deep copy so callers
may merge into the result freely.
*/
package configtree
