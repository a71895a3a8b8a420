// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

/*
Package metadata derives identifiers and global attributes for an assembled
dataset.

Generate merges, later sources winning:

 1. global_attributes from the configuration tree
 2. the platform's deployment global_attributes
 3. geospatial bounds (latitude, longitude, depth)
 4. temporal bounds and history
 5. id, the global identifier

The result is always a freshly allocated map; the configuration tree is never
modified. Timestamps are rendered in the generator's location, UTC unless
WithLocation says otherwise.
*/
package metadata
