// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package configtree

import (
	"errors"
	"fmt"
)

// ErrUnknownPlatform is returned when no valid deployment exists for a platform.
var ErrUnknownPlatform = errors.New("unknown platform")

// ErrMissingPlatformID is returned for deployments without platform.id.
var ErrMissingPlatformID = errors.New("deployment platform.id is required")

// ConfigParseError reports a leaf that could not be parsed or validated.
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}
