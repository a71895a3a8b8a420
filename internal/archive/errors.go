// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package archive

import "fmt"

// Publish stages reported in PublishError.
const (
	StageEncode = "encode"
	StageMkdir  = "mkdir"
	StageMove   = "move"
)

// PublishError reports the stage at which publishing one dataset failed.
type PublishError struct {
	Stage string
	Path  string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
