// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

// Package validation provides struct validation using go-playground/validator v10.
// It provides a thread-safe singleton validator instance with the custom rules
// the archiver needs for configuration and API input.
//
// Custom tags:
//   - relpath: a relative path that stays inside its parent (no "..", not absolute)
//   - subject: a NATS subject, optionally with "*" and trailing ">" wildcards
//
// Example usage:
//
//	type ListDatasetsRequest struct {
//	    Platform string `validate:"omitempty,max=64"`
//	    Limit    int    `validate:"min=1,max=1000"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    ...
//	}
package validation
