// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/gsps-archiver/internal/logging"
	"github.com/tomtom215/gsps-archiver/internal/transport"
	"github.com/tomtom215/gsps-archiver/internal/validation"
)

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	if err := c.validateTransport(); err != nil {
		return err
	}
	if err := c.validateDeadLetter(); err != nil {
		return err
	}
	return c.validateMetadata()
}

// A poison subject inside the subscription would feed rejects back in.
func (c *Config) validateTransport() error {
	t := c.Transport
	if t.PoisonSubject != "" && transport.SubjectsOverlap(t.Subject, t.PoisonSubject) {
		return fmt.Errorf("transport.poison_subject %q overlaps transport.subject %q", t.PoisonSubject, t.Subject)
	}
	return nil
}

func (c *Config) validateDeadLetter() error {
	if !c.DeadLetter.InMemory && c.DeadLetter.Path == "" {
		return fmt.Errorf("dead_letter.path is required unless dead_letter.in_memory is set")
	}
	return nil
}

func (c *Config) validateMetadata() error {
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("metadata.timezone is invalid: %w", err)
	}
	return nil
}

// Location returns the time zone global ids are formatted in.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Metadata.Timezone)
}
