// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package transport

import (
	"time"

	"github.com/tomtom215/gsps-archiver/internal/validation"
)

// DefaultSubject matches every GSPS glider subject.
const DefaultSubject = "gsps.>"

// SubscriberConfig holds subscriber configuration.
type SubscriberConfig struct {
	URL            string        `validate:"required,url"`
	Subject        string        `validate:"required,subject"`
	QueueGroup     string        `validate:"omitempty"`
	JetStream      bool          `validate:"-"`
	StreamName     string        `validate:"required_if=JetStream true"`
	DurableName    string        `validate:"omitempty"`
	MaxReconnects  int           `validate:"gte=-1"`
	ReconnectWait  time.Duration `validate:"gte=0"`
	AckWaitTimeout time.Duration `validate:"gt=0"`
	CloseTimeout   time.Duration `validate:"gt=0"`
}

// DefaultSubscriberConfig returns production defaults for core NATS.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:            url,
		Subject:        DefaultSubject,
		StreamName:     "GSPS",
		DurableName:    "gsps-archiver",
		MaxReconnects:  -1,
		ReconnectWait:  2 * time.Second,
		AckWaitTimeout: 5 * time.Minute,
		CloseTimeout:   30 * time.Second,
	}
}

// Validate checks the configuration.
func (c *SubscriberConfig) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}
	return nil
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL           string        `validate:"required,url"`
	JetStream     bool          `validate:"-"`
	MaxReconnects int           `validate:"gte=-1"`
	ReconnectWait time.Duration `validate:"gte=0"`
}

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host      string
	Port      int
	JetStream bool
	StoreDir  string
}
