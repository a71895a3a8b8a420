// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package session

import "time"

// Key identifies one in-flight dataset across its start, data and end messages.
type Key string

// NewKey derives the session key for a platform and session-start token.
func NewKey(platform, start string) Key {
	return Key(platform + "-" + start)
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// Row is one data message: a timestamp and a sparse column to value mapping.
type Row struct {
	Timestamp float64            `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// Buffer is the mutable state of one open session.
type Buffer struct {
	Key           Key       `json:"key"`
	Platform      string    `json:"platform"`
	Start         string    `json:"start"`
	Segment       string    `json:"segment"`
	Headers       []string  `json:"headers"`
	Rows          []Row     `json:"rows"`
	CorrelationID string    `json:"correlation_id"`
	OpenedAt      time.Time `json:"opened_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	c := *b
	c.Headers = append([]string(nil), b.Headers...)
	c.Rows = make([]Row, len(b.Rows))
	for i, row := range b.Rows {
		values := make(map[string]float64, len(row.Values))
		for k, v := range row.Values {
			values[k] = v
		}
		c.Rows[i] = Row{Timestamp: row.Timestamp, Values: values}
	}
	return &c
}
