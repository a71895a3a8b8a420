// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package ingest

import (
	"bytes"
	"fmt"
	"math"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gsps-archiver/internal/session"
)

// Message is one decoded GSPS message. The concrete type is one of
// StartMessage, DataMessage, EndMessage or UnknownMessage.
type Message interface {
	messageType() string
}

// StartMessage opens a session.
type StartMessage struct {
	Glider  string
	Start   string
	Segment string

	// Headers are normalized to name-units.
	Headers []string
}

// DataMessage carries one row for an open session.
type DataMessage struct {
	Glider string
	Start  string
	Row    session.Row

	// Skipped counts values that were not numeric and were left out of Row.
	Skipped int
}

// EndMessage closes a session.
type EndMessage struct {
	Glider string
	Start  string
}

// UnknownMessage is a well-formed payload with an unrecognized type.
type UnknownMessage struct {
	Type   string
	Glider string
}

func (StartMessage) messageType() string   { return "start" }
func (DataMessage) messageType() string    { return "data" }
func (EndMessage) messageType() string     { return "end" }
func (UnknownMessage) messageType() string { return "unknown" }

// Key returns the session key.
func (m StartMessage) Key() session.Key { return session.NewKey(m.Glider, m.Start) }

// Key returns the session key.
func (m DataMessage) Key() session.Key { return session.NewKey(m.Glider, m.Start) }

// Key returns the session key.
func (m EndMessage) Key() session.Key { return session.NewKey(m.Glider, m.Start) }

// header is one column declaration in a start message.
type header struct {
	Name  string `json:"name"`
	Units string `json:"units"`
}

// envelope is the union of every GSPS message field.
type envelope struct {
	MessageType string                     `json:"message_type"`
	Glider      string                     `json:"glider"`
	Start       token                      `json:"start"`
	Segment     token                      `json:"segment"`
	Headers     []header                   `json:"headers"`
	Data        map[string]json.RawMessage `json:"data"`
}

// token accepts a JSON string or number and keeps its text form. GSPS
// publishes start and segment identifiers as either.
type token string

func (t *token) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = token(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("token must be a string or number: %w", err)
		}
		*t = token(n.String())
	}
	return nil
}

// TimestampField is the data key holding the row timestamp.
const TimestampField = "timestamp"

// maxTimestamp is 9999-12-31T23:59:59Z, the last instant a global id can name.
const maxTimestamp = 253402300799

// Decode parses a GSPS payload. Both the short (start, data, end) and the
// set_ prefixed discriminators are accepted.
func Decode(payload []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	switch env.MessageType {
	case "start", "set_start":
		if err := env.requireSession(); err != nil {
			return nil, err
		}
		headers := make([]string, 0, len(env.Headers))
		for _, h := range env.Headers {
			headers = append(headers, h.Name+"-"+h.Units)
		}
		return StartMessage{
			Glider:  env.Glider,
			Start:   string(env.Start),
			Segment: string(env.Segment),
			Headers: headers,
		}, nil

	case "data", "set_data":
		if err := env.requireSession(); err != nil {
			return nil, err
		}
		row, skipped, err := decodeRow(env.Data)
		if err != nil {
			return nil, err
		}
		return DataMessage{
			Glider:  env.Glider,
			Start:   string(env.Start),
			Row:     row,
			Skipped: skipped,
		}, nil

	case "end", "set_end":
		if err := env.requireSession(); err != nil {
			return nil, err
		}
		return EndMessage{Glider: env.Glider, Start: string(env.Start)}, nil

	default:
		return UnknownMessage{Type: env.MessageType, Glider: env.Glider}, nil
	}
}

func (e *envelope) requireSession() error {
	if e.Glider == "" {
		return fmt.Errorf("%w: %s without glider", ErrMalformedMessage, e.MessageType)
	}
	if e.Start == "" {
		return fmt.Errorf("%w: %s without start", ErrMalformedMessage, e.MessageType)
	}
	return nil
}

// decodeRow extracts the timestamp and every numeric value. Null, string and
// nested values are skipped and later read as fill.
func decodeRow(data map[string]json.RawMessage) (session.Row, int, error) {
	raw, ok := data[TimestampField]
	if !ok {
		return session.Row{}, 0, fmt.Errorf("%w: data without %s", ErrMalformedMessage, TimestampField)
	}
	var ts *float64
	if err := json.Unmarshal(raw, &ts); err != nil {
		return session.Row{}, 0, fmt.Errorf("%w: %s: %w", ErrMalformedMessage, TimestampField, err)
	}
	if ts == nil {
		return session.Row{}, 0, fmt.Errorf("%w: null %s", ErrMalformedMessage, TimestampField)
	}
	if math.IsNaN(*ts) || math.Abs(*ts) > maxTimestamp {
		return session.Row{}, 0, fmt.Errorf("%w: %s %g out of range", ErrMalformedMessage, TimestampField, *ts)
	}

	row := session.Row{
		Timestamp: *ts,
		Values:    make(map[string]float64, len(data)),
	}
	skipped := 0
	for name, raw := range data {
		if name == TimestampField {
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			skipped++
			continue
		}
		row.Values[name] = v
	}
	return row, skipped, nil
}
