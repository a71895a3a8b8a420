// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package ingest

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    Message
	}{
		{
			name:    "set_start",
			payload: `{"message_type":"set_start","glider":"bass","start":"T1","segment":"seg","headers":[{"name":"m_depth","units":"m"},{"name":"m_lat","units":"lat"}]}`,
			want: StartMessage{
				Glider:  "bass",
				Start:   "T1",
				Segment: "seg",
				Headers: []string{"m_depth-m", "m_lat-lat"},
			},
		},
		{
			name:    "short start with numeric tokens",
			payload: `{"message_type":"start","glider":"bass","start":1433160000,"segment":7,"headers":[]}`,
			want: StartMessage{
				Glider:  "bass",
				Start:   "1433160000",
				Segment: "7",
				Headers: []string{},
			},
		},
		{
			name:    "set_end",
			payload: `{"message_type":"set_end","glider":"bass","start":"T1"}`,
			want:    EndMessage{Glider: "bass", Start: "T1"},
		},
		{
			name:    "end",
			payload: `{"message_type":"end","glider":"bass","start":"T1"}`,
			want:    EndMessage{Glider: "bass", Start: "T1"},
		},
		{
			name:    "unknown type",
			payload: `{"message_type":"heartbeat","glider":"bass"}`,
			want:    UnknownMessage{Type: "heartbeat", Glider: "bass"},
		},
		{
			name:    "missing type",
			payload: `{"glider":"bass"}`,
			want:    UnknownMessage{Glider: "bass"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecode_Data(t *testing.T) {
	t.Parallel()

	payload := `{"message_type":"set_data","glider":"bass","start":"T1","data":{"timestamp":1433160000.5,"m_depth-m":10,"m_lat-lat":null,"note-x":"text"}}`
	got, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	msg, ok := got.(DataMessage)
	if !ok {
		t.Fatalf("Decode() = %T, want DataMessage", got)
	}
	if msg.Row.Timestamp != 1433160000.5 {
		t.Errorf("Timestamp = %v, want 1433160000.5", msg.Row.Timestamp)
	}
	want := map[string]float64{"m_depth-m": 10}
	if !reflect.DeepEqual(msg.Row.Values, want) {
		t.Errorf("Values = %v, want %v", msg.Row.Values, want)
	}
	if msg.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", msg.Skipped)
	}
	if msg.Key() != "bass-T1" {
		t.Errorf("Key() = %q, want bass-T1", msg.Key())
	}
}

func TestDecode_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `not json`},
		{name: "start without glider", payload: `{"message_type":"set_start","start":"T1"}`},
		{name: "data without start", payload: `{"message_type":"set_data","glider":"bass","data":{"timestamp":1}}`},
		{name: "data without timestamp", payload: `{"message_type":"set_data","glider":"bass","start":"T1","data":{"m_depth-m":1}}`},
		{name: "non-numeric timestamp", payload: `{"message_type":"set_data","glider":"bass","start":"T1","data":{"timestamp":"now"}}`},
		{name: "null timestamp", payload: `{"message_type":"set_data","glider":"bass","start":"T1","data":{"timestamp":null}}`},
		{name: "timestamp past year 9999", payload: `{"message_type":"set_data","glider":"bass","start":"T1","data":{"timestamp":1e300}}`},
		{name: "timestamp beyond int64", payload: `{"message_type":"set_data","glider":"bass","start":"T1","data":{"timestamp":-9.3e18}}`},
		{name: "boolean start", payload: `{"message_type":"set_end","glider":"bass","start":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode([]byte(tt.payload))
			if err == nil {
				t.Fatal("Decode() error = nil, want error")
			}
			if !errors.Is(err, ErrMalformedMessage) {
				t.Errorf("Decode() error = %v, want ErrMalformedMessage", err)
			}
		})
	}
}
