// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package ingest

import "errors"

var (
	// ErrTransportClosed is returned by Router.Run when the subscription
	// channel closes while the router is still wanted.
	ErrTransportClosed = errors.New("transport closed")

	// ErrUnknownMessageType marks a payload whose message_type is not
	// recognized. Such messages are ignored; the error only appears in logs.
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrMalformedMessage is returned by Decode for payloads that cannot be
	// interpreted.
	ErrMalformedMessage = errors.New("malformed message")
)
