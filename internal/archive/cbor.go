// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package archive

import (
	"context"
	"fmt"
	"os"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// CBORExtension is the extension of files written by CBOREncoder.
const CBORExtension = ".cbor.zst"

// encMode uses Core Deterministic Encoding (RFC 8949 4.2) so identical
// datasets produce identical bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("archive: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("archive: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBOREncoder writes zstd-compressed CBOR documents.
type CBOREncoder struct {
	// Level defaults to zstd.SpeedDefault.
	Level zstd.EncoderLevel
}

// Extension implements Encoder.
func (e CBOREncoder) Extension() string {
	return CBORExtension
}

// Encode implements Encoder.
func (e CBOREncoder) Encode(ctx context.Context, path string, f *File) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	level := e.Level
	if level == 0 {
		level = zstd.SpeedDefault
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(path)
		}
	}()

	zw, err := zstd.NewWriter(out, zstd.WithEncoderLevel(level))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if err := encMode.NewEncoder(zw).Encode(f); err != nil {
		_ = zw.Close()
		return fmt.Errorf("cbor encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// ReadCBORFile decodes a file written by CBOREncoder.
func ReadCBORFile(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	zr, err := zstd.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()

	var f File
	if err := decMode.NewDecoder(zr).Decode(&f); err != nil {
		return nil, fmt.Errorf("cbor decode: %w", err)
	}
	return &f, nil
}
