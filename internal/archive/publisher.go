// GSPS Archiver - Glider telemetry session archiving
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gsps-archiver

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
)

// PublishRequest describes one dataset to publish.
type PublishRequest struct {
	// Directory is the deployment directory relative to the archive root.
	Directory string

	// Filename is the final file name inside Directory.
	Filename string

	File *File
}

// Publisher encodes datasets into scratch storage and moves them into the
// archive tree. It is safe for concurrent use.
type Publisher struct {
	root    string
	scratch string
	encoder Encoder
	breaker *gobreaker.CircuitBreaker[struct{}]

	rename func(oldpath, newpath string) error
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithScratchDir sets where files are encoded before the move.
// Defaults to os.TempDir().
func WithScratchDir(dir string) PublisherOption {
	return func(p *Publisher) { p.scratch = dir }
}

// WithBreaker replaces the default breaker configuration.
func WithBreaker(cfg BreakerConfig) PublisherOption {
	return func(p *Publisher) { p.breaker = newBreaker(cfg) }
}

// NewPublisher creates a Publisher writing below root.
func NewPublisher(root string, enc Encoder, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		root:    root,
		scratch: os.TempDir(),
		encoder: enc,
		rename:  os.Rename,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.breaker == nil {
		p.breaker = newBreaker(DefaultBreakerConfig())
	}
	return p
}

// Extension returns the encoder's file extension.
func (p *Publisher) Extension() string {
	return p.encoder.Extension()
}

// Root returns the archive root.
func (p *Publisher) Root() string {
	return p.root
}

// Publish writes req into the archive and returns the final path.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (string, error) {
	if err := os.MkdirAll(p.scratch, 0o755); err != nil {
		return "", &PublishError{Stage: StageMkdir, Path: p.scratch, Err: err}
	}
	scratchPath := filepath.Join(p.scratch, uuid.NewString()+"-"+req.Filename)

	// Scratch is always gone once Publish returns.
	defer func() { _ = os.Remove(scratchPath) }()

	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.encoder.Encode(ctx, scratchPath, req.File)
	})
	if err != nil {
		return "", &PublishError{Stage: StageEncode, Path: scratchPath, Err: err}
	}

	destDir := filepath.Join(p.root, req.Directory)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", &PublishError{Stage: StageMkdir, Path: destDir, Err: err}
	}

	dest := filepath.Join(destDir, req.Filename)
	if err := p.move(scratchPath, dest); err != nil {
		return "", &PublishError{Stage: StageMove, Path: dest, Err: err}
	}
	return dest, nil
}

// move renames src to dst, copying through a temporary file in dst's
// directory when they are on different filesystems.
func (p *Publisher) move(src, dst string) error {
	err := p.rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	tmp, err := copyToTemp(src, filepath.Dir(dst))
	if err != nil {
		return err
	}
	if err := p.rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func copyToTemp(src, dir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return "", err
	}
	tmp := out.Name()

	fail := func(err error) (string, error) {
		_ = out.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		return fail(fmt.Errorf("copy: %w", err))
	}
	if err := out.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := out.Sync(); err != nil {
		return fail(fmt.Errorf("sync: %w", err))
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// BreakerState returns the encoder breaker state for health reporting.
func (p *Publisher) BreakerState() string {
	return p.breaker.State().String()
}
