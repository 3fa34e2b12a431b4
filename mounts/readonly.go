package mounts

import (
	"context"
	"fmt"

	"github.com/mwantia/agentfs"
	"github.com/mwantia/agentfs/data"
)

// ReadOnlyFileSystem wraps any provider to make it read-only. Read
// operations pass through; every mutating operation fails with
// ErrReadOnly before reaching the wrapped provider.
type ReadOnlyFileSystem struct {
	inner agentfs.FileSystemProvider
}

// NewReadOnly creates a read-only wrapper around the given provider.
func NewReadOnly(inner agentfs.FileSystemProvider) *ReadOnlyFileSystem {
	return &ReadOnlyFileSystem{
		inner: inner,
	}
}

func (ro *ReadOnlyFileSystem) ID() string {
	return ro.inner.ID()
}

func (ro *ReadOnlyFileSystem) Name() string {
	return ro.inner.Name()
}

func (ro *ReadOnlyFileSystem) Provider() string {
	return ro.inner.Provider()
}

func (ro *ReadOnlyFileSystem) ReadOnly() bool {
	return true
}

func (ro *ReadOnlyFileSystem) reject() error {
	return fmt.Errorf("mount '%s' is read-only: %w", ro.inner.Name(), data.ErrReadOnly)
}

func (ro *ReadOnlyFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return ro.inner.ReadFile(ctx, path)
}

func (ro *ReadOnlyFileSystem) WriteFile(ctx context.Context, path string, content []byte, opts ...data.WriteOption) error {
	return ro.reject()
}

func (ro *ReadOnlyFileSystem) AppendFile(ctx context.Context, path string, content []byte) error {
	return ro.reject()
}

func (ro *ReadOnlyFileSystem) UnlinkFile(ctx context.Context, path string, force bool) error {
	return ro.reject()
}

func (ro *ReadOnlyFileSystem) CopyFile(ctx context.Context, source, dest string, opts ...data.CopyOption) error {
	return ro.reject()
}

func (ro *ReadOnlyFileSystem) MoveFile(ctx context.Context, source, dest string, opts ...data.CopyOption) error {
	return ro.reject()
}

func (ro *ReadOnlyFileSystem) CreateDirectory(ctx context.Context, path string) error {
	return ro.reject()
}

func (ro *ReadOnlyFileSystem) RemoveDirectory(ctx context.Context, path string, recursive, force bool) error {
	return ro.reject()
}

func (ro *ReadOnlyFileSystem) ReadDirectory(ctx context.Context, path string, opts ...data.ReadDirOption) ([]*data.FileEntry, error) {
	return ro.inner.ReadDirectory(ctx, path, opts...)
}

func (ro *ReadOnlyFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	return ro.inner.Exists(ctx, path)
}

func (ro *ReadOnlyFileSystem) Stat(ctx context.Context, path string) (*data.FileStat, error) {
	return ro.inner.Stat(ctx, path)
}

// Init passes through when the wrapped provider supports it.
func (ro *ReadOnlyFileSystem) Init(ctx context.Context) error {
	if init, ok := ro.inner.(agentfs.Initializer); ok {
		return init.Init(ctx)
	}

	return nil
}

// Destroy passes through when the wrapped provider supports it.
func (ro *ReadOnlyFileSystem) Destroy(ctx context.Context) error {
	if destroy, ok := ro.inner.(agentfs.Destroyer); ok {
		return destroy.Destroy(ctx)
	}

	return nil
}
