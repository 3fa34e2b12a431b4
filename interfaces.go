// Package agentfs provides a virtual filesystem layer for agent
// tooling: a single safe namespace composed from one or more storage
// providers, routed by path-prefix mounts.
package agentfs

import (
	"context"

	"github.com/mwantia/agentfs/data"
)

// FileSystemProvider is the capability contract implemented by every
// storage backend, and by CompositeFileSystem itself. All paths are
// workspace-relative, forward-slash separated.
type FileSystemProvider interface {
	// ID returns the stable instance id assigned at construction.
	ID() string

	// Name returns the human-readable name of this provider instance.
	Name() string

	// Provider returns the backend kind, such as "local" or "memory".
	Provider() string

	// ReadOnly reports whether mutating operations are rejected.
	ReadOnly() bool

	// ReadFile returns the full content of a file.
	// Returns ErrNotExist if the path is missing.
	// Returns ErrIsDirectory if the path is a directory.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile writes content to a file, creating parent directories
	// unless disabled. With overwrite disabled, an existing file fails
	// with ErrExist.
	WriteFile(ctx context.Context, path string, content []byte, opts ...data.WriteOption) error

	// AppendFile appends content to a file, creating it and any parent
	// directories as needed.
	AppendFile(ctx context.Context, path string, content []byte) error

	// UnlinkFile removes a file.
	// Returns ErrIsDirectory if the path is a directory.
	// A missing path is silent success with force, else ErrNotExist.
	UnlinkFile(ctx context.Context, path string, force bool) error

	// CopyFile copies a file or, with recursive, a directory tree.
	CopyFile(ctx context.Context, source, dest string, opts ...data.CopyOption) error

	// MoveFile moves a file or directory, falling back to copy plus
	// force-delete when a native rename is not possible.
	MoveFile(ctx context.Context, source, dest string, opts ...data.CopyOption) error

	// CreateDirectory creates a directory and any missing parents.
	// Creating an existing directory is idempotent success; an existing
	// non-directory fails with ErrExist.
	CreateDirectory(ctx context.Context, path string) error

	// RemoveDirectory removes a directory. A non-empty directory
	// without recursive fails with ErrDirectoryNotEmpty. A missing path
	// is silent success with force, else ErrNotExist.
	RemoveDirectory(ctx context.Context, path string, recursive, force bool) error

	// ReadDirectory lists a directory, one level deep by default.
	ReadDirectory(ctx context.Context, path string, opts ...data.ReadDirOption) ([]*data.FileEntry, error)

	// Exists reports whether the path exists. It is a total predicate
	// for missing paths, but containment violations still fail.
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns file information with the path rewritten relative
	// to this provider's root.
	Stat(ctx context.Context, path string) (*data.FileStat, error)
}

// Initializer is an optional provider capability, invoked once before
// first use. Presence is detected by type assertion.
type Initializer interface {
	Init(ctx context.Context) error
}

// Destroyer is an optional provider capability, invoked once during
// teardown. Presence is detected by type assertion.
type Destroyer interface {
	Destroy(ctx context.Context) error
}

// SearchIndexer is the narrow interface through which an external
// search index consumes filesystem content. This package never calls
// into an indexer's internals; see IndexTree.
type SearchIndexer interface {
	Index(ctx context.Context, path string, content []byte, metadata map[string]string) error
}

// CommandExecutor is the narrow interface of an external process
// sandbox. Providers may optionally expose it; callers branch on
// presence with a type assertion.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, command string, args ...string) (int, error)
}

// Diagnostic is a single finding reported by an external diagnostics
// provider.
type Diagnostic struct {
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// DiagnosticsProvider is the narrow interface of an external language
// diagnostics collaborator.
type DiagnosticsProvider interface {
	GetDiagnostics(ctx context.Context, path string, content []byte, basePath string) ([]Diagnostic, error)
}
