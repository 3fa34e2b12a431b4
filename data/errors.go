package data

import (
	"errors"
	"sync"
)

// Standard errors that provider implementations should use.
// Each sentinel is a stable, programmatically matchable kind tag;
// callers branch with errors.Is instead of string matching. Wrapping
// with fmt.Errorf("...: %w", err) adds user-facing detail without
// losing the kind.
var (
	// Path resolution and mount topology errors
	ErrInvalidPath  = errors.New("agentfs: invalid path detected")
	ErrNotMounted   = errors.New("agentfs: path not mounted")
	ErrInvalidMount = errors.New("agentfs: invalid mount configuration")

	// File operation errors
	ErrNotExist          = errors.New("agentfs: file does not exist")
	ErrExist             = errors.New("agentfs: file already exists")
	ErrIsDirectory       = errors.New("agentfs: is a directory")
	ErrNotDirectory      = errors.New("agentfs: not a directory")
	ErrDirectoryNotEmpty = errors.New("agentfs: directory not empty")

	// Authorization errors. These are never downgraded by a force
	// flag; force only tolerates ErrNotExist.
	ErrPermission = errors.New("agentfs: permission denied")
	ErrReadOnly   = errors.New("agentfs: read-only filesystem")
)

// Errors collects failures from fan-out operations (such as a
// composite destroy) and reports them as one combined error.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = nil
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
