package data

// WriteOptions controls WriteFile behavior.
type WriteOptions struct {
	// Overwrite allows replacing an existing file. When false and the
	// target exists, the write fails with ErrExist. The existence probe
	// is check-then-act, not atomic; a race window exists under
	// concurrent writers.
	Overwrite bool

	// Recursive creates missing parent directories before writing.
	Recursive bool
}

type WriteOption func(*WriteOptions)

func NewWriteOptions(opts ...WriteOption) WriteOptions {
	options := WriteOptions{
		Overwrite: true,
		Recursive: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return options
}

// WithOverwrite sets whether an existing file may be replaced.
func WithOverwrite(overwrite bool) WriteOption {
	return func(opts *WriteOptions) {
		opts.Overwrite = overwrite
	}
}

// WithParents sets whether missing parent directories are created.
func WithParents(recursive bool) WriteOption {
	return func(opts *WriteOptions) {
		opts.Recursive = recursive
	}
}

// CopyOptions controls CopyFile and MoveFile behavior.
type CopyOptions struct {
	// Overwrite allows replacing an existing destination file.
	Overwrite bool

	// Recursive is required for directory sources; copying a directory
	// without it fails with ErrIsDirectory.
	Recursive bool
}

type CopyOption func(*CopyOptions)

func NewCopyOptions(opts ...CopyOption) CopyOptions {
	options := CopyOptions{
		Overwrite: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return options
}

// WithCopyOverwrite sets whether an existing destination may be replaced.
func WithCopyOverwrite(overwrite bool) CopyOption {
	return func(opts *CopyOptions) {
		opts.Overwrite = overwrite
	}
}

// WithCopyRecursive enables copying directory sources entry by entry.
func WithCopyRecursive(recursive bool) CopyOption {
	return func(opts *CopyOptions) {
		opts.Recursive = recursive
	}
}

// DefaultReadDirMaxDepth bounds recursive directory listings. The cap
// is a bound, not cycle detection: a symlink loop shorter than the cap
// is still followed until the cap is reached.
const DefaultReadDirMaxDepth = 100

// ReadDirOptions controls ReadDirectory behavior.
type ReadDirOptions struct {
	// Recursive descends into subdirectories, following symlinked
	// directories up to MaxDepth.
	Recursive bool

	// MaxDepth bounds recursive descent.
	MaxDepth int

	// Extension filters file entries by extension. Both ".ts" and "ts"
	// forms are accepted. Directories are unaffected.
	Extension string
}

type ReadDirOption func(*ReadDirOptions)

func NewReadDirOptions(opts ...ReadDirOption) ReadDirOptions {
	options := ReadDirOptions{
		MaxDepth: DefaultReadDirMaxDepth,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return options
}

// WithRecursive enables recursive listing.
func WithRecursive(recursive bool) ReadDirOption {
	return func(opts *ReadDirOptions) {
		opts.Recursive = recursive
	}
}

// WithMaxDepth overrides the recursion depth bound.
func WithMaxDepth(depth int) ReadDirOption {
	return func(opts *ReadDirOptions) {
		opts.MaxDepth = depth
	}
}

// WithExtension filters file entries by extension.
func WithExtension(ext string) ReadDirOption {
	return func(opts *ReadDirOptions) {
		opts.Extension = ext
	}
}
