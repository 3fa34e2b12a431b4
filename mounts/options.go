package mounts

// config holds construction settings shared by all providers in this
// package.
type config struct {
	name      string
	readOnly  bool
	contained bool
}

type Option func(*config)

// WithName overrides the human-readable provider name.
func WithName(name string) Option {
	return func(cfg *config) {
		cfg.name = name
	}
}

// WithReadOnly makes every mutating operation fail with ErrReadOnly
// before touching the backend.
func WithReadOnly(readOnly bool) Option {
	return func(cfg *config) {
		cfg.readOnly = readOnly
	}
}

// WithoutContainment disables the sandbox checks of a local provider.
// Paths may then resolve anywhere on disk; only use this for trusted
// callers. Other providers ignore this option.
func WithoutContainment() Option {
	return func(cfg *config) {
		cfg.contained = false
	}
}
