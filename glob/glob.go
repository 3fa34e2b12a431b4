// Package glob compiles glob patterns into path predicates for
// filtering workspace paths. Patterns support '*', '**' (any depth
// including zero), '?', character classes and '{a,b}' brace expansion.
package glob

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mwantia/agentfs/data"
)

// Matcher is a compiled path predicate. Paths are matched in
// forward-slash form regardless of the host path convention.
type Matcher func(path string) bool

type Options struct {
	// Dot makes dot-prefixed segments eligible matches. By default
	// they never match.
	Dot bool
}

type Option func(*Options)

func WithDot(dot bool) Option {
	return func(opts *Options) {
		opts.Dot = dot
	}
}

// Compile turns one or more patterns into a single predicate that
// reports true when any pattern matches.
func Compile(patterns []string, opts ...Option) (Matcher, error) {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}

	if len(patterns) == 0 {
		return nil, fmt.Errorf("at least one pattern is required: %w", data.ErrInvalidPath)
	}

	normalized := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(strings.ReplaceAll(pattern, "\\", "/"), "/")
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, data.ErrInvalidPath)
		}
		normalized = append(normalized, pattern)
	}

	return func(p string) bool {
		p = strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "/")
		if !options.Dot && hasDotSegment(p) {
			return false
		}

		for _, pattern := range normalized {
			if matched, _ := doublestar.Match(pattern, p); matched {
				return true
			}
		}

		return false
	}, nil
}

// IsPattern reports whether s contains any glob meta-character.
func IsPattern(s string) bool {
	return strings.ContainsAny(s, "*?{}[]")
}

// Base returns the longest literal directory prefix of a pattern
// before its first meta-segment, "/" when the very first segment
// already contains a meta-character.
func Base(pattern string) string {
	segments := strings.Split(strings.ReplaceAll(pattern, "\\", "/"), "/")

	literal := make([]string, 0, len(segments))
	for _, segment := range segments {
		if IsPattern(segment) {
			break
		}
		literal = append(literal, segment)
	}

	base := strings.Join(literal, "/")
	if base == "" {
		return "/"
	}

	return base
}

func hasDotSegment(p string) bool {
	for _, segment := range strings.Split(p, "/") {
		if len(segment) > 1 && segment[0] == '.' && segment != ".." {
			return true
		}
	}

	return false
}
