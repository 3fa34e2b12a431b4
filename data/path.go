package data

import (
	"path"
	"strings"
)

// CleanPath normalizes a workspace path to forward-slash form with a
// leading slash and no trailing slash. The root stays "/".
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)

	return p
}

// HasPathPrefix checks whether p equals prefix or lives below it,
// respecting path boundaries. "/data2" is not below "/data"; a naive
// strings.HasPrefix would claim otherwise.
func HasPathPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}

	if p == prefix {
		return true
	}

	return strings.HasPrefix(p, prefix+"/")
}

// ToRelativePath removes the mount prefix from p and returns the
// remainder in leading-slash form, "/" for the mount root itself.
func ToRelativePath(p, prefix string) string {
	if prefix == "/" || prefix == "" {
		return CleanPath(p)
	}

	if p == prefix {
		return "/"
	}

	return strings.TrimPrefix(p, prefix)
}

// JoinMountPath rewrites a provider-relative path back under its mount
// prefix.
func JoinMountPath(prefix, rel string) string {
	if prefix == "/" || prefix == "" {
		return CleanPath(rel)
	}

	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return prefix
	}

	return prefix + "/" + rel
}

// ExtensionMatches reports whether name carries the given extension.
// Both ".ts" and "ts" forms are accepted; an empty filter matches
// everything.
func ExtensionMatches(name, ext string) bool {
	if ext == "" {
		return true
	}

	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return strings.HasSuffix(name, ext)
}
