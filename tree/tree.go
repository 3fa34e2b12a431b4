// Package tree renders directory listings as ASCII trees with
// depth, hidden-file, extension and glob filters.
package tree

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mwantia/agentfs"
	"github.com/mwantia/agentfs/data"
	"github.com/mwantia/agentfs/glob"
)

type Options struct {
	// MaxDepth bounds descent; 0 means unlimited. Reaching the bound
	// stops descent, still lists the boundary directory, and marks the
	// result truncated.
	MaxDepth int

	// ShowHidden includes dot-prefixed entries.
	ShowHidden bool

	// DirsOnly drops file entries entirely.
	DirsOnly bool

	// Exclude drops entries whose name contains any of these
	// substrings.
	Exclude []string

	// Extension restricts files by extension ('.ts' and 'ts' both
	// accepted). Directories are unaffected.
	Extension string

	// Pattern restricts files by a glob matched against the path
	// relative to the render root. Directories always pass so matching
	// descendants stay reachable.
	Pattern string
}

type Result struct {
	Tree      string `json:"tree"`
	Summary   string `json:"summary"`
	DirCount  int    `json:"dirCount"`
	FileCount int    `json:"fileCount"`
	Truncated bool   `json:"truncated"`
}

// Format walks the provider depth-first from root and renders an
// ASCII tree. A listing error at the root propagates; listing errors
// below the root are swallowed and the directory rendered as empty,
// since permission quirks on nested directories are common and should
// not abort the whole render.
func Format(ctx context.Context, fsys agentfs.FileSystemProvider, root string, opts Options) (*Result, error) {
	root = data.CleanPath(root)

	var matcher glob.Matcher
	if opts.Pattern != "" {
		compiled, err := glob.Compile([]string{opts.Pattern}, glob.WithDot(true))
		if err != nil {
			return nil, err
		}
		matcher = compiled
	}

	w := &walker{
		fsys:    fsys,
		root:    root,
		opts:    opts,
		matcher: matcher,
	}

	var sb strings.Builder
	sb.WriteString(root + "\n")

	entries, err := fsys.ReadDirectory(ctx, root)
	if err != nil {
		// Root access problems must surface.
		return nil, err
	}

	w.render(ctx, &sb, root, entries, "", 0)

	result := &Result{
		Tree:      sb.String(),
		DirCount:  w.dirCount,
		FileCount: w.fileCount,
		Truncated: w.truncated,
	}

	result.Summary = fmt.Sprintf("%d %s, %d %s",
		w.dirCount, pluralize(w.dirCount, "directory", "directories"),
		w.fileCount, pluralize(w.fileCount, "file", "files"))
	if w.truncated {
		result.Summary += fmt.Sprintf(" (truncated at depth %d)", opts.MaxDepth)
	}

	return result, nil
}

type walker struct {
	fsys    agentfs.FileSystemProvider
	root    string
	opts    Options
	matcher glob.Matcher

	dirCount  int
	fileCount int
	truncated bool
}

// filter applies the entry filters in order: hidden, exclude
// substrings, dirsOnly, then extension and glob for files only.
func (w *walker) filter(dir string, entries []*data.FileEntry) []*data.FileEntry {
	kept := make([]*data.FileEntry, 0, len(entries))
	for _, entry := range entries {
		if !w.opts.ShowHidden && strings.HasPrefix(entry.Name, ".") {
			continue
		}

		if excluded(entry.Name, w.opts.Exclude) {
			continue
		}

		if entry.IsDir() {
			kept = append(kept, entry)
			continue
		}

		if w.opts.DirsOnly {
			continue
		}

		if !data.ExtensionMatches(entry.Name, w.opts.Extension) {
			continue
		}

		if w.matcher != nil {
			rel := data.ToRelativePath(data.JoinMountPath(dir, entry.Name), w.root)
			if !w.matcher(rel) {
				continue
			}
		}

		kept = append(kept, entry)
	}

	// Directories before files, byte-ascending names within each
	// group, matching conventional 'tree --dirsfirst' output.
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].IsDir() != kept[j].IsDir() {
			return kept[i].IsDir()
		}
		return kept[i].Name < kept[j].Name
	})

	return kept
}

func (w *walker) render(ctx context.Context, sb *strings.Builder, dir string, entries []*data.FileEntry, indent string, depth int) {
	kept := w.filter(dir, entries)

	for i, entry := range kept {
		connector := "├── "
		childIndent := indent + "│   "
		if i == len(kept)-1 {
			connector = "└── "
			childIndent = indent + "    "
		}

		label := entry.Name
		if entry.IsSymlink {
			label = fmt.Sprintf("%s -> %s", entry.Name, entry.SymlinkTarget)
		}
		sb.WriteString(indent + connector + label + "\n")

		if entry.IsDir() {
			w.dirCount++
		} else {
			w.fileCount++
		}

		// Symlinks are never recursed into, even toward a directory
		// target; the depth bound alone cannot stop a link cycle.
		if !entry.IsDir() || entry.IsSymlink {
			continue
		}

		if w.opts.MaxDepth > 0 && depth+1 >= w.opts.MaxDepth {
			w.truncated = true
			continue
		}

		childPath := data.JoinMountPath(dir, entry.Name)
		children, err := w.fsys.ReadDirectory(ctx, childPath)
		if err != nil {
			// Below the root, unreadable directories render as empty.
			continue
		}

		w.render(ctx, sb, childPath, children, childIndent, depth+1)
	}
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern != "" && strings.Contains(name, pattern) {
			return true
		}
	}

	return false
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}

	return plural
}
