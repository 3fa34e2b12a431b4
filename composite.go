package agentfs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mwantia/agentfs/data"
	"github.com/mwantia/agentfs/log"
)

// MountStatus tracks the lifecycle state of a composite filesystem.
type MountStatus string

const (
	StatusReady     MountStatus = "ready"
	StatusError     MountStatus = "error"
	StatusDestroyed MountStatus = "destroyed"
)

// CompositeFileSystem routes operations across mounted providers by
// longest non-overlapping path-prefix match and synthesizes a virtual
// root above them. The mount set is immutable for the composite's
// entire lifetime; there is no add or remove mount API.
type CompositeFileSystem struct {
	id   string
	name string
	log  *log.Logger

	mounts   map[string]FileSystemProvider
	prefixes []string

	mu        sync.RWMutex
	status    MountStatus
	createdAt time.Time
}

// NewComposite validates the mount topology and builds a composite
// over it. Construction requires at least one mount; no mount prefix
// may be a path-boundary ancestor or descendant of another.
// The composite is ready immediately, without contacting any backend.
func NewComposite(mounts map[string]FileSystemProvider, opts ...CompositeOption) (*CompositeFileSystem, error) {
	options := newDefaultCompositeOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	if len(mounts) == 0 {
		return nil, fmt.Errorf("at least one mount is required: %w", data.ErrInvalidMount)
	}

	normalized := make(map[string]FileSystemProvider, len(mounts))
	for prefix, mount := range mounts {
		if mount == nil {
			return nil, fmt.Errorf("mount '%s' has no provider: %w", prefix, data.ErrInvalidMount)
		}

		cleaned := data.CleanPath(prefix)
		if cleaned == "/" {
			return nil, fmt.Errorf("mount prefix must not be the root: %w", data.ErrInvalidMount)
		}

		if _, exists := normalized[cleaned]; exists {
			return nil, fmt.Errorf("duplicate mount prefix '%s': %w", cleaned, data.ErrInvalidMount)
		}
		normalized[cleaned] = mount
	}

	prefixes := make([]string, 0, len(normalized))
	for prefix := range normalized {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	// Boundary-aware overlap check: '/data' and '/data2' must not
	// collide, while '/data' and '/data/sub' must.
	for i, a := range prefixes {
		for _, b := range prefixes[i+1:] {
			if strings.HasPrefix(b, a+"/") {
				return nil, fmt.Errorf("mount prefix '%s' overlaps '%s': %w", b, a, data.ErrInvalidMount)
			}
		}
	}

	return &CompositeFileSystem{
		id:        data.NewProviderID(),
		name:      options.Name,
		log:       log.NewLogger(options.Name, options.LogLevel, options.LogFile, options.NoTerminalLog),
		mounts:    normalized,
		prefixes:  prefixes,
		status:    StatusReady,
		createdAt: time.Now(),
	}, nil
}

func (c *CompositeFileSystem) ID() string {
	return c.id
}

func (c *CompositeFileSystem) Name() string {
	return c.name
}

func (c *CompositeFileSystem) Provider() string {
	return "composite"
}

func (c *CompositeFileSystem) ReadOnly() bool {
	return false
}

// Status returns the current lifecycle state.
func (c *CompositeFileSystem) Status() MountStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.status
}

// Mounts returns a copy of the mount table.
func (c *CompositeFileSystem) Mounts() map[string]FileSystemProvider {
	mounts := make(map[string]FileSystemProvider, len(c.mounts))
	for prefix, mount := range c.mounts {
		mounts[prefix] = mount
	}

	return mounts
}

// MountPaths returns all mount prefixes in sorted order.
func (c *CompositeFileSystem) MountPaths() []string {
	paths := make([]string, len(c.prefixes))
	copy(paths, c.prefixes)

	return paths
}

// MountPathForPath returns the mount prefix owning the given path.
func (c *CompositeFileSystem) MountPathForPath(path string) (string, bool) {
	path = data.CleanPath(path)
	for _, prefix := range c.prefixes {
		if data.HasPathPrefix(path, prefix) {
			return prefix, true
		}
	}

	return "", false
}

// Init initializes every mount that supports it. Initialization is
// best-effort per mount: a failing mount is logged and skipped, and
// the composite stays ready.
func (c *CompositeFileSystem) Init(ctx context.Context) error {
	for _, prefix := range c.prefixes {
		init, ok := c.mounts[prefix].(Initializer)
		if !ok {
			continue
		}

		if err := init.Init(ctx); err != nil {
			c.log.Warn("Failed to initialize mount '%s': %v", prefix, err)
		}
	}

	return nil
}

// Destroy tears down every mount that supports it. Every destroy is
// attempted exactly once regardless of earlier failures; failures are
// aggregated into one combined error and the status becomes error.
func (c *CompositeFileSystem) Destroy(ctx context.Context) error {
	errs := &data.Errors{}
	for _, prefix := range c.prefixes {
		destroy, ok := c.mounts[prefix].(Destroyer)
		if !ok {
			continue
		}

		if err := destroy.Destroy(ctx); err != nil {
			c.log.Error("Failed to destroy mount '%s': %v", prefix, err)
			errs.Add(fmt.Errorf("mount '%s': %w", prefix, err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if combined := errs.Errors(); combined != nil {
		c.status = StatusError
		return combined
	}

	c.status = StatusDestroyed
	return nil
}

// resolve finds the mount owning the path. At most one mount can match
// by the no-nesting invariant.
func (c *CompositeFileSystem) resolve(path string) (FileSystemProvider, string, string, error) {
	path = data.CleanPath(path)
	for _, prefix := range c.prefixes {
		if data.HasPathPrefix(path, prefix) {
			return c.mounts[prefix], data.ToRelativePath(path, prefix), prefix, nil
		}
	}

	c.log.Debug("No mount resolved for path '%s'", path)
	return nil, "", "", fmt.Errorf("no mount for path '%s': %w", path, data.ErrNotMounted)
}

// isMountRoot reports whether the path is the virtual root or exactly
// a mount root. Both are synthetic and never delegated for stat,
// existence, and mutation purposes.
func (c *CompositeFileSystem) isMountRoot(path string) bool {
	if path == "/" {
		return true
	}

	_, mounted := c.mounts[path]
	return mounted
}

func (c *CompositeFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	path = data.CleanPath(path)
	if path == "/" {
		return nil, fmt.Errorf("cannot read virtual root: %w", data.ErrIsDirectory)
	}

	mount, rel, _, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	return mount.ReadFile(ctx, rel)
}

func (c *CompositeFileSystem) WriteFile(ctx context.Context, path string, content []byte, opts ...data.WriteOption) error {
	path = data.CleanPath(path)
	if c.isMountRoot(path) {
		return fmt.Errorf("cannot write to mount root '%s': %w", path, data.ErrIsDirectory)
	}

	mount, rel, _, err := c.resolve(path)
	if err != nil {
		return err
	}

	return mount.WriteFile(ctx, rel, content, opts...)
}

func (c *CompositeFileSystem) AppendFile(ctx context.Context, path string, content []byte) error {
	path = data.CleanPath(path)
	if c.isMountRoot(path) {
		return fmt.Errorf("cannot write to mount root '%s': %w", path, data.ErrIsDirectory)
	}

	mount, rel, _, err := c.resolve(path)
	if err != nil {
		return err
	}

	return mount.AppendFile(ctx, rel, content)
}

func (c *CompositeFileSystem) UnlinkFile(ctx context.Context, path string, force bool) error {
	path = data.CleanPath(path)
	if c.isMountRoot(path) {
		return fmt.Errorf("cannot unlink mount root '%s': %w", path, data.ErrIsDirectory)
	}

	mount, rel, _, err := c.resolve(path)
	if err != nil {
		return err
	}

	return mount.UnlinkFile(ctx, rel, force)
}

func (c *CompositeFileSystem) CreateDirectory(ctx context.Context, path string) error {
	path = data.CleanPath(path)
	if c.isMountRoot(path) {
		// Mount roots always exist as directories.
		return nil
	}

	mount, rel, _, err := c.resolve(path)
	if err != nil {
		return err
	}

	return mount.CreateDirectory(ctx, rel)
}

func (c *CompositeFileSystem) RemoveDirectory(ctx context.Context, path string, recursive, force bool) error {
	path = data.CleanPath(path)
	if c.isMountRoot(path) {
		return fmt.Errorf("cannot remove mount root '%s': %w", path, data.ErrPermission)
	}

	mount, rel, _, err := c.resolve(path)
	if err != nil {
		return err
	}

	return mount.RemoveDirectory(ctx, rel, recursive, force)
}

func (c *CompositeFileSystem) ReadDirectory(ctx context.Context, path string, opts ...data.ReadDirOption) ([]*data.FileEntry, error) {
	path = data.CleanPath(path)
	if path == "/" {
		// The virtual root lists mount names, never a child's own
		// listing.
		entries := make([]*data.FileEntry, 0, len(c.prefixes))
		for _, prefix := range c.prefixes {
			mount := c.mounts[prefix]
			entries = append(entries, &data.FileEntry{
				Name: strings.TrimPrefix(prefix, "/"),
				Type: data.FileTypeDirectory,
				Mount: &data.MountInfo{
					Provider: mount.Provider(),
					ID:       mount.ID(),
					Name:     mount.Name(),
				},
			})
		}

		return entries, nil
	}

	mount, rel, _, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	return mount.ReadDirectory(ctx, rel, opts...)
}

func (c *CompositeFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	path = data.CleanPath(path)
	if c.isMountRoot(path) {
		return true, nil
	}

	mount, rel, _, err := c.resolve(path)
	if err != nil {
		// Exists stays a total predicate for unrouted paths.
		return false, nil
	}

	return mount.Exists(ctx, rel)
}

func (c *CompositeFileSystem) Stat(ctx context.Context, path string) (*data.FileStat, error) {
	path = data.CleanPath(path)
	if c.isMountRoot(path) {
		// Synthetic: the root and mount roots always exist as empty
		// directories, independent of the child's real state.
		return &data.FileStat{
			Path:       path,
			Type:       data.FileTypeDirectory,
			Size:       0,
			CreateTime: c.createdAt,
			ModifyTime: c.createdAt,
		}, nil
	}

	mount, rel, prefix, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	stat, err := mount.Stat(ctx, rel)
	if err != nil {
		return nil, err
	}

	stat.Path = data.JoinMountPath(prefix, stat.Path)
	return stat, nil
}

func (c *CompositeFileSystem) CopyFile(ctx context.Context, source, dest string, opts ...data.CopyOption) error {
	srcMount, srcRel, srcPrefix, err := c.resolve(source)
	if err != nil {
		return fmt.Errorf("no mount for source '%s': %w", data.CleanPath(source), data.ErrNotMounted)
	}

	dstMount, dstRel, dstPrefix, err := c.resolve(dest)
	if err != nil {
		return fmt.Errorf("no mount for destination '%s': %w", data.CleanPath(dest), data.ErrNotMounted)
	}

	if srcPrefix == dstPrefix {
		return srcMount.CopyFile(ctx, srcRel, dstRel, opts...)
	}

	c.log.Debug("Cross-mount copy '%s' -> '%s'", data.CleanPath(source), data.CleanPath(dest))
	return c.crossMountCopy(ctx, srcMount, srcRel, dstMount, dstRel, dstPrefix, data.NewCopyOptions(opts...))
}

func (c *CompositeFileSystem) MoveFile(ctx context.Context, source, dest string, opts ...data.CopyOption) error {
	srcMount, srcRel, srcPrefix, err := c.resolve(source)
	if err != nil {
		return fmt.Errorf("no mount for source '%s': %w", data.CleanPath(source), data.ErrNotMounted)
	}

	dstMount, dstRel, dstPrefix, err := c.resolve(dest)
	if err != nil {
		return fmt.Errorf("no mount for destination '%s': %w", data.CleanPath(dest), data.ErrNotMounted)
	}

	if srcPrefix == dstPrefix {
		return srcMount.MoveFile(ctx, srcRel, dstRel, opts...)
	}

	// A cross-mount move must delete the source afterwards, so a
	// read-only source rejects the whole operation up front.
	if srcMount.ReadOnly() {
		return fmt.Errorf("source mount '%s' is read-only: %w", srcPrefix, data.ErrReadOnly)
	}

	stat, err := srcMount.Stat(ctx, srcRel)
	if err != nil {
		return err
	}

	options := data.NewCopyOptions(opts...)
	if stat.IsDir() {
		options.Recursive = true
	}

	c.log.Debug("Cross-mount move '%s' -> '%s'", data.CleanPath(source), data.CleanPath(dest))
	if err := c.crossMountCopy(ctx, srcMount, srcRel, dstMount, dstRel, dstPrefix, options); err != nil {
		return err
	}

	if stat.IsDir() {
		return srcMount.RemoveDirectory(ctx, srcRel, true, true)
	}

	return srcMount.UnlinkFile(ctx, srcRel, true)
}

// crossMountCopy degrades a copy between two mounts into read-source
// plus write-dest, recursing entry by entry for directory sources.
func (c *CompositeFileSystem) crossMountCopy(ctx context.Context, srcMount FileSystemProvider, srcRel string,
	dstMount FileSystemProvider, dstRel, dstPrefix string, options data.CopyOptions) error {

	if dstMount.ReadOnly() {
		return fmt.Errorf("destination mount '%s' is read-only: %w", dstPrefix, data.ErrReadOnly)
	}

	stat, err := srcMount.Stat(ctx, srcRel)
	if err != nil {
		return err
	}

	if stat.IsDir() {
		if !options.Recursive {
			return fmt.Errorf("source '%s' is a directory, copy requires recursive: %w", srcRel, data.ErrIsDirectory)
		}

		if err := dstMount.CreateDirectory(ctx, dstRel); err != nil {
			return err
		}

		entries, err := srcMount.ReadDirectory(ctx, srcRel)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			srcChild := data.JoinMountPath(srcRel, entry.Name)
			dstChild := data.JoinMountPath(dstRel, entry.Name)
			if err := c.crossMountCopy(ctx, srcMount, srcChild, dstMount, dstChild, dstPrefix, options); err != nil {
				return err
			}
		}

		return nil
	}

	content, err := srcMount.ReadFile(ctx, srcRel)
	if err != nil {
		return err
	}

	return dstMount.WriteFile(ctx, dstRel, content, data.WithOverwrite(options.Overwrite))
}
