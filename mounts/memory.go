package mounts

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/btree"

	"github.com/mwantia/agentfs/data"
)

// MemoryFileSystem is a thread-safe in-RAM provider. Entries are kept
// in an ordered btree map keyed by clean path, so listings come out in
// byte order without re-sorting. All content is lost on destroy.
type MemoryFileSystem struct {
	mu       sync.RWMutex
	id       string
	name     string
	readOnly bool

	files *btree.Map[string, *memoryFile]
}

type memoryFile struct {
	content    []byte
	isDir      bool
	createTime time.Time
	modifyTime time.Time
}

// NewMemory creates an in-memory provider with an empty root
// directory.
func NewMemory(opts ...Option) *MemoryFileSystem {
	cfg := config{
		name: "memory",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &MemoryFileSystem{
		id:       data.NewProviderID(),
		name:     cfg.name,
		readOnly: cfg.readOnly,
		files:    btree.NewMap[string, *memoryFile](0),
	}

	now := time.Now()
	m.files.Set("/", &memoryFile{isDir: true, createTime: now, modifyTime: now})

	return m
}

func (m *MemoryFileSystem) ID() string {
	return m.id
}

func (m *MemoryFileSystem) Name() string {
	return m.name
}

func (m *MemoryFileSystem) Provider() string {
	return "memory"
}

func (m *MemoryFileSystem) ReadOnly() bool {
	return m.readOnly
}

func (m *MemoryFileSystem) guardWrite() error {
	if m.readOnly {
		return fmt.Errorf("mount '%s' is read-only: %w", m.name, data.ErrReadOnly)
	}

	return nil
}

// makeParents creates any missing parent directories of p.
// Must be called with the write lock held.
func (m *MemoryFileSystem) makeParents(p string) error {
	parent := path.Dir(p)
	if parent == p {
		return nil
	}

	if file, exists := m.files.Get(parent); exists {
		if !file.isDir {
			return fmt.Errorf("'%s': %w", parent, data.ErrNotDirectory)
		}
		return nil
	}

	if err := m.makeParents(parent); err != nil {
		return err
	}

	now := time.Now()
	m.files.Set(parent, &memoryFile{isDir: true, createTime: now, modifyTime: now})
	return nil
}

func (m *MemoryFileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = data.CleanPath(p)
	file, exists := m.files.Get(p)
	if !exists {
		return nil, fmt.Errorf("'%s': %w", p, data.ErrNotExist)
	}
	if file.isDir {
		return nil, fmt.Errorf("'%s': %w", p, data.ErrIsDirectory)
	}

	content := make([]byte, len(file.content))
	copy(content, file.content)

	return content, nil
}

func (m *MemoryFileSystem) WriteFile(ctx context.Context, p string, content []byte, opts ...data.WriteOption) error {
	if err := m.guardWrite(); err != nil {
		return err
	}

	options := data.NewWriteOptions(opts...)

	m.mu.Lock()
	defer m.mu.Unlock()

	p = data.CleanPath(p)
	if file, exists := m.files.Get(p); exists {
		if file.isDir {
			return fmt.Errorf("'%s': %w", p, data.ErrIsDirectory)
		}
		if !options.Overwrite {
			return fmt.Errorf("'%s': %w", p, data.ErrExist)
		}
	}

	if options.Recursive {
		if err := m.makeParents(p); err != nil {
			return err
		}
	} else if parent := path.Dir(p); parent != p {
		parentFile, exists := m.files.Get(parent)
		if !exists {
			return fmt.Errorf("'%s': %w", parent, data.ErrNotExist)
		}
		if !parentFile.isDir {
			return fmt.Errorf("'%s': %w", parent, data.ErrNotDirectory)
		}
	}

	now := time.Now()
	created := now
	if existing, exists := m.files.Get(p); exists {
		created = existing.createTime
	}

	buffer := make([]byte, len(content))
	copy(buffer, content)
	m.files.Set(p, &memoryFile{content: buffer, createTime: created, modifyTime: now})

	return nil
}

func (m *MemoryFileSystem) AppendFile(ctx context.Context, p string, content []byte) error {
	if err := m.guardWrite(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p = data.CleanPath(p)
	if err := m.makeParents(p); err != nil {
		return err
	}

	now := time.Now()
	file, exists := m.files.Get(p)
	if !exists {
		file = &memoryFile{createTime: now}
		m.files.Set(p, file)
	}
	if file.isDir {
		return fmt.Errorf("'%s': %w", p, data.ErrIsDirectory)
	}

	file.content = append(file.content, content...)
	file.modifyTime = now

	return nil
}

func (m *MemoryFileSystem) UnlinkFile(ctx context.Context, p string, force bool) error {
	if err := m.guardWrite(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p = data.CleanPath(p)
	file, exists := m.files.Get(p)
	if !exists {
		if force {
			return nil
		}
		return fmt.Errorf("'%s': %w", p, data.ErrNotExist)
	}
	if file.isDir {
		return fmt.Errorf("'%s': %w", p, data.ErrIsDirectory)
	}

	m.files.Delete(p)
	return nil
}

func (m *MemoryFileSystem) CopyFile(ctx context.Context, source, dest string, opts ...data.CopyOption) error {
	if err := m.guardWrite(); err != nil {
		return err
	}

	options := data.NewCopyOptions(opts...)

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.copyLocked(data.CleanPath(source), data.CleanPath(dest), options)
}

func (m *MemoryFileSystem) copyLocked(source, dest string, options data.CopyOptions) error {
	file, exists := m.files.Get(source)
	if !exists {
		return fmt.Errorf("'%s': %w", source, data.ErrNotExist)
	}

	if file.isDir {
		if !options.Recursive {
			return fmt.Errorf("source '%s' is a directory, copy requires recursive: %w", source, data.ErrIsDirectory)
		}

		// A destination inside the source would appear in its own
		// child enumeration and the recursion would never bottom out.
		if dest != source && data.HasPathPrefix(dest, source) {
			return fmt.Errorf("cannot copy '%s' into its own subtree '%s': %w", source, dest, data.ErrInvalidPath)
		}

		if existing, exists := m.files.Get(dest); exists {
			if !existing.isDir {
				return fmt.Errorf("'%s': %w", dest, data.ErrNotDirectory)
			}
		} else {
			if err := m.makeParents(dest); err != nil {
				return err
			}
			now := time.Now()
			m.files.Set(dest, &memoryFile{isDir: true, createTime: now, modifyTime: now})
		}

		for _, child := range m.childNames(source) {
			if err := m.copyLocked(data.JoinMountPath(source, child), data.JoinMountPath(dest, child), options); err != nil {
				return err
			}
		}

		return nil
	}

	if existing, exists := m.files.Get(dest); exists {
		if existing.isDir {
			return fmt.Errorf("'%s': %w", dest, data.ErrIsDirectory)
		}
		if !options.Overwrite {
			return fmt.Errorf("'%s': %w", dest, data.ErrExist)
		}
	}

	if err := m.makeParents(dest); err != nil {
		return err
	}

	buffer := make([]byte, len(file.content))
	copy(buffer, file.content)
	now := time.Now()
	m.files.Set(dest, &memoryFile{content: buffer, createTime: now, modifyTime: now})

	return nil
}

func (m *MemoryFileSystem) MoveFile(ctx context.Context, source, dest string, opts ...data.CopyOption) error {
	if err := m.guardWrite(); err != nil {
		return err
	}

	options := data.NewCopyOptions(opts...)
	options.Recursive = true

	m.mu.Lock()
	defer m.mu.Unlock()

	source = data.CleanPath(source)
	dest = data.CleanPath(dest)

	if !options.Overwrite {
		if _, exists := m.files.Get(dest); exists {
			return fmt.Errorf("'%s': %w", dest, data.ErrExist)
		}
	}

	if err := m.copyLocked(source, dest, options); err != nil {
		return err
	}

	m.deleteTreeLocked(source)
	return nil
}

func (m *MemoryFileSystem) deleteTreeLocked(p string) {
	doomed := []string{p}
	prefix := p + "/"
	if p == "/" {
		prefix = "/"
	}

	m.files.Ascend(prefix, func(key string, _ *memoryFile) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}
		doomed = append(doomed, key)
		return true
	})

	for _, key := range doomed {
		m.files.Delete(key)
	}
}

func (m *MemoryFileSystem) CreateDirectory(ctx context.Context, p string) error {
	if err := m.guardWrite(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p = data.CleanPath(p)
	if file, exists := m.files.Get(p); exists {
		if file.isDir {
			return nil
		}
		return fmt.Errorf("'%s': %w", p, data.ErrExist)
	}

	if err := m.makeParents(p); err != nil {
		return err
	}

	now := time.Now()
	m.files.Set(p, &memoryFile{isDir: true, createTime: now, modifyTime: now})

	return nil
}

func (m *MemoryFileSystem) RemoveDirectory(ctx context.Context, p string, recursive, force bool) error {
	if err := m.guardWrite(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p = data.CleanPath(p)
	file, exists := m.files.Get(p)
	if !exists {
		if force {
			return nil
		}
		return fmt.Errorf("'%s': %w", p, data.ErrNotExist)
	}
	if !file.isDir {
		return fmt.Errorf("'%s': %w", p, data.ErrNotDirectory)
	}

	if !recursive && len(m.childNames(p)) > 0 {
		return fmt.Errorf("'%s': %w", p, data.ErrDirectoryNotEmpty)
	}

	m.deleteTreeLocked(p)
	return nil
}

// childNames returns the direct child names of a directory in byte
// order. Must be called with at least the read lock held.
func (m *MemoryFileSystem) childNames(p string) []string {
	prefix := p + "/"
	if p == "/" {
		prefix = "/"
	}

	var names []string
	var last string
	m.files.Ascend(prefix, func(key string, _ *memoryFile) bool {
		if key == p || !strings.HasPrefix(key, prefix) {
			return key == p
		}

		name, _, _ := strings.Cut(strings.TrimPrefix(key, prefix), "/")
		if name != "" && name != last {
			names = append(names, name)
			last = name
		}
		return true
	})

	return names
}

func (m *MemoryFileSystem) ReadDirectory(ctx context.Context, p string, opts ...data.ReadDirOption) ([]*data.FileEntry, error) {
	options := data.NewReadDirOptions(opts...)

	m.mu.RLock()
	defer m.mu.RUnlock()

	p = data.CleanPath(p)
	file, exists := m.files.Get(p)
	if !exists {
		return nil, fmt.Errorf("'%s': %w", p, data.ErrNotExist)
	}
	if !file.isDir {
		return nil, fmt.Errorf("'%s': %w", p, data.ErrNotDirectory)
	}

	return m.listLocked(p, "", 0, options), nil
}

func (m *MemoryFileSystem) listLocked(p, prefix string, depth int, options data.ReadDirOptions) []*data.FileEntry {
	entries := make([]*data.FileEntry, 0)
	for _, name := range m.childNames(p) {
		childPath := data.JoinMountPath(p, name)
		child, exists := m.files.Get(childPath)

		entry := &data.FileEntry{
			Name: joinEntryName(prefix, name),
			Type: data.FileTypeDirectory,
		}
		if exists && !child.isDir {
			entry.Type = data.FileTypeFile
			entry.Size = int64(len(child.content))
		}

		if entry.Type == data.FileTypeFile && !data.ExtensionMatches(name, options.Extension) {
			continue
		}

		entries = append(entries, entry)

		if options.Recursive && entry.IsDir() && depth+1 < options.MaxDepth {
			entries = append(entries, m.listLocked(childPath, entry.Name, depth+1, options)...)
		}
	}

	return entries
}

func (m *MemoryFileSystem) Exists(ctx context.Context, p string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.files.Get(data.CleanPath(p))
	return exists, nil
}

func (m *MemoryFileSystem) Stat(ctx context.Context, p string) (*data.FileStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = data.CleanPath(p)
	file, exists := m.files.Get(p)
	if !exists {
		return nil, fmt.Errorf("'%s': %w", p, data.ErrNotExist)
	}

	stat := &data.FileStat{
		Path:       p,
		Type:       data.FileTypeFile,
		Size:       int64(len(file.content)),
		CreateTime: file.createTime,
		ModifyTime: file.modifyTime,
	}
	if file.isDir {
		stat.Type = data.FileTypeDirectory
		stat.Size = 0
	}

	return stat, nil
}

// Destroy drops all in-memory content.
func (m *MemoryFileSystem) Destroy(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files.Clear()
	return nil
}
