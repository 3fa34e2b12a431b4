package mounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mwantia/agentfs/data"
)

// LocalFileSystem is the disk-backed provider. All workspace paths
// resolve below basePath; when contained, both lexical traversal and
// symlink escapes are rejected with ErrPermission.
type LocalFileSystem struct {
	id        string
	name      string
	basePath  string
	contained bool
	readOnly  bool
}

// NewLocal creates a disk-backed provider rooted at basePath. The base
// is resolved to an absolute path; containment is on by default.
func NewLocal(basePath string, opts ...Option) *LocalFileSystem {
	cfg := config{
		name:      "local",
		contained: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		abs = filepath.Clean(basePath)
	}

	return &LocalFileSystem{
		id:        data.NewProviderID(),
		name:      cfg.name,
		basePath:  abs,
		contained: cfg.contained,
		readOnly:  cfg.readOnly,
	}
}

func (l *LocalFileSystem) ID() string {
	return l.id
}

func (l *LocalFileSystem) Name() string {
	return l.name
}

func (l *LocalFileSystem) Provider() string {
	return "local"
}

func (l *LocalFileSystem) ReadOnly() bool {
	return l.readOnly
}

// BasePath returns the absolute sandbox directory.
func (l *LocalFileSystem) BasePath() string {
	return l.basePath
}

// Init ensures the base directory exists on disk.
func (l *LocalFileSystem) Init(ctx context.Context) error {
	return os.MkdirAll(l.basePath, 0755)
}

// Destroy is a no-op for local providers.
func (l *LocalFileSystem) Destroy(ctx context.Context) error {
	return nil
}

// resolve turns a workspace path into an absolute disk path. When
// contained, a candidate escaping basePath lexically or through a
// symlink fails with ErrPermission.
func (l *LocalFileSystem) resolve(p string) (string, error) {
	rel := strings.TrimLeft(strings.ReplaceAll(p, "\\", "/"), "/")

	// Clean without anchoring to root so '..' segments survive into
	// the lexical check instead of being clamped away.
	cleaned := path.Clean(rel)
	if cleaned == "." {
		cleaned = ""
	}

	full := filepath.Join(l.basePath, filepath.FromSlash(cleaned))
	if !l.contained {
		return full, nil
	}

	relToBase, err := filepath.Rel(l.basePath, full)
	if err != nil || relToBase == ".." ||
		strings.HasPrefix(relToBase, ".."+string(filepath.Separator)) ||
		filepath.IsAbs(relToBase) {
		return "", fmt.Errorf("path '%s' escapes base directory: %w", p, data.ErrPermission)
	}

	if err := l.checkRealPath(full, p); err != nil {
		return "", err
	}

	return full, nil
}

// checkRealPath is the mandatory second containment check: it resolves
// the symlink-free real path of the candidate (or, for paths that do
// not exist yet, of its deepest existing ancestor) and accepts only
// path-boundary descendants of the real base. This is what defeats a
// symlink planted inside the sandbox that points outside it; the
// lexical check alone cannot catch that.
func (l *LocalFileSystem) checkRealPath(full, original string) error {
	baseReal, err := filepath.EvalSymlinks(l.basePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Base not created yet; nothing exists below it either.
			return nil
		}
		return err
	}

	real, err := nearestRealPath(full)
	if err != nil {
		return err
	}

	if real == baseReal || strings.HasPrefix(real, baseReal+string(filepath.Separator)) {
		return nil
	}

	return fmt.Errorf("path '%s' resolves outside base directory: %w", original, data.ErrPermission)
}

// nearestRealPath resolves the real path of p, walking up to the
// deepest existing ancestor when p itself does not exist yet, so
// writes to not-yet-created paths are still validated through their
// parent chain.
func nearestRealPath(p string) (string, error) {
	for {
		real, err := filepath.EvalSymlinks(p)
		if err == nil {
			return real, nil
		}
		// ENOTDIR means a path component exists as a file; the
		// candidate itself does not exist, so keep walking up.
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
			return "", err
		}

		parent := filepath.Dir(p)
		if parent == p {
			return p, nil
		}
		p = parent
	}
}

// guardWrite enforces the read-only flag before any disk access.
func (l *LocalFileSystem) guardWrite() error {
	if l.readOnly {
		return fmt.Errorf("mount '%s' is read-only: %w", l.name, data.ErrReadOnly)
	}

	return nil
}

func (l *LocalFileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	full, err := l.resolve(p)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, mapPathError(err, p)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("'%s': %w", p, data.ErrIsDirectory)
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return nil, mapPathError(err, p)
	}

	return content, nil
}

func (l *LocalFileSystem) WriteFile(ctx context.Context, p string, content []byte, opts ...data.WriteOption) error {
	if err := l.guardWrite(); err != nil {
		return err
	}

	options := data.NewWriteOptions(opts...)
	full, err := l.resolve(p)
	if err != nil {
		return err
	}

	if !options.Overwrite {
		if _, err := os.Lstat(full); err == nil {
			return fmt.Errorf("'%s': %w", p, data.ErrExist)
		}
	}

	if options.Recursive {
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return mapPathError(err, p)
		}
	}

	if err := os.WriteFile(full, content, 0644); err != nil {
		return mapPathError(err, p)
	}

	return nil
}

func (l *LocalFileSystem) AppendFile(ctx context.Context, p string, content []byte) error {
	if err := l.guardWrite(); err != nil {
		return err
	}

	full, err := l.resolve(p)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return mapPathError(err, p)
	}

	file, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return mapPathError(err, p)
	}
	defer file.Close()

	if _, err := file.Write(content); err != nil {
		return err
	}

	return file.Close()
}

func (l *LocalFileSystem) UnlinkFile(ctx context.Context, p string, force bool) error {
	if err := l.guardWrite(); err != nil {
		return err
	}

	full, err := l.resolve(p)
	if err != nil {
		return err
	}

	info, err := os.Lstat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && force {
			return nil
		}
		return mapPathError(err, p)
	}

	if info.IsDir() {
		return fmt.Errorf("'%s': %w", p, data.ErrIsDirectory)
	}

	return os.Remove(full)
}

func (l *LocalFileSystem) CopyFile(ctx context.Context, source, dest string, opts ...data.CopyOption) error {
	if err := l.guardWrite(); err != nil {
		return err
	}

	options := data.NewCopyOptions(opts...)
	return l.copyPath(ctx, data.CleanPath(source), data.CleanPath(dest), options)
}

// copyPath recurses on workspace paths instead of disk paths so every
// nested entry passes resolve again; a symlinked subtree pointing
// outside the sandbox fails its own containment check instead of
// being copied.
func (l *LocalFileSystem) copyPath(ctx context.Context, source, dest string, options data.CopyOptions) error {
	srcFull, err := l.resolve(source)
	if err != nil {
		return err
	}

	dstFull, err := l.resolve(dest)
	if err != nil {
		return err
	}

	info, err := os.Stat(srcFull)
	if err != nil {
		return mapPathError(err, source)
	}

	if info.IsDir() {
		if !options.Recursive {
			return fmt.Errorf("source '%s' is a directory, copy requires recursive: %w", source, data.ErrIsDirectory)
		}

		// A destination inside the source would show up in its own
		// listing and the recursion would never bottom out.
		if dest != source && data.HasPathPrefix(dest, source) {
			return fmt.Errorf("cannot copy '%s' into its own subtree '%s': %w", source, dest, data.ErrInvalidPath)
		}

		if err := os.MkdirAll(dstFull, 0755); err != nil {
			return mapPathError(err, dest)
		}

		dirents, err := os.ReadDir(srcFull)
		if err != nil {
			return mapPathError(err, source)
		}

		for _, dirent := range dirents {
			srcChild := data.JoinMountPath(source, dirent.Name())
			dstChild := data.JoinMountPath(dest, dirent.Name())
			if err := l.copyPath(ctx, srcChild, dstChild, options); err != nil {
				return err
			}
		}

		return nil
	}

	if !options.Overwrite {
		if _, err := os.Lstat(dstFull); err == nil {
			return fmt.Errorf("'%s': %w", dest, data.ErrExist)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dstFull), 0755); err != nil {
		return mapPathError(err, dest)
	}

	return copyFileContents(srcFull, dstFull)
}

func (l *LocalFileSystem) MoveFile(ctx context.Context, source, dest string, opts ...data.CopyOption) error {
	if err := l.guardWrite(); err != nil {
		return err
	}

	source = data.CleanPath(source)
	dest = data.CleanPath(dest)
	if dest != source && data.HasPathPrefix(dest, source) {
		return fmt.Errorf("cannot move '%s' into its own subtree '%s': %w", source, dest, data.ErrInvalidPath)
	}

	options := data.NewCopyOptions(opts...)
	srcFull, err := l.resolve(source)
	if err != nil {
		return err
	}

	dstFull, err := l.resolve(dest)
	if err != nil {
		return err
	}

	info, err := os.Lstat(srcFull)
	if err != nil {
		return mapPathError(err, source)
	}

	if !options.Overwrite {
		if _, err := os.Lstat(dstFull); err == nil {
			return fmt.Errorf("'%s': %w", dest, data.ErrExist)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dstFull), 0755); err != nil {
		return mapPathError(err, dest)
	}

	err = os.Rename(srcFull, dstFull)
	if err == nil {
		return nil
	}

	if !errors.Is(err, syscall.EXDEV) {
		return mapPathError(err, source)
	}

	// Cross-device rename: degrade to copy plus force-delete.
	copyOptions := options
	copyOptions.Recursive = true
	if err := l.copyPath(ctx, data.CleanPath(source), data.CleanPath(dest), copyOptions); err != nil {
		return err
	}

	if info.IsDir() {
		return os.RemoveAll(srcFull)
	}

	return os.Remove(srcFull)
}

func (l *LocalFileSystem) CreateDirectory(ctx context.Context, p string) error {
	if err := l.guardWrite(); err != nil {
		return err
	}

	full, err := l.resolve(p)
	if err != nil {
		return err
	}

	if info, err := os.Stat(full); err == nil {
		if info.IsDir() {
			// Idempotent success.
			return nil
		}
		return fmt.Errorf("'%s': %w", p, data.ErrExist)
	}

	if err := os.MkdirAll(full, 0755); err != nil {
		return mapPathError(err, p)
	}

	return nil
}

func (l *LocalFileSystem) RemoveDirectory(ctx context.Context, p string, recursive, force bool) error {
	if err := l.guardWrite(); err != nil {
		return err
	}

	full, err := l.resolve(p)
	if err != nil {
		return err
	}

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && force {
			return nil
		}
		return mapPathError(err, p)
	}

	if !info.IsDir() {
		return fmt.Errorf("'%s': %w", p, data.ErrNotDirectory)
	}

	if recursive {
		return os.RemoveAll(full)
	}

	dirents, err := os.ReadDir(full)
	if err != nil {
		return mapPathError(err, p)
	}
	if len(dirents) > 0 {
		return fmt.Errorf("'%s': %w", p, data.ErrDirectoryNotEmpty)
	}

	return os.Remove(full)
}

func (l *LocalFileSystem) ReadDirectory(ctx context.Context, p string, opts ...data.ReadDirOption) ([]*data.FileEntry, error) {
	options := data.NewReadDirOptions(opts...)
	full, err := l.resolve(p)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, mapPathError(err, p)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("'%s': %w", p, data.ErrNotDirectory)
	}

	return l.listDir(full, "", 0, options)
}

// listDir lists one directory level, recursing while the depth bound
// allows. Symlinked directories are followed; the bound is the only
// protection against link cycles.
func (l *LocalFileSystem) listDir(full, prefix string, depth int, options data.ReadDirOptions) ([]*data.FileEntry, error) {
	dirents, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}

	entries := make([]*data.FileEntry, 0, len(dirents))
	for _, dirent := range dirents {
		name := dirent.Name()
		childFull := filepath.Join(full, name)

		entry := &data.FileEntry{
			Name: joinEntryName(prefix, name),
		}

		switch {
		case dirent.Type()&fs.ModeSymlink != 0:
			entry.IsSymlink = true
			if target, err := os.Readlink(childFull); err == nil {
				entry.SymlinkTarget = target
			}

			// Resolved type; a broken or unreadable symlink is
			// treated as a file.
			entry.Type = data.FileTypeFile
			if info, err := os.Stat(childFull); err == nil && info.IsDir() {
				entry.Type = data.FileTypeDirectory
			}

		case dirent.IsDir():
			entry.Type = data.FileTypeDirectory

		default:
			entry.Type = data.FileTypeFile
			if info, err := dirent.Info(); err == nil {
				entry.Size = info.Size()
			}
		}

		if entry.Type == data.FileTypeFile && !data.ExtensionMatches(name, options.Extension) {
			continue
		}

		entries = append(entries, entry)

		if options.Recursive && entry.IsDir() && depth+1 < options.MaxDepth {
			children, err := l.listDir(childFull, entry.Name, depth+1, options)
			if err != nil {
				continue
			}
			entries = append(entries, children...)
		}
	}

	return entries, nil
}

func (l *LocalFileSystem) Exists(ctx context.Context, p string) (bool, error) {
	full, err := l.resolve(p)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (l *LocalFileSystem) Stat(ctx context.Context, p string) (*data.FileStat, error) {
	full, err := l.resolve(p)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, mapPathError(err, p)
	}

	stat := &data.FileStat{
		Path:       data.CleanPath(p),
		Type:       data.FileTypeFile,
		Size:       info.Size(),
		CreateTime: info.ModTime(),
		ModifyTime: info.ModTime(),
	}
	if info.IsDir() {
		stat.Type = data.FileTypeDirectory
		stat.Size = 0
	}

	return stat, nil
}

// joinEntryName builds the 'parent/child' names used by recursive
// listings.
func joinEntryName(prefix, name string) string {
	if prefix == "" {
		return name
	}

	return prefix + "/" + name
}

// copyFileContents copies bytes between two disk paths.
func copyFileContents(srcFull, dstFull string) error {
	src, err := os.Open(srcFull)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dstFull)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}

	return dst.Close()
}

// mapPathError converts os-level errors into the stable sentinel
// kinds.
func mapPathError(err error, p string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("'%s': %w", p, data.ErrNotExist)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("'%s': %w", p, data.ErrExist)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("'%s': %w", p, data.ErrPermission)
	case errors.Is(err, syscall.ENOTEMPTY):
		return fmt.Errorf("'%s': %w", p, data.ErrDirectoryNotEmpty)
	case errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("'%s': %w", p, data.ErrNotDirectory)
	default:
		return err
	}
}
