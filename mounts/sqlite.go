package mounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (CGO_ENABLED=0 compatible)

	"github.com/mwantia/agentfs/data"
)

// SQLiteFileSystem is a provider backed by a single SQLite table.
// The dbPath can be ':memory:' or a file path. It implements the
// optional Init (connection ping) and Destroy (close) capabilities.
type SQLiteFileSystem struct {
	mu       sync.RWMutex
	id       string
	name     string
	readOnly bool

	db *sql.DB
}

// NewSQLite creates a SQLite-backed provider and initializes its
// schema.
func NewSQLite(dbPath string, opts ...Option) (*SQLiteFileSystem, error) {
	cfg := config{
		name: "sqlite",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to ':memory:' would open its own
	// database; a single connection keeps one shared view. File
	// databases keep it too since the provider serializes access
	// anyway.
	db.SetMaxOpenConns(1)

	s := &SQLiteFileSystem{
		id:       data.NewProviderID(),
		name:     cfg.name,
		readOnly: cfg.readOnly,
		db:       db,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteFileSystem) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agentfs_files (
		path TEXT PRIMARY KEY,
		parent TEXT NOT NULL,
		name TEXT NOT NULL,
		is_dir INTEGER NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		create_time INTEGER NOT NULL,
		modify_time INTEGER NOT NULL,
		content BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_agentfs_parent ON agentfs_files(parent);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO agentfs_files (path, parent, name, is_dir, size, create_time, modify_time)
		VALUES ('/', '', '', 1, 0, ?, ?)
	`, now, now)

	return err
}

func (s *SQLiteFileSystem) ID() string {
	return s.id
}

func (s *SQLiteFileSystem) Name() string {
	return s.name
}

func (s *SQLiteFileSystem) Provider() string {
	return "sqlite"
}

func (s *SQLiteFileSystem) ReadOnly() bool {
	return s.readOnly
}

// Init verifies the database connection is healthy.
func (s *SQLiteFileSystem) Init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	return nil
}

// Destroy flushes pending writes and closes the database.
func (s *SQLiteFileSystem) Destroy(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

func (s *SQLiteFileSystem) guardWrite() error {
	if s.readOnly {
		return fmt.Errorf("mount '%s' is read-only: %w", s.name, data.ErrReadOnly)
	}

	return nil
}

type sqliteRow struct {
	path       string
	isDir      bool
	size       int64
	createTime int64
	modifyTime int64
	content    []byte
}

func (s *SQLiteFileSystem) getRow(ctx context.Context, p string) (*sqliteRow, error) {
	row := &sqliteRow{path: p}
	var isDir int
	err := s.db.QueryRowContext(ctx, `
		SELECT is_dir, size, create_time, modify_time, content FROM agentfs_files WHERE path = ?
	`, p).Scan(&isDir, &row.size, &row.createTime, &row.modifyTime, &row.content)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("'%s': %w", p, data.ErrNotExist)
	}
	if err != nil {
		return nil, err
	}

	row.isDir = isDir == 1
	return row, nil
}

// makeParents inserts any missing parent directories of p.
func (s *SQLiteFileSystem) makeParents(ctx context.Context, p string) error {
	parent := parentPath(p)
	if parent == p {
		return nil
	}

	var isDir int
	err := s.db.QueryRowContext(ctx, "SELECT is_dir FROM agentfs_files WHERE path = ?", parent).Scan(&isDir)
	if err == nil {
		if isDir == 0 {
			return fmt.Errorf("'%s': %w", parent, data.ErrNotDirectory)
		}
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}

	if err := s.makeParents(ctx, parent); err != nil {
		return err
	}

	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agentfs_files (path, parent, name, is_dir, size, create_time, modify_time)
		VALUES (?, ?, ?, 1, 0, ?, ?)
	`, parent, parentPath(parent), baseName(parent), now, now)

	return err
}

func (s *SQLiteFileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p = data.CleanPath(p)
	row, err := s.getRow(ctx, p)
	if err != nil {
		return nil, err
	}
	if row.isDir {
		return nil, fmt.Errorf("'%s': %w", p, data.ErrIsDirectory)
	}

	return row.content, nil
}

func (s *SQLiteFileSystem) WriteFile(ctx context.Context, p string, content []byte, opts ...data.WriteOption) error {
	if err := s.guardWrite(); err != nil {
		return err
	}

	options := data.NewWriteOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	p = data.CleanPath(p)
	now := time.Now().Unix()
	created := now

	existing, err := s.getRow(ctx, p)
	if err == nil {
		if existing.isDir {
			return fmt.Errorf("'%s': %w", p, data.ErrIsDirectory)
		}
		if !options.Overwrite {
			return fmt.Errorf("'%s': %w", p, data.ErrExist)
		}
		created = existing.createTime
	}

	if options.Recursive {
		if err := s.makeParents(ctx, p); err != nil {
			return err
		}
	} else {
		parent := parentPath(p)
		var isDir int
		err := s.db.QueryRowContext(ctx, "SELECT is_dir FROM agentfs_files WHERE path = ?", parent).Scan(&isDir)
		if err == sql.ErrNoRows {
			return fmt.Errorf("'%s': %w", parent, data.ErrNotExist)
		}
		if err != nil {
			return err
		}
		if isDir == 0 {
			return fmt.Errorf("'%s': %w", parent, data.ErrNotDirectory)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO agentfs_files (path, parent, name, is_dir, size, create_time, modify_time, content)
		VALUES (?, ?, ?, 0, ?, ?, ?, ?)
	`, p, parentPath(p), baseName(p), len(content), created, now, content)

	return err
}

func (s *SQLiteFileSystem) AppendFile(ctx context.Context, p string, content []byte) error {
	if err := s.guardWrite(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p = data.CleanPath(p)
	if err := s.makeParents(ctx, p); err != nil {
		return err
	}

	now := time.Now().Unix()
	buffer := content
	created := now

	existing, err := s.getRow(ctx, p)
	if err == nil {
		if existing.isDir {
			return fmt.Errorf("'%s': %w", p, data.ErrIsDirectory)
		}
		buffer = append(existing.content, content...)
		created = existing.createTime
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO agentfs_files (path, parent, name, is_dir, size, create_time, modify_time, content)
		VALUES (?, ?, ?, 0, ?, ?, ?, ?)
	`, p, parentPath(p), baseName(p), len(buffer), created, now, buffer)

	return err
}

func (s *SQLiteFileSystem) UnlinkFile(ctx context.Context, p string, force bool) error {
	if err := s.guardWrite(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p = data.CleanPath(p)
	row, err := s.getRow(ctx, p)
	if err != nil {
		if force {
			return nil
		}
		return err
	}
	if row.isDir {
		return fmt.Errorf("'%s': %w", p, data.ErrIsDirectory)
	}

	_, err = s.db.ExecContext(ctx, "DELETE FROM agentfs_files WHERE path = ?", p)
	return err
}

func (s *SQLiteFileSystem) CopyFile(ctx context.Context, source, dest string, opts ...data.CopyOption) error {
	if err := s.guardWrite(); err != nil {
		return err
	}

	options := data.NewCopyOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.copyLocked(ctx, data.CleanPath(source), data.CleanPath(dest), options)
}

func (s *SQLiteFileSystem) copyLocked(ctx context.Context, source, dest string, options data.CopyOptions) error {
	row, err := s.getRow(ctx, source)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	if row.isDir {
		if !options.Recursive {
			return fmt.Errorf("source '%s' is a directory, copy requires recursive: %w", source, data.ErrIsDirectory)
		}

		// A destination inside the source would appear in its own
		// child enumeration and the recursion would never bottom out.
		if dest != source && data.HasPathPrefix(dest, source) {
			return fmt.Errorf("cannot copy '%s' into its own subtree '%s': %w", source, dest, data.ErrInvalidPath)
		}

		existing, err := s.getRow(ctx, dest)
		switch {
		case err == nil:
			if !existing.isDir {
				return fmt.Errorf("'%s': %w", dest, data.ErrNotDirectory)
			}
		case errors.Is(err, data.ErrNotExist):
			if err := s.makeParents(ctx, dest); err != nil {
				return err
			}
			if _, err := s.db.ExecContext(ctx, `
				INSERT INTO agentfs_files (path, parent, name, is_dir, size, create_time, modify_time)
				VALUES (?, ?, ?, 1, 0, ?, ?)
			`, dest, parentPath(dest), baseName(dest), now, now); err != nil {
				return err
			}
		default:
			return err
		}

		names, err := s.childNamesLocked(ctx, source)
		if err != nil {
			return err
		}

		for _, name := range names {
			if err := s.copyLocked(ctx, data.JoinMountPath(source, name), data.JoinMountPath(dest, name), options); err != nil {
				return err
			}
		}

		return nil
	}

	if existing, err := s.getRow(ctx, dest); err == nil {
		if existing.isDir {
			return fmt.Errorf("'%s': %w", dest, data.ErrIsDirectory)
		}
		if !options.Overwrite {
			return fmt.Errorf("'%s': %w", dest, data.ErrExist)
		}
	}

	if err := s.makeParents(ctx, dest); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO agentfs_files (path, parent, name, is_dir, size, create_time, modify_time, content)
		VALUES (?, ?, ?, 0, ?, ?, ?, ?)
	`, dest, parentPath(dest), baseName(dest), row.size, now, now, row.content)

	return err
}

func (s *SQLiteFileSystem) MoveFile(ctx context.Context, source, dest string, opts ...data.CopyOption) error {
	if err := s.guardWrite(); err != nil {
		return err
	}

	options := data.NewCopyOptions(opts...)
	options.Recursive = true

	s.mu.Lock()
	defer s.mu.Unlock()

	source = data.CleanPath(source)
	dest = data.CleanPath(dest)

	if !options.Overwrite {
		if _, err := s.getRow(ctx, dest); err == nil {
			return fmt.Errorf("'%s': %w", dest, data.ErrExist)
		}
	}

	if err := s.copyLocked(ctx, source, dest, options); err != nil {
		return err
	}

	return s.deleteTreeLocked(ctx, source)
}

func (s *SQLiteFileSystem) deleteTreeLocked(ctx context.Context, p string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM agentfs_files WHERE path = ? OR path LIKE ? ESCAPE '\'
	`, p, likePrefix(p)+"%")

	return err
}

func (s *SQLiteFileSystem) CreateDirectory(ctx context.Context, p string) error {
	if err := s.guardWrite(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p = data.CleanPath(p)
	if row, err := s.getRow(ctx, p); err == nil {
		if row.isDir {
			return nil
		}
		return fmt.Errorf("'%s': %w", p, data.ErrExist)
	}

	if err := s.makeParents(ctx, p); err != nil {
		return err
	}

	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agentfs_files (path, parent, name, is_dir, size, create_time, modify_time)
		VALUES (?, ?, ?, 1, 0, ?, ?)
	`, p, parentPath(p), baseName(p), now, now)

	return err
}

func (s *SQLiteFileSystem) RemoveDirectory(ctx context.Context, p string, recursive, force bool) error {
	if err := s.guardWrite(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p = data.CleanPath(p)
	row, err := s.getRow(ctx, p)
	if err != nil {
		if force {
			return nil
		}
		return err
	}
	if !row.isDir {
		return fmt.Errorf("'%s': %w", p, data.ErrNotDirectory)
	}

	if !recursive {
		names, err := s.childNamesLocked(ctx, p)
		if err != nil {
			return err
		}
		if len(names) > 0 {
			return fmt.Errorf("'%s': %w", p, data.ErrDirectoryNotEmpty)
		}
	}

	return s.deleteTreeLocked(ctx, p)
}

// childNamesLocked returns direct child names in byte order.
func (s *SQLiteFileSystem) childNamesLocked(ctx context.Context, p string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM agentfs_files WHERE parent = ? AND path != '/' ORDER BY name
	`, p)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

func (s *SQLiteFileSystem) ReadDirectory(ctx context.Context, p string, opts ...data.ReadDirOption) ([]*data.FileEntry, error) {
	options := data.NewReadDirOptions(opts...)

	s.mu.RLock()
	defer s.mu.RUnlock()

	p = data.CleanPath(p)
	row, err := s.getRow(ctx, p)
	if err != nil {
		return nil, err
	}
	if !row.isDir {
		return nil, fmt.Errorf("'%s': %w", p, data.ErrNotDirectory)
	}

	return s.listLocked(ctx, p, "", 0, options)
}

func (s *SQLiteFileSystem) listLocked(ctx context.Context, p, prefix string, depth int, options data.ReadDirOptions) ([]*data.FileEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, is_dir, size, path FROM agentfs_files WHERE parent = ? AND path != '/' ORDER BY name
	`, p)
	if err != nil {
		return nil, err
	}

	type child struct {
		name  string
		isDir bool
		size  int64
		path  string
	}

	var children []child
	for rows.Next() {
		var c child
		var isDir int
		if err := rows.Scan(&c.name, &isDir, &c.size, &c.path); err != nil {
			rows.Close()
			return nil, err
		}
		c.isDir = isDir == 1
		children = append(children, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries := make([]*data.FileEntry, 0, len(children))
	for _, c := range children {
		entry := &data.FileEntry{
			Name: joinEntryName(prefix, c.name),
			Type: data.FileTypeDirectory,
		}
		if !c.isDir {
			entry.Type = data.FileTypeFile
			entry.Size = c.size

			if !data.ExtensionMatches(c.name, options.Extension) {
				continue
			}
		}

		entries = append(entries, entry)

		if options.Recursive && c.isDir && depth+1 < options.MaxDepth {
			nested, err := s.listLocked(ctx, c.path, entry.Name, depth+1, options)
			if err != nil {
				return nil, err
			}
			entries = append(entries, nested...)
		}
	}

	return entries, nil
}

func (s *SQLiteFileSystem) Exists(ctx context.Context, p string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM agentfs_files WHERE path = ?", data.CleanPath(p)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (s *SQLiteFileSystem) Stat(ctx context.Context, p string) (*data.FileStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p = data.CleanPath(p)
	row, err := s.getRow(ctx, p)
	if err != nil {
		return nil, err
	}

	stat := &data.FileStat{
		Path:       p,
		Type:       data.FileTypeFile,
		Size:       row.size,
		CreateTime: time.Unix(row.createTime, 0),
		ModifyTime: time.Unix(row.modifyTime, 0),
	}
	if row.isDir {
		stat.Type = data.FileTypeDirectory
		stat.Size = 0
	}

	return stat, nil
}

func parentPath(p string) string {
	if p == "/" {
		return "/"
	}

	idx := len(p) - 1
	for idx >= 0 && p[idx] != '/' {
		idx--
	}
	if idx <= 0 {
		return "/"
	}

	return p[:idx]
}

func baseName(p string) string {
	if p == "/" {
		return ""
	}

	idx := len(p) - 1
	for idx >= 0 && p[idx] != '/' {
		idx--
	}

	return p[idx+1:]
}

// likePrefix escapes LIKE metacharacters in a path prefix.
func likePrefix(p string) string {
	escaped := ""
	for _, r := range p {
		switch r {
		case '%', '_', '\\':
			escaped += "\\" + string(r)
		default:
			escaped += string(r)
		}
	}

	if escaped == "/" {
		return "/"
	}

	return escaped + "/"
}
