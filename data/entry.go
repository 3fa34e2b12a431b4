package data

// FileEntry is a single directory-listing entry.
// Recursive listings prefix nested entry names with 'parent/child'
// segments; the separator is always a forward slash.
type FileEntry struct {
	Name string   `json:"name"`
	Type FileType `json:"type"`

	// Symlink entries report their raw target and the resolved type.
	// A broken or unreadable symlink is reported as a file.
	IsSymlink     bool   `json:"isSymlink,omitempty"`
	SymlinkTarget string `json:"symlinkTarget,omitempty"`

	// Size in bytes; only set for non-symlink files.
	Size int64 `json:"size,omitempty"`

	// Mount is only populated on composite root listings, where each
	// entry represents a mounted provider instead of a real directory.
	Mount *MountInfo `json:"mount,omitempty"`
}

func (fe *FileEntry) IsDir() bool {
	return fe.Type == FileTypeDirectory
}

// MountInfo identifies the provider behind a composite root entry.
type MountInfo struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	Name     string `json:"name"`
}
