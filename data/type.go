package data

// FileType describes what kind of object a path resolves to.
// Symlinks are never a FileType of their own; they surface through
// FileEntry.IsSymlink with the resolved target type.
type FileType string

const (
	FileTypeFile      FileType = "file"
	FileTypeDirectory FileType = "directory"
)
