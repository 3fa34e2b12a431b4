package data

import (
	"encoding/json"
	"time"
)

// FileStat is the stat result returned by every provider.
// Path is always rewritten relative to the queried provider's root,
// forward-slash separated with a leading slash - never an absolute
// disk path.
type FileStat struct {
	Path string   `json:"path"`
	Type FileType `json:"type"`

	// Size in bytes (0 for directories)
	Size int64 `json:"size,omitempty"`

	CreateTime time.Time `json:"createdAt"`
	ModifyTime time.Time `json:"modifiedAt"`
}

func (fs *FileStat) IsDir() bool {
	return fs.Type == FileTypeDirectory
}

// Marshal provides JSON serialization for FileStat.
func (fs *FileStat) Marshal() ([]byte, error) {
	return json.Marshal(fs)
}

// Unmarshal provides JSON deserialization for FileStat.
func (fs *FileStat) Unmarshal(data []byte) error {
	return json.Unmarshal(data, &fs)
}
