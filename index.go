package agentfs

import (
	"context"
	"fmt"

	"github.com/mwantia/agentfs/data"
)

// IndexTree walks the provider recursively from root and hands every
// regular file to the given indexer. Symlinks are skipped; the walk is
// bounded by the provider's own recursion cap. The indexer only ever
// receives paths, content, and flat metadata - never provider
// internals.
func IndexTree(ctx context.Context, fsys FileSystemProvider, indexer SearchIndexer, root string) (int, error) {
	root = data.CleanPath(root)
	entries, err := fsys.ReadDirectory(ctx, root, data.WithRecursive(true))
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, entry := range entries {
		if entry.IsDir() || entry.IsSymlink {
			continue
		}

		path := data.JoinMountPath(root, entry.Name)
		content, err := fsys.ReadFile(ctx, path)
		if err != nil {
			return indexed, err
		}

		metadata := map[string]string{
			"provider": fsys.Provider(),
			"mount":    fsys.Name(),
		}

		if err := indexer.Index(ctx, path, content, metadata); err != nil {
			return indexed, fmt.Errorf("failed to index '%s': %w", path, err)
		}
		indexed++
	}

	return indexed, nil
}
