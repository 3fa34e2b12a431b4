package agentfs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mwantia/agentfs"
	"github.com/mwantia/agentfs/mounts"
)

type recordingIndexer struct {
	docs map[string]string
	fail string
}

func (r *recordingIndexer) Index(ctx context.Context, path string, content []byte, metadata map[string]string) error {
	if r.fail != "" && path == r.fail {
		return errors.New("index boom")
	}
	if r.docs == nil {
		r.docs = make(map[string]string)
	}
	r.docs[path] = string(content)
	return nil
}

// TestIndexTree verifies every regular file below the root is handed
// to the indexer exactly once, with directories skipped.
func TestIndexTree(t *testing.T) {
	ctx := context.Background()

	fs := mounts.NewMemory(mounts.WithName("workspace"))
	files := map[string]string{
		"/readme.md":      "hello",
		"/src/app.ts":     "export {}",
		"/src/util/x.ts":  "x",
		"/docs/guide.txt": "guide",
	}
	for path, content := range files {
		if err := fs.WriteFile(ctx, path, []byte(content)); err != nil {
			t.Fatalf("WriteFile %s failed: %v", path, err)
		}
	}

	indexer := &recordingIndexer{}
	count, err := agentfs.IndexTree(ctx, fs, indexer, "/")
	if err != nil {
		t.Fatalf("IndexTree failed: %v", err)
	}

	if count != len(files) {
		t.Errorf("Expected %d files indexed, got %d", len(files), count)
	}
	for path, content := range files {
		if indexer.docs[path] != content {
			t.Errorf("Expected %s indexed with %q, got %q", path, content, indexer.docs[path])
		}
	}
}

// TestIndexTreeSubtree verifies indexing a subtree keeps composite
// paths and stops at the subtree boundary.
func TestIndexTreeSubtree(t *testing.T) {
	ctx := context.Background()

	fs := mounts.NewMemory()
	if err := fs.WriteFile(ctx, "/src/app.ts", []byte("a")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fs.WriteFile(ctx, "/outside.txt", []byte("b")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	indexer := &recordingIndexer{}
	count, err := agentfs.IndexTree(ctx, fs, indexer, "/src")
	if err != nil {
		t.Fatalf("IndexTree failed: %v", err)
	}

	if count != 1 {
		t.Errorf("Expected 1 file indexed, got %d", count)
	}
	if _, ok := indexer.docs["/src/app.ts"]; !ok {
		t.Errorf("Expected '/src/app.ts' indexed, got %v", indexer.docs)
	}
	if _, ok := indexer.docs["/outside.txt"]; ok {
		t.Error("Expected files outside the subtree to be skipped")
	}
}

// TestIndexTreeFailure verifies an indexer error aborts the walk and
// reports the partial count.
func TestIndexTreeFailure(t *testing.T) {
	ctx := context.Background()

	fs := mounts.NewMemory()
	if err := fs.WriteFile(ctx, "/a.txt", []byte("a")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	indexer := &recordingIndexer{fail: "/a.txt"}
	count, err := agentfs.IndexTree(ctx, fs, indexer, "/")
	if err == nil {
		t.Fatal("Expected indexer failure to propagate")
	}
	if count != 0 {
		t.Errorf("Expected partial count 0, got %d", count)
	}
}
