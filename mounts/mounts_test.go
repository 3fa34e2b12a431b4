package mounts

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/mwantia/agentfs"
	"github.com/mwantia/agentfs/data"
)

var (
	_ agentfs.FileSystemProvider = (*LocalFileSystem)(nil)
	_ agentfs.FileSystemProvider = (*MemoryFileSystem)(nil)
	_ agentfs.FileSystemProvider = (*SQLiteFileSystem)(nil)
	_ agentfs.FileSystemProvider = (*ReadOnlyFileSystem)(nil)
)

// TestProviderFactory creates a new provider instance for testing.
type TestProviderFactory func(t *testing.T) agentfs.FileSystemProvider

// GetTestProviderFactories returns all provider implementations to
// test against the shared contract.
func GetTestProviderFactories() map[string]TestProviderFactory {
	return map[string]TestProviderFactory{
		"local": func(t *testing.T) agentfs.FileSystemProvider {
			return NewLocal(t.TempDir())
		},
		"memory": func(t *testing.T) agentfs.FileSystemProvider {
			return NewMemory()
		},
		"sqlite": func(t *testing.T) agentfs.FileSystemProvider {
			fs, err := NewSQLite(":memory:")
			if err != nil {
				t.Fatalf("NewSQLite failed: %v", err)
			}
			return fs
		},
	}
}

// TestAllProviders_RoundTrip verifies that written content comes back
// byte-for-byte, including 0x00 and 0xFF bytes.
func TestAllProviders_RoundTrip(t *testing.T) {
	for name, factory := range GetTestProviderFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := context.Background()
			fs := factory(tst)

			buffer := []byte{0x00, 0x01, 'h', 'i', 0xFF, 0x00}
			if err := fs.WriteFile(ctx, "/test.bin", buffer); err != nil {
				tst.Fatalf("WriteFile failed: %v", err)
			}

			got, err := fs.ReadFile(ctx, "/test.bin")
			if err != nil {
				tst.Fatalf("ReadFile failed: %v", err)
			}

			if !bytes.Equal(got, buffer) {
				tst.Errorf("Expected %v, got %v", buffer, got)
			}
		})
	}
}

// TestAllProviders_OverwriteGuard verifies that writing without
// overwrite fails with ErrExist when the file already exists.
func TestAllProviders_OverwriteGuard(t *testing.T) {
	for name, factory := range GetTestProviderFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := context.Background()
			fs := factory(tst)

			if err := fs.WriteFile(ctx, "/file.txt", []byte("one")); err != nil {
				tst.Fatalf("WriteFile failed: %v", err)
			}

			err := fs.WriteFile(ctx, "/file.txt", []byte("two"), data.WithOverwrite(false))
			if !errors.Is(err, data.ErrExist) {
				tst.Errorf("Expected ErrExist, got %v", err)
			}

			got, err := fs.ReadFile(ctx, "/file.txt")
			if err != nil {
				tst.Fatalf("ReadFile failed: %v", err)
			}
			if string(got) != "one" {
				tst.Errorf("Expected original content, got %q", got)
			}
		})
	}
}

// TestAllProviders_DirectoryOperations verifies mkdir idempotence,
// mkdir conflicts and rmdir behavior.
func TestAllProviders_DirectoryOperations(t *testing.T) {
	for name, factory := range GetTestProviderFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := context.Background()
			fs := factory(tst)

			if err := fs.CreateDirectory(ctx, "/dir"); err != nil {
				tst.Fatalf("CreateDirectory failed: %v", err)
			}
			// Repeated mkdir never throws.
			if err := fs.CreateDirectory(ctx, "/dir"); err != nil {
				tst.Errorf("Expected idempotent mkdir, got %v", err)
			}

			if err := fs.WriteFile(ctx, "/file.txt", []byte("x")); err != nil {
				tst.Fatalf("WriteFile failed: %v", err)
			}
			if err := fs.CreateDirectory(ctx, "/file.txt"); !errors.Is(err, data.ErrExist) {
				tst.Errorf("Expected ErrExist over a file, got %v", err)
			}

			if err := fs.WriteFile(ctx, "/dir/inner.txt", []byte("y")); err != nil {
				tst.Fatalf("WriteFile failed: %v", err)
			}

			err := fs.RemoveDirectory(ctx, "/dir", false, false)
			if !errors.Is(err, data.ErrDirectoryNotEmpty) {
				tst.Errorf("Expected ErrDirectoryNotEmpty, got %v", err)
			}

			if err := fs.RemoveDirectory(ctx, "/dir", true, false); err != nil {
				tst.Fatalf("Recursive RemoveDirectory failed: %v", err)
			}

			exists, err := fs.Exists(ctx, "/dir/inner.txt")
			if err != nil {
				tst.Fatalf("Exists failed: %v", err)
			}
			if exists {
				tst.Error("Expected directory contents to be removed")
			}

			if err := fs.RemoveDirectory(ctx, "/dir", false, false); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist, got %v", err)
			}
			if err := fs.RemoveDirectory(ctx, "/dir", false, true); err != nil {
				tst.Errorf("Expected force to tolerate a missing directory, got %v", err)
			}
		})
	}
}

// TestAllProviders_UnlinkFile verifies delete semantics for files,
// directories and missing paths.
func TestAllProviders_UnlinkFile(t *testing.T) {
	for name, factory := range GetTestProviderFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := context.Background()
			fs := factory(tst)

			if err := fs.WriteFile(ctx, "/file.txt", []byte("x")); err != nil {
				tst.Fatalf("WriteFile failed: %v", err)
			}
			if err := fs.CreateDirectory(ctx, "/dir"); err != nil {
				tst.Fatalf("CreateDirectory failed: %v", err)
			}

			if err := fs.UnlinkFile(ctx, "/dir", false); !errors.Is(err, data.ErrIsDirectory) {
				tst.Errorf("Expected ErrIsDirectory, got %v", err)
			}

			if err := fs.UnlinkFile(ctx, "/file.txt", false); err != nil {
				tst.Fatalf("UnlinkFile failed: %v", err)
			}

			if err := fs.UnlinkFile(ctx, "/file.txt", false); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist, got %v", err)
			}
			if err := fs.UnlinkFile(ctx, "/file.txt", true); err != nil {
				tst.Errorf("Expected force to tolerate a missing file, got %v", err)
			}
		})
	}
}

// TestAllProviders_AppendFile verifies appends create and extend
// files, including missing parent directories.
func TestAllProviders_AppendFile(t *testing.T) {
	for name, factory := range GetTestProviderFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := context.Background()
			fs := factory(tst)

			if err := fs.AppendFile(ctx, "/logs/app.log", []byte("one\n")); err != nil {
				tst.Fatalf("AppendFile failed: %v", err)
			}
			if err := fs.AppendFile(ctx, "/logs/app.log", []byte("two\n")); err != nil {
				tst.Fatalf("AppendFile failed: %v", err)
			}

			got, err := fs.ReadFile(ctx, "/logs/app.log")
			if err != nil {
				tst.Fatalf("ReadFile failed: %v", err)
			}
			if string(got) != "one\ntwo\n" {
				tst.Errorf("Expected appended content, got %q", got)
			}
		})
	}
}

// TestAllProviders_CopyMove verifies intra-provider copy and move
// semantics for files and directory trees.
func TestAllProviders_CopyMove(t *testing.T) {
	for name, factory := range GetTestProviderFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := context.Background()
			fs := factory(tst)

			if err := fs.WriteFile(ctx, "/src/a.txt", []byte("alpha")); err != nil {
				tst.Fatalf("WriteFile failed: %v", err)
			}
			if err := fs.WriteFile(ctx, "/src/sub/b.txt", []byte("beta")); err != nil {
				tst.Fatalf("WriteFile failed: %v", err)
			}

			// Directory copy requires recursive.
			if err := fs.CopyFile(ctx, "/src", "/dst"); !errors.Is(err, data.ErrIsDirectory) {
				tst.Errorf("Expected ErrIsDirectory, got %v", err)
			}

			if err := fs.CopyFile(ctx, "/src", "/dst", data.WithCopyRecursive(true)); err != nil {
				tst.Fatalf("Recursive CopyFile failed: %v", err)
			}

			got, err := fs.ReadFile(ctx, "/dst/sub/b.txt")
			if err != nil {
				tst.Fatalf("ReadFile after copy failed: %v", err)
			}
			if string(got) != "beta" {
				tst.Errorf("Expected copied content, got %q", got)
			}

			// Source unchanged by copy.
			if _, err := fs.ReadFile(ctx, "/src/a.txt"); err != nil {
				tst.Errorf("Expected source to survive copy: %v", err)
			}

			if err := fs.MoveFile(ctx, "/dst/sub/b.txt", "/moved.txt"); err != nil {
				tst.Fatalf("MoveFile failed: %v", err)
			}

			exists, err := fs.Exists(ctx, "/dst/sub/b.txt")
			if err != nil {
				tst.Fatalf("Exists failed: %v", err)
			}
			if exists {
				tst.Error("Expected move to remove the source")
			}

			got, err = fs.ReadFile(ctx, "/moved.txt")
			if err != nil {
				tst.Fatalf("ReadFile after move failed: %v", err)
			}
			if string(got) != "beta" {
				tst.Errorf("Expected moved content, got %q", got)
			}

			// Copy without overwrite rejects an existing destination.
			err = fs.CopyFile(ctx, "/src/a.txt", "/moved.txt", data.WithCopyOverwrite(false))
			if !errors.Is(err, data.ErrExist) {
				tst.Errorf("Expected ErrExist, got %v", err)
			}
		})
	}
}

// TestAllProviders_CopyIntoOwnSubtree verifies copying or moving a
// directory into its own descendant is rejected up front instead of
// recursing into the freshly created destination forever.
func TestAllProviders_CopyIntoOwnSubtree(t *testing.T) {
	for name, factory := range GetTestProviderFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := context.Background()
			fs := factory(tst)

			if err := fs.WriteFile(ctx, "/a/file.txt", []byte("keep")); err != nil {
				tst.Fatalf("WriteFile failed: %v", err)
			}

			err := fs.CopyFile(ctx, "/a", "/a/b", data.WithCopyRecursive(true))
			if !errors.Is(err, data.ErrInvalidPath) {
				tst.Errorf("Expected ErrInvalidPath for self-copy, got %v", err)
			}

			err = fs.MoveFile(ctx, "/a", "/a/b/c")
			if !errors.Is(err, data.ErrInvalidPath) {
				tst.Errorf("Expected ErrInvalidPath for self-move, got %v", err)
			}

			// Source tree untouched, no destination created.
			got, err := fs.ReadFile(ctx, "/a/file.txt")
			if err != nil || string(got) != "keep" {
				tst.Errorf("Expected source intact, got %q, %v", got, err)
			}
			exists, err := fs.Exists(ctx, "/a/b")
			if err != nil {
				tst.Fatalf("Exists failed: %v", err)
			}
			if exists {
				tst.Error("Expected no destination to be created")
			}
		})
	}
}

// TestAllProviders_CopyDirOntoFile verifies a recursive directory copy
// refuses a destination that already exists as a file instead of
// planting children beneath a file node.
func TestAllProviders_CopyDirOntoFile(t *testing.T) {
	for name, factory := range GetTestProviderFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := context.Background()
			fs := factory(tst)

			if err := fs.WriteFile(ctx, "/src/a.txt", []byte("a")); err != nil {
				tst.Fatalf("WriteFile failed: %v", err)
			}
			if err := fs.WriteFile(ctx, "/dest", []byte("i am a file")); err != nil {
				tst.Fatalf("WriteFile failed: %v", err)
			}

			err := fs.CopyFile(ctx, "/src", "/dest", data.WithCopyRecursive(true))
			if !errors.Is(err, data.ErrNotDirectory) {
				tst.Errorf("Expected ErrNotDirectory, got %v", err)
			}

			got, err := fs.ReadFile(ctx, "/dest")
			if err != nil || string(got) != "i am a file" {
				tst.Errorf("Expected destination file untouched, got %q, %v", got, err)
			}
			exists, err := fs.Exists(ctx, "/dest/a.txt")
			if err != nil {
				tst.Fatalf("Exists failed: %v", err)
			}
			if exists {
				tst.Error("Expected no children beneath the file destination")
			}
		})
	}
}

// TestAllProviders_WriteParentChecks verifies non-recursive writes
// validate the parent: missing fails with ErrNotExist, a parent that
// exists as a file fails with ErrNotDirectory.
func TestAllProviders_WriteParentChecks(t *testing.T) {
	for name, factory := range GetTestProviderFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := context.Background()
			fs := factory(tst)

			err := fs.WriteFile(ctx, "/missing/child.txt", []byte("x"), data.WithParents(false))
			if !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist for missing parent, got %v", err)
			}

			if err := fs.WriteFile(ctx, "/parent", []byte("file")); err != nil {
				tst.Fatalf("WriteFile failed: %v", err)
			}
			err = fs.WriteFile(ctx, "/parent/child.txt", []byte("x"), data.WithParents(false))
			if !errors.Is(err, data.ErrNotDirectory) {
				tst.Errorf("Expected ErrNotDirectory for file parent, got %v", err)
			}
		})
	}
}

// TestAllProviders_ReadDirectory verifies one-level listings,
// recursive parent/child naming and extension filtering.
func TestAllProviders_ReadDirectory(t *testing.T) {
	for name, factory := range GetTestProviderFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := context.Background()
			fs := factory(tst)

			files := map[string]string{
				"/app.ts":        "a",
				"/style.css":     "b",
				"/src/index.ts":  "c",
				"/src/util/x.ts": "d",
			}
			for path, content := range files {
				if err := fs.WriteFile(ctx, path, []byte(content)); err != nil {
					tst.Fatalf("WriteFile %s failed: %v", path, err)
				}
			}

			entries, err := fs.ReadDirectory(ctx, "/")
			if err != nil {
				tst.Fatalf("ReadDirectory failed: %v", err)
			}
			if len(entries) != 3 {
				tst.Fatalf("Expected 3 top-level entries, got %d", len(entries))
			}

			entries, err = fs.ReadDirectory(ctx, "/", data.WithRecursive(true))
			if err != nil {
				tst.Fatalf("Recursive ReadDirectory failed: %v", err)
			}

			found := make(map[string]data.FileType)
			for _, entry := range entries {
				found[entry.Name] = entry.Type
			}

			if found["src/util/x.ts"] != data.FileTypeFile {
				tst.Errorf("Expected nested file 'src/util/x.ts', got %v", found)
			}
			if found["src/util"] != data.FileTypeDirectory {
				tst.Errorf("Expected nested directory 'src/util', got %v", found)
			}

			// Extension filter applies to files only; '.ts' and 'ts'
			// are both accepted.
			for _, ext := range []string{".ts", "ts"} {
				entries, err = fs.ReadDirectory(ctx, "/", data.WithRecursive(true), data.WithExtension(ext))
				if err != nil {
					tst.Fatalf("Filtered ReadDirectory failed: %v", err)
				}
				for _, entry := range entries {
					if entry.Type == data.FileTypeFile && entry.Name == "style.css" {
						tst.Errorf("Expected extension filter to drop style.css")
					}
				}
			}

			if _, err := fs.ReadDirectory(ctx, "/app.ts"); !errors.Is(err, data.ErrNotDirectory) {
				tst.Errorf("Expected ErrNotDirectory, got %v", err)
			}
			if _, err := fs.ReadDirectory(ctx, "/missing"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist, got %v", err)
			}
		})
	}
}

// TestAllProviders_Stat verifies stat rewrites paths relative to the
// provider root in forward-slash form.
func TestAllProviders_Stat(t *testing.T) {
	for name, factory := range GetTestProviderFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := context.Background()
			fs := factory(tst)

			if err := fs.WriteFile(ctx, "/sub/file.txt", []byte("hello")); err != nil {
				tst.Fatalf("WriteFile failed: %v", err)
			}

			stat, err := fs.Stat(ctx, "/sub/file.txt")
			if err != nil {
				tst.Fatalf("Stat failed: %v", err)
			}

			if stat.Path != "/sub/file.txt" {
				tst.Errorf("Expected provider-relative path, got %q", stat.Path)
			}
			if stat.Type != data.FileTypeFile {
				tst.Errorf("Expected file type, got %q", stat.Type)
			}
			if stat.Size != 5 {
				tst.Errorf("Expected size 5, got %d", stat.Size)
			}

			stat, err = fs.Stat(ctx, "/sub")
			if err != nil {
				tst.Fatalf("Stat failed: %v", err)
			}
			if stat.Type != data.FileTypeDirectory || stat.Size != 0 {
				tst.Errorf("Expected directory with size 0, got %+v", stat)
			}

			if _, err := fs.Stat(ctx, "/missing"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist, got %v", err)
			}
		})
	}
}

// TestReadOnlyWrapper verifies the decorator rejects every mutation
// before reaching the wrapped provider while reads pass through.
func TestReadOnlyWrapper(t *testing.T) {
	ctx := context.Background()

	inner := NewMemory()
	if err := inner.WriteFile(ctx, "/file.txt", []byte("frozen")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	fs := NewReadOnly(inner)
	if !fs.ReadOnly() {
		t.Error("Expected ReadOnly to report true")
	}

	mutations := map[string]error{
		"write":  fs.WriteFile(ctx, "/new.txt", []byte("x")),
		"append": fs.AppendFile(ctx, "/file.txt", []byte("x")),
		"unlink": fs.UnlinkFile(ctx, "/file.txt", true),
		"copy":   fs.CopyFile(ctx, "/file.txt", "/copy.txt"),
		"move":   fs.MoveFile(ctx, "/file.txt", "/moved.txt"),
		"mkdir":  fs.CreateDirectory(ctx, "/dir"),
		"rmdir":  fs.RemoveDirectory(ctx, "/dir", true, true),
	}
	for op, err := range mutations {
		if !errors.Is(err, data.ErrReadOnly) {
			t.Errorf("Expected ErrReadOnly for %s, got %v", op, err)
		}
	}

	got, err := fs.ReadFile(ctx, "/file.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "frozen" {
		t.Errorf("Expected read passthrough, got %q", got)
	}
}
