package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/common"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/filesystem/options"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/hashing"
	"github.com/ZanzyTHEbar/seb-verificator/sebv/trees"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFingerprinter records calls and optionally fails for one path
type mockFingerprinter struct {
	calls  int64
	failOn string
}

func (m *mockFingerprinter) Fingerprint(absPath, relPath string) (trees.FileEntry, error) {
	atomic.AddInt64(&m.calls, 1)
	if m.failOn != "" && relPath == m.failOn {
		return trees.FileEntry{}, fmt.Errorf("failed to open %s: %w", absPath, os.ErrPermission)
	}
	return trees.FileEntry{Path: relPath, Checksum: "SUM:" + relPath, Size: int64(len(relPath))}, nil
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func installationFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"Application/SafeExamBrowser.exe":      "main",
		"Application/SafeExamBrowser.Core.dll": "core",
		"Application/locale/de.json":           "{}",
		"Application/locale/en.json":           "{}",
		"Setup/readme.txt":                     "hello",
		"license.txt":                          "",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Empty"), 0o755))
	return root
}

func collect(root *trees.FolderEntry) []string {
	var out []string
	root.Walk(func(folder *trees.FolderEntry, file *trees.FileEntry) bool {
		if folder != nil {
			out = append(out, "D:"+folder.Path())
		} else {
			out = append(out, "F:"+file.Path)
		}
		return true
	})
	return out
}

func TestBuilderStructure(t *testing.T) {
	root := installationFixture(t)
	b := NewBuilder(&mockFingerprinter{}, options.DefaultBuildOptions())

	tree, err := b.Build(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, "", tree.Path())
	assert.Equal(t, []string{
		"D:",
		"D:Application",
		"D:Application/locale",
		"F:Application/locale/de.json",
		"F:Application/locale/en.json",
		"F:Application/SafeExamBrowser.Core.dll",
		"F:Application/SafeExamBrowser.exe",
		"D:Empty",
		"D:Setup",
		"F:Setup/readme.txt",
		"F:license.txt",
	}, collect(tree))
}

func TestBuilderDeterministicAcrossWorkerCounts(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for d := 0; d < 5; d++ {
		for f := 0; f < 20; f++ {
			files[fmt.Sprintf("dir%d/file%02d.bin", d, f)] = fmt.Sprintf("content-%d-%d", d, f)
		}
	}
	writeTree(t, root, files)

	hasher := hashing.New()
	serial, err := NewBuilder(hasher, options.BuildOptions{Workers: 1}).Build(context.Background(), root)
	require.NoError(t, err)
	parallel, err := NewBuilder(hasher, options.BuildOptions{Workers: 16}).Build(context.Background(), root)
	require.NoError(t, err)
	again, err := NewBuilder(hasher, options.BuildOptions{Workers: 16}).Build(context.Background(), root)
	require.NoError(t, err)

	assert.True(t, trees.Equal(serial, parallel))
	assert.True(t, trees.Equal(parallel, again))
	assert.True(t, trees.Matches(serial, again))

	folders, fileCount := parallel.Count()
	assert.Equal(t, 6, folders)
	assert.Equal(t, 100, fileCount)
}

func TestBuilderFingerprintsWithHasher(t *testing.T) {
	root := installationFixture(t)
	tree, err := NewBuilder(hashing.New(), options.DefaultBuildOptions()).Build(context.Background(), root)
	require.NoError(t, err)

	idx := trees.IndexFolder(tree)
	readme, err := idx.LookupFile("Setup/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, hashing.DigestBytes([]byte("hello")), readme.Checksum)
	assert.Equal(t, int64(5), readme.Size)

	license, err := idx.LookupFile("license.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(0), license.Size)
	assert.Equal(t, hashing.DigestBytes(nil), license.Checksum)

	exe, err := idx.LookupFile("Application/SafeExamBrowser.exe")
	require.NoError(t, err)
	assert.Nil(t, exe.Signature)
}

func TestBuilderIgnorePatterns(t *testing.T) {
	root := installationFixture(t)
	writeTree(t, root, map[string]string{
		"Application/debug.log": "noise",
		"Logs/today.txt":        "noise",
	})

	b := NewBuilder(&mockFingerprinter{}, options.BuildOptions{IgnorePatterns: []string{"*.log", "Logs/"}})
	tree, err := b.Build(context.Background(), root)
	require.NoError(t, err)

	idx := trees.IndexFolder(tree)
	assert.False(t, idx.Contains("Application/debug.log"))
	assert.False(t, idx.Contains("Logs"))
	assert.True(t, idx.Contains("Application/SafeExamBrowser.exe"))
}

func TestBuilderErrors(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		_, err := NewBuilder(&mockFingerprinter{}, options.BuildOptions{}).Build(context.Background(), filepath.Join(t.TempDir(), "nope"))
		var be *common.BuildError
		require.True(t, errors.As(err, &be))
		assert.ErrorIs(t, err, common.ErrRootNotFound)
	})

	t.Run("root is a file", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "file.txt")
		require.NoError(t, os.WriteFile(file, nil, 0o644))
		_, err := NewBuilder(&mockFingerprinter{}, options.BuildOptions{}).Build(context.Background(), file)
		assert.ErrorIs(t, err, common.ErrNotDirectory)
	})

	t.Run("fingerprint failure aborts without a tree", func(t *testing.T) {
		root := installationFixture(t)
		fp := &mockFingerprinter{failOn: "Setup/readme.txt"}
		tree, err := NewBuilder(fp, options.BuildOptions{Workers: 2}).Build(context.Background(), root)
		assert.Nil(t, tree)

		var be *common.BuildError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, filepath.Join(root, "Setup", "readme.txt"), be.Path)
		assert.ErrorIs(t, err, os.ErrPermission)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		tree, err := NewBuilder(&mockFingerprinter{}, options.BuildOptions{}).Build(ctx, installationFixture(t))
		assert.Nil(t, tree)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("symlink loop", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlinks need privileges on windows")
		}
		root := installationFixture(t)
		require.NoError(t, os.Symlink(root, filepath.Join(root, "Application", "loop")))
		_, err := NewBuilder(&mockFingerprinter{}, options.DefaultBuildOptions()).Build(context.Background(), root)
		assert.ErrorIs(t, err, common.ErrSymlinkLoop)
	})

	t.Run("case-colliding names", func(t *testing.T) {
		if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
			t.Skip("file system is case-insensitive")
		}
		root := t.TempDir()
		writeTree(t, root, map[string]string{"a.txt": "1", "A.TXT": "2"})
		_, err := NewBuilder(&mockFingerprinter{}, options.BuildOptions{}).Build(context.Background(), root)
		assert.ErrorIs(t, err, trees.ErrDuplicateEntry)

		var buildErr *common.BuildError
		require.ErrorAs(t, err, &buildErr)
		assert.Equal(t, "collide", buildErr.Op)
		assert.Contains(t, err.Error(), `"a.txt"`)
		assert.Contains(t, err.Error(), `"A.TXT"`)
	})
}

func TestBuilderSymlinkedFiles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := installationFixture(t)
	outside := filepath.Join(t.TempDir(), "shared.dll")
	require.NoError(t, os.WriteFile(outside, []byte("shared"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "Application", "shared.dll")))

	followed, err := NewBuilder(hashing.New(), options.DefaultBuildOptions()).Build(context.Background(), root)
	require.NoError(t, err)
	entry, err := trees.IndexFolder(followed).LookupFile("Application/shared.dll")
	require.NoError(t, err)
	assert.Equal(t, hashing.DigestBytes([]byte("shared")), entry.Checksum)

	unfollowed, err := NewBuilder(hashing.New(), options.BuildOptions{FollowSymlinks: false}).Build(context.Background(), root)
	require.NoError(t, err)
	link, err := trees.IndexFolder(unfollowed).LookupFile("Application/shared.dll")
	require.NoError(t, err, "unfollowed symlinks are still recorded")
	target := filepath.ToSlash(outside)
	assert.Equal(t, hashing.DigestBytes([]byte(target)), link.Checksum)
	assert.Equal(t, int64(len(target)), link.Size)
	require.NotNil(t, link.OriginalName)
	assert.Equal(t, target, *link.OriginalName)
}
