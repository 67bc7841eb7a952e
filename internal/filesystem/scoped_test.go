package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cchalm/workspace-fs/internal/workspace"
)

// newTestFS creates a workspace directory "ws" next to a sibling directory "outside" containing secret.txt, and
// returns a ScopedFS rooted at ws
func newTestFS(t *testing.T) (*ScopedFS, string, string) {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "ws")
	outside := filepath.Join(base, "outside")
	require.NoError(t, os.Mkdir(root, 0o755))
	require.NoError(t, os.Mkdir(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0o644))
	return NewScopedFS(workspace.NewStore(root)), root, outside
}

func requireSymlinks(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}
}

func TestScopedFS_WriteThenRead(t *testing.T) {
	ctx := context.Background()
	sfs, root, _ := newTestFS(t)

	err := sfs.Write(ctx, "notes/todo.txt", "buy milk")
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(root, "notes"))

	content, err := sfs.Read(ctx, "notes/todo.txt")
	require.NoError(t, err)
	require.Equal(t, "buy milk", content)

	_, err = sfs.Read(ctx, "../etc/passwd")
	require.ErrorIs(t, err, ErrOutsideWorkspace)
}

func TestScopedFS_RoundTripVariousContents(t *testing.T) {
	ctx := context.Background()
	sfs, _, _ := newTestFS(t)

	contents := map[string]string{
		"empty.txt":           "",
		"unicode.md":          "héllo wörld 📝\n",
		"deep/a/b/c/d.txt":    "line1\nline2\r\nline3",
		"dotted/../plain.txt": "cleaned path",
		"./here.txt":          "dot prefix",
	}
	for path, content := range contents {
		require.NoError(t, sfs.Write(ctx, path, content))
		got, err := sfs.Read(ctx, path)
		require.NoError(t, err)
		require.Equal(t, content, got, path)
	}
}

func TestScopedFS_WriteOverwrites(t *testing.T) {
	ctx := context.Background()
	sfs, _, _ := newTestFS(t)

	require.NoError(t, sfs.Write(ctx, "f.txt", "a much longer first version"))
	require.NoError(t, sfs.Write(ctx, "f.txt", "short"))
	content, err := sfs.Read(ctx, "f.txt")
	require.NoError(t, err)
	require.Equal(t, "short", content)
}

func TestScopedFS_EscapingPathsAreRejectedWithoutTouchingDisk(t *testing.T) {
	ctx := context.Background()
	sfs, root, outside := newTestFS(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "inside.txt"), []byte("x"), 0o644))

	escapes := []string{
		"../outside/secret.txt",
		"../outside/new.txt",
		"notes/../../outside/secret.txt",
		"..",
		filepath.Join(outside, "secret.txt"),
	}

	for _, path := range escapes {
		_, err := sfs.Read(ctx, path)
		require.ErrorIs(t, err, ErrOutsideWorkspace, path)

		err = sfs.Write(ctx, path, "pwned")
		require.ErrorIs(t, err, ErrOutsideWorkspace, path)

		_, err = sfs.ListDir(ctx, path)
		require.ErrorIs(t, err, ErrOutsideWorkspace, path)

		err = sfs.CreateDir(ctx, path)
		require.ErrorIs(t, err, ErrOutsideWorkspace, path)

		err = sfs.Delete(ctx, path)
		require.ErrorIs(t, err, ErrOutsideWorkspace, path)

		err = sfs.Rename(ctx, path, "moved.txt")
		require.ErrorIs(t, err, ErrOutsideWorkspace, path)

		err = sfs.Rename(ctx, "inside.txt", path)
		require.ErrorIs(t, err, ErrOutsideWorkspace, path)
	}

	// Nothing outside the workspace changed
	secret, err := os.ReadFile(filepath.Join(outside, "secret.txt"))
	require.NoError(t, err)
	require.Equal(t, "secret", string(secret))
	require.NoFileExists(t, filepath.Join(outside, "new.txt"))
	require.FileExists(t, filepath.Join(root, "inside.txt"))
	require.NoFileExists(t, filepath.Join(root, "moved.txt"))
}

func TestScopedFS_AbsolutePathInsideWorkspace(t *testing.T) {
	ctx := context.Background()
	sfs, root, _ := newTestFS(t)

	err := sfs.Write(ctx, filepath.Join(root, "abs.txt"), "absolute")
	require.NoError(t, err)
	content, err := sfs.Read(ctx, "abs.txt")
	require.NoError(t, err)
	require.Equal(t, "absolute", content)
}

func TestScopedFS_SiblingWithSharedPrefixIsOutside(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	root := filepath.Join(base, "ws")
	sibling := filepath.Join(base, "ws-evil")
	require.NoError(t, os.Mkdir(root, 0o755))
	require.NoError(t, os.Mkdir(sibling, 0o755))
	sfs := NewScopedFS(workspace.NewStore(root))

	err := sfs.Write(ctx, "../ws-evil/x.txt", "x")
	require.ErrorIs(t, err, ErrOutsideWorkspace)
	require.NoFileExists(t, filepath.Join(sibling, "x.txt"))
}

func TestScopedFS_SymlinkEscapes(t *testing.T) {
	requireSymlinks(t)
	ctx := context.Background()
	sfs, root, outside := newTestFS(t)
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "secret-link.txt")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "missing", "dir"), filepath.Join(root, "dangling")))

	_, err := sfs.Read(ctx, "link/secret.txt")
	require.ErrorIs(t, err, ErrOutsideWorkspace)

	_, err = sfs.Read(ctx, "secret-link.txt")
	require.ErrorIs(t, err, ErrOutsideWorkspace)

	_, err = sfs.ListDir(ctx, "link")
	require.ErrorIs(t, err, ErrOutsideWorkspace)

	err = sfs.Write(ctx, "link/new.txt", "x")
	require.ErrorIs(t, err, ErrOutsideWorkspace)
	require.NoFileExists(t, filepath.Join(outside, "new.txt"))

	err = sfs.Write(ctx, "dangling/new.txt", "x")
	require.ErrorIs(t, err, ErrOutsideWorkspace)
	require.NoDirExists(t, filepath.Join(outside, "missing"))

	err = sfs.CreateDir(ctx, "dangling")
	require.ErrorIs(t, err, ErrOutsideWorkspace)
	require.NoDirExists(t, filepath.Join(outside, "missing"))
}

func TestScopedFS_SymlinkInsideWorkspaceIsFollowed(t *testing.T) {
	requireSymlinks(t)
	ctx := context.Background()
	sfs, root, _ := newTestFS(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "real"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")))

	require.NoError(t, sfs.Write(ctx, "alias/f.txt", "via alias"))
	content, err := sfs.Read(ctx, "real/f.txt")
	require.NoError(t, err)
	require.Equal(t, "via alias", content)
}

func TestScopedFS_DeleteSymlinkRemovesLinkOnly(t *testing.T) {
	requireSymlinks(t)
	ctx := context.Background()
	sfs, root, outside := newTestFS(t)
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))

	err := sfs.Delete(ctx, "link")
	require.NoError(t, err)
	_, err = os.Lstat(filepath.Join(root, "link"))
	require.ErrorIs(t, err, os.ErrNotExist)
	require.FileExists(t, filepath.Join(outside, "secret.txt"))
}

func TestScopedFS_SymlinkedWorkspaceRoot(t *testing.T) {
	requireSymlinks(t)
	ctx := context.Background()
	base := t.TempDir()
	realDir := filepath.Join(base, "real")
	require.NoError(t, os.Mkdir(realDir, 0o755))
	require.NoError(t, os.Symlink(realDir, filepath.Join(base, "ws")))
	sfs := NewScopedFS(workspace.NewStore(filepath.Join(base, "ws")))

	require.NoError(t, sfs.Write(ctx, "a.txt", "through root link"))
	content, err := os.ReadFile(filepath.Join(realDir, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "through root link", string(content))
}

func TestScopedFS_CreateDirIsIdempotent(t *testing.T) {
	ctx := context.Background()
	sfs, root, _ := newTestFS(t)

	require.NoError(t, sfs.CreateDir(ctx, "a/b/c"))
	require.DirExists(t, filepath.Join(root, "a", "b", "c"))
	before, err := sfs.ListDir(ctx, "a/b")
	require.NoError(t, err)

	require.NoError(t, sfs.CreateDir(ctx, "a/b/c"))
	after, err := sfs.ListDir(ctx, "a/b")
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestScopedFS_CreateDirOverFile(t *testing.T) {
	ctx := context.Background()
	sfs, _, _ := newTestFS(t)
	require.NoError(t, sfs.Write(ctx, "occupied", "file"))

	err := sfs.CreateDir(ctx, "occupied")
	require.Error(t, err)
	require.NotEqual(t, KindOutsideWorkspace, KindOf(err))
}

func TestScopedFS_DeleteNonExistent(t *testing.T) {
	ctx := context.Background()
	sfs, _, _ := newTestFS(t)

	err := sfs.Delete(ctx, "nope.txt")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestScopedFS_DeleteDirectoryRecursively(t *testing.T) {
	ctx := context.Background()
	sfs, root, _ := newTestFS(t)
	require.NoError(t, sfs.Write(ctx, "parent/victim/deep/file.txt", "x"))
	require.NoError(t, sfs.Write(ctx, "parent/keep.txt", "y"))

	require.NoError(t, sfs.Delete(ctx, "parent/victim"))
	require.NoDirExists(t, filepath.Join(root, "parent", "victim"))

	entries, err := sfs.ListDir(ctx, "parent")
	require.NoError(t, err)
	require.Equal(t, []DirEntry{{Name: "keep.txt", IsDir: false}}, entries)
}

func TestScopedFS_DeleteFile(t *testing.T) {
	ctx := context.Background()
	sfs, root, _ := newTestFS(t)
	require.NoError(t, sfs.Write(ctx, "f.txt", "x"))

	require.NoError(t, sfs.Delete(ctx, "f.txt"))
	require.NoFileExists(t, filepath.Join(root, "f.txt"))
}

func TestScopedFS_WorkspaceRootCannotBeDeletedOrRenamed(t *testing.T) {
	ctx := context.Background()
	sfs, root, _ := newTestFS(t)

	for _, path := range []string{"", ".", "sub/..", root} {
		err := sfs.Delete(ctx, path)
		require.ErrorIs(t, err, ErrInvalidArgument, path)

		err = sfs.Rename(ctx, path, "elsewhere")
		require.ErrorIs(t, err, ErrInvalidArgument, path)
	}
	require.DirExists(t, root)
}

func TestScopedFS_ListDir(t *testing.T) {
	ctx := context.Background()
	sfs, _, _ := newTestFS(t)
	require.NoError(t, sfs.Write(ctx, "d/a.txt", "a"))
	require.NoError(t, sfs.CreateDir(ctx, "d/b"))

	entries, err := sfs.ListDir(ctx, "d")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	rendered := make([]string, 0, len(entries))
	for _, e := range entries {
		rendered = append(rendered, e.String())
	}
	require.True(t, sort.StringsAreSorted(rendered))

	byName := map[string]DirEntry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	require.False(t, byName["a.txt"].IsDir)
	require.True(t, byName["b"].IsDir)
	fileMarker := strings.TrimSuffix(byName["a.txt"].String(), "a.txt")
	dirMarker := strings.TrimSuffix(byName["b"].String(), "b")
	require.NotEmpty(t, fileMarker)
	require.NotEmpty(t, dirMarker)
	require.NotEqual(t, fileMarker, dirMarker)
}

func TestScopedFS_ListDirSortsByRenderedForm(t *testing.T) {
	ctx := context.Background()
	sfs, _, _ := newTestFS(t)
	for _, f := range []string{"z.txt", "a.txt", "m.txt"} {
		require.NoError(t, sfs.Write(ctx, "d/"+f, ""))
	}
	for _, d := range []string{"zdir", "adir"} {
		require.NoError(t, sfs.CreateDir(ctx, "d/"+d))
	}

	entries, err := sfs.ListDir(ctx, "d")
	require.NoError(t, err)

	rendered := make([]string, 0, len(entries))
	for _, e := range entries {
		rendered = append(rendered, e.String())
	}
	expected := append([]string(nil), rendered...)
	sort.Strings(expected)
	require.Equal(t, expected, rendered)
}

func TestScopedFS_ListRoot(t *testing.T) {
	ctx := context.Background()
	sfs, _, _ := newTestFS(t)
	require.NoError(t, sfs.Write(ctx, "top.txt", ""))

	for _, path := range []string{"", "."} {
		entries, err := sfs.ListDir(ctx, path)
		require.NoError(t, err)
		require.Equal(t, []DirEntry{{Name: "top.txt"}}, entries)
	}
}

func TestScopedFS_ListDirErrors(t *testing.T) {
	ctx := context.Background()
	sfs, _, _ := newTestFS(t)
	require.NoError(t, sfs.Write(ctx, "file.txt", "x"))

	_, err := sfs.ListDir(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = sfs.ListDir(ctx, "file.txt")
	require.ErrorIs(t, err, ErrNotADirectory)
}

func TestScopedFS_ReadErrors(t *testing.T) {
	ctx := context.Background()
	sfs, root, _ := newTestFS(t)
	require.NoError(t, sfs.CreateDir(ctx, "dir"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), []byte{0xff, 0xfe, 0x00, 0x81}, 0o644))

	_, err := sfs.Read(ctx, "missing.txt")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = sfs.Read(ctx, "dir")
	require.Error(t, err)
	require.NotEqual(t, KindOutsideWorkspace, KindOf(err))

	_, err = sfs.Read(ctx, "blob.bin")
	require.ErrorIs(t, err, ErrIO)
	require.Contains(t, err.Error(), "not valid UTF-8")
}

func TestScopedFS_WriteUnderFileFails(t *testing.T) {
	ctx := context.Background()
	sfs, _, _ := newTestFS(t)
	require.NoError(t, sfs.Write(ctx, "file.txt", "x"))

	err := sfs.Write(ctx, "file.txt/child.txt", "y")
	require.Error(t, err)
	require.NotEqual(t, KindOutsideWorkspace, KindOf(err))
}

func TestScopedFS_Rename(t *testing.T) {
	ctx := context.Background()
	sfs, root, _ := newTestFS(t)
	require.NoError(t, sfs.Write(ctx, "old.txt", "content"))
	require.NoError(t, sfs.CreateDir(ctx, "sub"))

	require.NoError(t, sfs.Rename(ctx, "old.txt", "sub/new.txt"))
	require.NoFileExists(t, filepath.Join(root, "old.txt"))
	content, err := sfs.Read(ctx, "sub/new.txt")
	require.NoError(t, err)
	require.Equal(t, "content", content)

	// Directories move with their contents
	require.NoError(t, sfs.Rename(ctx, "sub", "renamed"))
	content, err = sfs.Read(ctx, "renamed/new.txt")
	require.NoError(t, err)
	require.Equal(t, "content", content)
}

func TestScopedFS_RenameMissingSource(t *testing.T) {
	ctx := context.Background()
	sfs, _, _ := newTestFS(t)

	err := sfs.Rename(ctx, "ghost.txt", "other.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

// switchingStore hands out its first root once and its second root for every later call, simulating a workspace
// switch that lands in the middle of an operation
type switchingStore struct {
	first, second string
	calls         int
}

func (ss *switchingStore) Root() string {
	ss.calls++
	if ss.calls == 1 {
		return ss.first
	}
	return ss.second
}

func (ss *switchingStore) SetRoot(root string) {
	ss.second = root
}

func TestScopedFS_RenameResolvesBothPathsUnderOneRoot(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	rootA := filepath.Join(base, "a")
	rootB := filepath.Join(base, "b")
	require.NoError(t, os.Mkdir(rootA, 0o755))
	require.NoError(t, os.Mkdir(rootB, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "f.txt"), []byte("v"), 0o644))

	store := &switchingStore{first: rootA, second: rootB}
	sfs := NewScopedFS(store)

	require.NoError(t, sfs.Rename(ctx, "f.txt", "g.txt"))
	require.Equal(t, 1, store.calls)
	require.FileExists(t, filepath.Join(rootA, "g.txt"))
	require.NoFileExists(t, filepath.Join(rootB, "g.txt"))
}

func TestScopedFS_SetWorkspace(t *testing.T) {
	ctx := context.Background()
	sfs, root, _ := newTestFS(t)
	require.NoError(t, sfs.Write(ctx, "x", "old root"))
	require.NoError(t, sfs.Write(ctx, "inner/x", "new root"))

	newRoot := filepath.Join(root, "inner")
	require.NoError(t, sfs.SetWorkspace(ctx, newRoot))
	require.Equal(t, newRoot, sfs.Workspace())

	content, err := sfs.Read(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, "new root", content)

	// Valid under the old root, outside the new one
	_, err = sfs.Read(ctx, "../x")
	require.ErrorIs(t, err, ErrOutsideWorkspace)
}

func TestScopedFS_SetWorkspaceMakesRelativeAbsolute(t *testing.T) {
	ctx := context.Background()
	sfs, _, _ := newTestFS(t)
	cwd, err := os.Getwd()
	require.NoError(t, err)

	require.NoError(t, sfs.SetWorkspace(ctx, "some/relative/dir"))
	require.Equal(t, filepath.Join(cwd, "some", "relative", "dir"), sfs.Workspace())
}

func TestScopedFS_SetWorkspaceRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	sfs, root, _ := newTestFS(t)

	err := sfs.SetWorkspace(ctx, "  ")
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Equal(t, root, sfs.Workspace())
}

func TestScopedFS_MissingWorkspaceRoot(t *testing.T) {
	ctx := context.Background()
	sfs, root, _ := newTestFS(t)

	// Setting a bogus root succeeds; the failure surfaces at the filesystem step
	require.NoError(t, sfs.SetWorkspace(ctx, filepath.Join(root, "does-not-exist")))

	_, err := sfs.Read(ctx, "a.txt")
	require.ErrorIs(t, err, ErrNotFound)
	err = sfs.Write(ctx, "a.txt", "x")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoDirExists(t, filepath.Join(root, "does-not-exist"))
}

func TestScopedFS_ConcurrentOperationsAcrossRootSwaps(t *testing.T) {
	ctx := context.Background()
	sfs, root, _ := newTestFS(t)
	rootA := filepath.Join(root, "a")
	rootB := filepath.Join(root, "b")
	require.NoError(t, os.Mkdir(rootA, 0o755))
	require.NoError(t, os.Mkdir(rootB, 0o755))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				_ = sfs.SetWorkspace(ctx, rootA)
			} else {
				_ = sfs.SetWorkspace(ctx, rootB)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		require.NoError(t, sfs.Write(ctx, "f.txt", "v"))
	}
	<-done

	// Every write landed under one of the snapshotted roots, never under the parent
	require.NoFileExists(t, filepath.Join(root, "f.txt"))
}

var _ WorkspaceFileSystem = (*ScopedFS)(nil)
