//go:build unix

package fusebind

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/require"
)

func TestStatIntoRegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	var attr fuse.Attr
	errno := statInto(path, &attr)
	require.Equal(t, syscall.Errno(0), errno)
	require.Equal(t, uint64(5), attr.Size)
	require.NotZero(t, attr.Mode&syscall.S_IFREG)
}

func TestStatIntoMissingReturnsENOENT(t *testing.T) {
	var attr fuse.Attr
	errno := statInto(filepath.Join(t.TempDir(), "missing"), &attr)
	require.Equal(t, syscall.ENOENT, errno)
}

func TestReadDirSortsEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), nil, 0o644))

	entries, errno := readDir(dir)
	require.Equal(t, syscall.Errno(0), errno)
	require.Len(t, entries, 2)
	require.Equal(t, "a", entries[0].Name)
	require.Equal(t, "b", entries[1].Name)
}

func TestOpenBackingMissingPath(t *testing.T) {
	_, errno := openBacking("", 0)
	require.Equal(t, syscall.EINVAL, errno)
}
