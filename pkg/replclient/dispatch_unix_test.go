//go:build unix

package replclient

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/bahusvel/fsyncer/pkg/vfscall"
	"github.com/stretchr/testify/require"
)

func TestDispatchMkdirRmdir(t *testing.T) {
	root := t.TempDir()
	d := NewPosixDispatcher(root)

	rc := d.Dispatch(vfscall.Mkdir{Path: "/a", Mode: 0o755})
	require.Equal(t, int32(0), rc)
	info, err := os.Stat(filepath.Join(root, "a"))
	require.NoError(t, err)
	require.True(t, info.IsDir())

	rc = d.Dispatch(vfscall.Rmdir{Path: "/a"})
	require.Equal(t, int32(0), rc)
	_, err = os.Stat(filepath.Join(root, "a"))
	require.True(t, os.IsNotExist(err))
}

func TestDispatchCreateAndWrite(t *testing.T) {
	root := t.TempDir()
	d := NewPosixDispatcher(root)

	rc := d.Dispatch(vfscall.Create{Path: "/f", Mode: 0o644, Flags: uint32(os.O_RDWR)})
	require.Equal(t, int32(0), rc)

	rc = d.Dispatch(vfscall.Write{Path: "/f", Offset: 0, Buf: []byte("hello")})
	require.Equal(t, int32(5), rc)

	data, err := os.ReadFile(filepath.Join(root, "f"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestDispatchTruncatingWrite(t *testing.T) {
	root := t.TempDir()
	d := NewPosixDispatcher(root)

	require.Equal(t, int32(0), d.Dispatch(vfscall.Create{Path: "/f", Mode: 0o644, Flags: uint32(os.O_RDWR)}))
	require.Equal(t, int32(10), d.Dispatch(vfscall.Write{Path: "/f", Offset: 0, Buf: []byte("0123456789")}))

	rc := d.Dispatch(vfscall.TruncatingWrite{
		Write:  vfscall.Write{Path: "/f", Offset: 0, Buf: []byte("ab")},
		Length: 2,
	})
	require.Equal(t, int32(2), rc)

	data, err := os.ReadFile(filepath.Join(root, "f"))
	require.NoError(t, err)
	require.Equal(t, "ab", string(data))
}

func TestDispatchRename(t *testing.T) {
	root := t.TempDir()
	d := NewPosixDispatcher(root)
	require.Equal(t, int32(0), d.Dispatch(vfscall.Create{Path: "/a", Mode: 0o644, Flags: uint32(os.O_RDWR)}))
	require.Equal(t, int32(0), d.Dispatch(vfscall.Rename{From: "/a", To: "/b"}))

	_, err := os.Stat(filepath.Join(root, "a"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "b"))
	require.NoError(t, err)
}

func TestDispatchUnlinkMissingReturnsNegativeErrno(t *testing.T) {
	root := t.TempDir()
	d := NewPosixDispatcher(root)
	rc := d.Dispatch(vfscall.Unlink{Path: "/missing"})
	require.Less(t, rc, int32(0))
}

func TestDispatchSymlinkAndSecurity(t *testing.T) {
	root := t.TempDir()
	d := NewPosixDispatcher(root)
	sec := vfscall.UnixSecurity{UID: uint32(os.Getuid()), GID: uint32(os.Getgid())}
	require.Equal(t, int32(0), d.Dispatch(vfscall.Symlink{From: "target", To: "/link", Security: sec}))
	target, err := os.Readlink(filepath.Join(root, "link"))
	require.NoError(t, err)
	require.Equal(t, "target", target)

	info, err := os.Lstat(filepath.Join(root, "link"))
	require.NoError(t, err)
	st, ok := info.Sys().(*syscall.Stat_t)
	require.True(t, ok)
	require.Equal(t, sec.UID, st.Uid)
	require.Equal(t, sec.GID, st.Gid)
}
