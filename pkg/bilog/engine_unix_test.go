//go:build unix

package bilog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bahusvel/fsyncer/pkg/vfscall"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	return NewEngine(root, nil), root
}

func TestChmodCaptureAndApplyReverses(t *testing.T) {
	e, root := newTestEngine(t)
	path := filepath.Join(root, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	rec, err := e.Capture(vfscall.Chmod{Path: "/f", Mode: 0o600})
	require.NoError(t, err)
	require.NoError(t, os.Chmod(path, 0o600))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, e.Apply(rec))
	info, err = os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWriteCaptureAndApplyReversesExactly(t *testing.T) {
	e, root := newTestEngine(t)
	path := filepath.Join(root, "f")
	original := make([]byte, 4096)
	for i := range original {
		original[i] = 0xAA
	}
	require.NoError(t, os.WriteFile(path, original, 0o644))

	newBytes := make([]byte, 512)
	for i := range newBytes {
		newBytes[i] = 0xBB
	}

	rec, err := e.Capture(vfscall.NewWriteBorrowed("/f", 1024, newBytes))
	require.NoError(t, err)

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = f.WriteAt(newBytes, 1024)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	applied, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, byte(0xBB), applied[1024])

	require.NoError(t, e.Apply(rec))
	reverted, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, original, reverted)
}

func TestMkdirRmdirCaptureAndApply(t *testing.T) {
	e, root := newTestEngine(t)
	path := filepath.Join(root, "d")

	rec, err := e.Capture(vfscall.Mkdir{Path: "/d", Mode: 0o755})
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, e.Apply(rec))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestUnlinkLastLinkPreservesAndRestoresBytes(t *testing.T) {
	e, root := newTestEngine(t)
	path := filepath.Join(root, "f")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	rec, err := e.Capture(vfscall.Unlink{Path: "/f"})
	require.NoError(t, err)

	// Capture already moved the file into the trash directory (last
	// link); path should now be gone from the caller's perspective.
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, e.Apply(rec))
	restored, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(restored))
}

func TestXattrOverwriteCaptureAndApplyReversesExactly(t *testing.T) {
	e, root := newTestEngine(t)
	path := filepath.Join(root, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, setXattr(path, "user.tag", []byte("OLD")))

	rec, err := e.Capture(vfscall.Setxattr{Path: "/f", Name: "user.tag", Value: []byte("NEW")})
	require.NoError(t, err)
	require.NoError(t, setXattr(path, "user.tag", []byte("NEW")))

	value, has, err := getXattr(path, "user.tag")
	require.NoError(t, err)
	require.True(t, has)
	require.Equal(t, []byte("NEW"), value)

	require.NoError(t, e.Apply(rec))
	value, has, err = getXattr(path, "user.tag")
	require.NoError(t, err)
	require.True(t, has)
	require.Equal(t, []byte("OLD"), value)

	require.NoError(t, e.Apply(rec))
	value, has, err = getXattr(path, "user.tag")
	require.NoError(t, err)
	require.True(t, has)
	require.Equal(t, []byte("NEW"), value)
}

func TestXattrSetCreateCaptureAndApplyReverses(t *testing.T) {
	e, root := newTestEngine(t)
	path := filepath.Join(root, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	rec, err := e.Capture(vfscall.Setxattr{Path: "/f", Name: "user.tag", Value: []byte("NEW")})
	require.NoError(t, err)
	require.NoError(t, setXattr(path, "user.tag", []byte("NEW")))

	require.NoError(t, e.Apply(rec))
	_, has, err := getXattr(path, "user.tag")
	require.NoError(t, err)
	require.False(t, has)
}

func TestXattrRemoveCaptureAndApplyRestores(t *testing.T) {
	e, root := newTestEngine(t)
	path := filepath.Join(root, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, setXattr(path, "user.tag", []byte("OLD")))

	rec, err := e.Capture(vfscall.Removexattr{Path: "/f", Name: "user.tag"})
	require.NoError(t, err)
	require.NoError(t, removeXattr(path, "user.tag"))

	_, has, err := getXattr(path, "user.tag")
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, e.Apply(rec))
	value, has, err := getXattr(path, "user.tag")
	require.NoError(t, err)
	require.True(t, has)
	require.Equal(t, []byte("OLD"), value)
}

func TestRenameCaptureAndApply(t *testing.T) {
	e, root := newTestEngine(t)
	from := filepath.Join(root, "a")
	to := filepath.Join(root, "b")
	require.NoError(t, os.WriteFile(from, []byte("x"), 0o644))

	rec, err := e.Capture(vfscall.Rename{From: "/a", To: "/b"})
	require.NoError(t, err)
	require.NoError(t, os.Rename(from, to))

	require.NoError(t, e.Apply(rec))
	_, err = os.Stat(from)
	require.NoError(t, err)
	_, err = os.Stat(to)
	require.True(t, os.IsNotExist(err))
}
