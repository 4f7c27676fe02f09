//go:build unix

package replclient

import (
	"os"

	"github.com/bahusvel/fsyncer/pkg/security"
	"github.com/bahusvel/fsyncer/pkg/vfscall"
)

// PosixDispatcher maps VFSCalls onto syscalls against a backing root,
// generalizing the teacher's RealFSProvider (pkg/vfs/realfs.go) from its
// narrow os.* call surface to the full POSIX operation set spec.md §4.4
// names, returning negative-errno return codes instead of Go errors so
// the result can travel back over the wire as an Ack.
type PosixDispatcher struct {
	translator *security.Translator
}

// NewPosixDispatcher constructs a dispatcher rooted at backingRoot.
func NewPosixDispatcher(backingRoot string) *PosixDispatcher {
	return &PosixDispatcher{translator: security.NewTranslator(backingRoot)}
}

// Dispatch implements Dispatcher.
func (d *PosixDispatcher) Dispatch(call vfscall.Call) int32 {
	switch c := call.(type) {
	case vfscall.Mkdir:
		return d.dispatchMkdir(c)
	case vfscall.Mknod:
		return d.dispatchMknod(c)
	case vfscall.Rmdir:
		return d.path1(c.Path, os.Remove)
	case vfscall.Unlink:
		return d.path1(c.Path, os.Remove)
	case vfscall.Symlink:
		return d.dispatchSymlink(c)
	case vfscall.Link:
		return d.dispatchLink(c)
	case vfscall.Rename:
		return d.dispatchRename(c)
	case vfscall.Chmod:
		return d.dispatchChmod(c)
	case vfscall.Security:
		return d.dispatchSecurity(c)
	case vfscall.Truncate:
		return d.dispatchTruncate(c)
	case vfscall.Write:
		return d.dispatchWrite(c.Path, c.Offset, c.Buf)
	case vfscall.DiffWrite:
		return d.dispatchWrite(c.Path, c.Offset, c.Buf)
	case vfscall.TruncatingWrite:
		return d.dispatchTruncatingWrite(c)
	case vfscall.Fallocate:
		return d.dispatchFallocate(c)
	case vfscall.Setxattr:
		return d.dispatchSetxattr(c)
	case vfscall.Removexattr:
		return d.dispatchRemovexattr(c)
	case vfscall.Create:
		return d.dispatchCreate(c)
	case vfscall.Utimens:
		return d.dispatchUtimens(c)
	case vfscall.Fsync:
		return d.dispatchFsync(c)
	case vfscall.AllocationSize:
		// Windows-only (NTFS allocation size); no POSIX equivalent.
		return 0
	default:
		return errELIBBAD
	}
}

func (d *PosixDispatcher) backing(guestPath string) (string, int32) {
	path, err := d.translator.ToBacking(guestPath)
	if err != nil {
		return "", errEINVAL
	}
	return path, 0
}

// BackingPath translates a guest path to its backing-store path, for
// callers (fusebind's read-only callbacks) that need the path itself
// rather than a dispatched VFSCall result. It returns "" if translation
// fails, matching the zero-value convention os.Stat et al. already use
// for a missing path.
func (d *PosixDispatcher) BackingPath(guestPath string) string {
	path, rc := d.backing(guestPath)
	if rc != 0 {
		return ""
	}
	return path
}

// path1 runs a single-path os.* operation after translation.
func (d *PosixDispatcher) path1(guestPath string, op func(string) error) int32 {
	path, rc := d.backing(guestPath)
	if rc != 0 {
		return rc
	}
	return rcOf(op(path))
}
