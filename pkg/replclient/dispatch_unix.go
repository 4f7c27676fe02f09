//go:build unix

package replclient

import (
	"os"

	"github.com/bahusvel/fsyncer/pkg/vfscall"
	"golang.org/x/sys/unix"
)

func (d *PosixDispatcher) dispatchMkdir(c vfscall.Mkdir) int32 {
	path, rc := d.backing(c.Path)
	if rc != 0 {
		return rc
	}
	if err := os.Mkdir(path, os.FileMode(c.Mode&0o7777)); err != nil {
		return rcOf(err)
	}
	return d.applySecurityIfPresent(path, c.Security)
}

func (d *PosixDispatcher) dispatchMknod(c vfscall.Mknod) int32 {
	path, rc := d.backing(c.Path)
	if rc != 0 {
		return rc
	}
	if err := unix.Mknod(path, c.Mode, int(c.Rdev)); err != nil {
		return rcOf(err)
	}
	return d.applySecurityIfPresent(path, c.Security)
}

func (d *PosixDispatcher) dispatchSymlink(c vfscall.Symlink) int32 {
	to, rc := d.backing(c.To)
	if rc != 0 {
		return rc
	}
	// From is the link target, stored verbatim (not translated: it may
	// be relative, or point outside the mount on purpose).
	if err := os.Symlink(c.From, to); err != nil {
		return rcOf(err)
	}
	return d.applySecurityIfPresent(to, c.Security)
}

func (d *PosixDispatcher) dispatchLink(c vfscall.Link) int32 {
	from, rc := d.backing(c.From)
	if rc != 0 {
		return rc
	}
	to, rc := d.backing(c.To)
	if rc != 0 {
		return rc
	}
	return rcOf(os.Link(from, to))
}

func (d *PosixDispatcher) dispatchRename(c vfscall.Rename) int32 {
	from, rc := d.backing(c.From)
	if rc != 0 {
		return rc
	}
	to, rc := d.backing(c.To)
	if rc != 0 {
		return rc
	}
	if c.Flags == 0 {
		return rcOf(os.Rename(from, to))
	}
	return rcOf(unix.Renameat2(unix.AT_FDCWD, from, unix.AT_FDCWD, to, int(c.Flags)))
}

func (d *PosixDispatcher) dispatchChmod(c vfscall.Chmod) int32 {
	path, rc := d.backing(c.Path)
	if rc != 0 {
		return rc
	}
	return rcOf(os.Chmod(path, os.FileMode(c.Mode&0o7777)))
}

// dispatchSecurity applies an ownership change independent of Chmod.
// Per spec.md §4.4, a Windows-originated SDDL would be translated back
// through the name table before SetFileSecurity; on a POSIX replica
// only UnixSecurity can be applied directly.
func (d *PosixDispatcher) dispatchSecurity(c vfscall.Security) int32 {
	path, rc := d.backing(c.Path)
	if rc != 0 {
		return rc
	}
	return d.applySecurityIfPresent(path, c.Security)
}

func (d *PosixDispatcher) applySecurityIfPresent(path string, sec vfscall.FileSecurity) int32 {
	if sec == nil {
		return 0
	}
	u, ok := sec.(vfscall.UnixSecurity)
	if !ok {
		return errEINVAL
	}
	return rcOf(unix.Lchown(path, int(u.UID), int(u.GID)))
}

func (d *PosixDispatcher) dispatchTruncate(c vfscall.Truncate) int32 {
	path, rc := d.backing(c.Path)
	if rc != 0 {
		return rc
	}
	return rcOf(os.Truncate(path, c.Size))
}

func (d *PosixDispatcher) dispatchWrite(guestPath string, offset int64, buf []byte) int32 {
	path, rc := d.backing(guestPath)
	if rc != 0 {
		return rc
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return rcOf(err)
	}
	defer f.Close()
	n, err := f.WriteAt(buf, offset)
	if err != nil {
		return rcOf(err)
	}
	return int32(n)
}

// dispatchTruncatingWrite performs the write then truncates to Length,
// per spec.md §4.4: "perform the write, then truncate; return the
// write's result unless truncate fails."
func (d *PosixDispatcher) dispatchTruncatingWrite(c vfscall.TruncatingWrite) int32 {
	writeRC := d.dispatchWrite(c.Write.Path, c.Write.Offset, c.Write.Buf)
	if writeRC < 0 {
		return writeRC
	}
	path, rc := d.backing(c.Write.Path)
	if rc != 0 {
		return rc
	}
	if err := os.Truncate(path, c.Length); err != nil {
		return rcOf(err)
	}
	return writeRC
}

func (d *PosixDispatcher) dispatchFallocate(c vfscall.Fallocate) int32 {
	path, rc := d.backing(c.Path)
	if rc != 0 {
		return rc
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return rcOf(err)
	}
	defer f.Close()
	return rcOf(unix.Fallocate(int(f.Fd()), c.Mode, c.Offset, c.Length))
}

func (d *PosixDispatcher) dispatchSetxattr(c vfscall.Setxattr) int32 {
	path, rc := d.backing(c.Path)
	if rc != 0 {
		return rc
	}
	return rcOf(unix.Lsetxattr(path, c.Name, c.Value, int(c.Flags)))
}

func (d *PosixDispatcher) dispatchRemovexattr(c vfscall.Removexattr) int32 {
	path, rc := d.backing(c.Path)
	if rc != 0 {
		return rc
	}
	return rcOf(unix.Lremovexattr(path, c.Name))
}

// dispatchCreate opens (and if needed creates) a file, per spec.md
// §4.4: "open with O_CREAT|flags; if a uid/gid is present, fchown after
// create; always close the file before returning."
func (d *PosixDispatcher) dispatchCreate(c vfscall.Create) int32 {
	path, rc := d.backing(c.Path)
	if rc != 0 {
		return rc
	}
	f, err := os.OpenFile(path, int(c.Flags)|os.O_CREATE, os.FileMode(c.Mode&0o7777))
	if err != nil {
		return rcOf(err)
	}
	defer f.Close()
	if c.Security != nil {
		if u, ok := c.Security.(vfscall.UnixSecurity); ok {
			if err := f.Chown(int(u.UID), int(u.GID)); err != nil {
				return rcOf(err)
			}
		}
	}
	return 0
}

// dispatchUtimens sets the nanosecond-precision timestamp pair using
// AT_SYMLINK_NOFOLLOW, per spec.md §4.4. Times[0] is the POSIX-unused
// creation slot (index reserved for Windows adapters) and is ignored.
func (d *PosixDispatcher) dispatchUtimens(c vfscall.Utimens) int32 {
	path, rc := d.backing(c.Path)
	if rc != 0 {
		return rc
	}
	ts := []unix.Timespec{
		{Sec: c.Times[1].Sec, Nsec: c.Times[1].Nsec},
		{Sec: c.Times[2].Sec, Nsec: c.Times[2].Nsec},
	}
	return rcOf(unix.UtimesNanoAt(unix.AT_FDCWD, path, ts, unix.AT_SYMLINK_NOFOLLOW))
}

func (d *PosixDispatcher) dispatchFsync(c vfscall.Fsync) int32 {
	path, rc := d.backing(c.Path)
	if rc != 0 {
		return rc
	}
	flags := os.O_RDONLY
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return rcOf(err)
	}
	defer f.Close()
	if c.IsDatasync {
		return rcOf(unix.Fdatasync(int(f.Fd())))
	}
	return rcOf(f.Sync())
}
