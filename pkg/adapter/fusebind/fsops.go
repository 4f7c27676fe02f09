//go:build unix

package fusebind

import (
	"errors"
	"os"
	"sort"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// errnoOfErr maps a Go error from a backing-store os.* call onto a
// syscall.Errno, the same unwrap pattern pkg/replclient's rcOf uses for
// the wire-level negative-errno convention.
func errnoOfErr(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EIO
}

// statInto lstats backingPath and fills out, mirroring the teacher's
// fillAttr but sourced from a real local stat instead of a value
// carried over the wire.
func statInto(backingPath string, out *fuse.Attr) syscall.Errno {
	if backingPath == "" {
		return syscall.EINVAL
	}
	info, err := os.Lstat(backingPath)
	if err != nil {
		return errnoOfErr(err)
	}
	fillAttr(out, info)
	return 0
}

// fillAttr mirrors cmd/guest-fused/main.go's fillAttr, generalized from
// a wire-carried VFSStat to a real os.FileInfo and extended with the
// uid/gid/symlink bits a genuinely local mount needs to expose.
func fillAttr(attr *fuse.Attr, info os.FileInfo) {
	attr.Size = uint64(info.Size())
	mtime := info.ModTime()
	attr.Mtime = uint64(mtime.Unix())
	attr.Ctime = attr.Mtime
	attr.Atime = attr.Mtime
	attr.Blksize = 4096
	attr.Blocks = (attr.Size + 511) / 512
	attr.Mode = uint32(info.Mode().Perm())
	switch {
	case info.IsDir():
		attr.Mode |= syscall.S_IFDIR
		attr.Nlink = 2
	case info.Mode()&os.ModeSymlink != 0:
		attr.Mode |= syscall.S_IFLNK
		attr.Nlink = 1
	default:
		attr.Mode |= syscall.S_IFREG
		attr.Nlink = 1
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		attr.Uid = st.Uid
		attr.Gid = st.Gid
	}
}

// readDir lists a directory's entries, sorted for deterministic
// readdir output (matching pkg/mdhash's sorted-walk convention).
func readDir(backingPath string) ([]fuse.DirEntry, syscall.Errno) {
	if backingPath == "" {
		return nil, syscall.EINVAL
	}
	dirents, err := os.ReadDir(backingPath)
	if err != nil {
		return nil, errnoOfErr(err)
	}
	sort.Slice(dirents, func(i, j int) bool { return dirents[i].Name() < dirents[j].Name() })

	out := make([]fuse.DirEntry, len(dirents))
	for i, d := range dirents {
		mode := uint32(syscall.S_IFREG)
		if d.IsDir() {
			mode = syscall.S_IFDIR
		}
		out[i] = fuse.DirEntry{Name: d.Name(), Mode: mode}
	}
	return out, 0
}

// openBacking opens backingPath for the given FUSE flags.
func openBacking(backingPath string, flags int) (*os.File, syscall.Errno) {
	if backingPath == "" {
		return nil, syscall.EINVAL
	}
	f, err := os.OpenFile(backingPath, flags, 0)
	if err != nil {
		return nil, errnoOfErr(err)
	}
	return f, 0
}
