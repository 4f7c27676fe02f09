//go:build unix

package bilog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/bahusvel/fsyncer/pkg/vfscall"
)

// capture reads the pre-mutation state call is about to affect and
// builds the Record that can reverse it, per the per-operation rules in
// spec.md §4.6. A capture failure because the target simply does not
// exist yet is not an error: it is encoded as the "absent" state.
func (e *Engine) capture(call vfscall.Call) (Record, error) {
	switch c := call.(type) {
	case vfscall.Chmod:
		return e.captureChmod(c)
	case vfscall.Security:
		return e.captureSecurity(c)
	case vfscall.Utimens:
		return e.captureUtimens(c)
	case vfscall.Write:
		return e.captureWrite(c.Path, c.Offset, c.Buf)
	case *vfscall.Write:
		return e.captureWrite(c.Path, c.Offset, c.Buf)
	case vfscall.Setxattr:
		return e.captureXattr(c.Path, c.Name, true, c.Value)
	case vfscall.Removexattr:
		return e.captureXattr(c.Path, c.Name, false, nil)
	case vfscall.Mkdir:
		return DirRecord{At: c.Path, Mode: c.Mode}, nil
	case vfscall.Rmdir:
		return e.captureRmdir(c.Path)
	case vfscall.Unlink:
		return e.captureUnlink(c.Path)
	case vfscall.Create:
		return e.captureCreate(c.Path)
	case vfscall.Symlink:
		return FileRecord{At: c.To, Kind: FileKindAbsent}, nil
	case vfscall.Link:
		return FileRecord{At: c.To, Kind: FileKindAbsent}, nil
	case vfscall.Mknod:
		return FileRecord{At: c.Path, Kind: FileKindAbsent}, nil
	case vfscall.Rename:
		return e.captureRename(c.From, c.To)
	default:
		// The remaining variants (Fsync, AllocationSize, Truncate,
		// TruncatingWrite, DiffWrite, Fallocate) get no record: Capture
		// returns a nil Record and a nil error for them.
		return nil, nil
	}
}

func (e *Engine) captureChmod(c vfscall.Chmod) (Record, error) {
	path := e.backing(c.Path)
	p, err := lstatProbe(path)
	if err != nil {
		return nil, err
	}
	return ChmodRecord{At: c.Path, ModeXOR: p.permBits() ^ (c.Mode & 0o7777)}, nil
}

func (e *Engine) captureSecurity(c vfscall.Security) (Record, error) {
	path := e.backing(c.Path)
	p, err := lstatProbe(path)
	if err != nil {
		return nil, err
	}
	if unixSec, ok := c.Security.(vfscall.UnixSecurity); ok {
		return SecurityRecord{
			At:     c.Path,
			UIDXOR: p.uid ^ unixSec.UID,
			GIDXOR: p.gid ^ unixSec.GID,
		}, nil
	}
	// A non-Unix security value (Windows SDDL, or a cross-OS Portable
	// form) has no bitwise inverse on a POSIX backing store; store the
	// prior Unix identity directly so undo can at least restore it.
	return SecurityRecord{
		At:     c.Path,
		Direct: true,
		Before: vfscall.UnixSecurity{UID: p.uid, GID: p.gid},
	}, nil
}

func (e *Engine) captureUtimens(c vfscall.Utimens) (Record, error) {
	path := e.backing(c.Path)
	p, err := lstatProbe(path)
	if err != nil {
		return nil, err
	}
	before := vfscall.Timespec3{
		vfscall.Timespec{},
		{Sec: p.atimeSec, Nsec: p.atimeNs},
		{Sec: p.mtimeSec, Nsec: p.mtimeNs},
	}
	var xorTimes vfscall.Timespec3
	for i := range xorTimes {
		xorTimes[i] = vfscall.Timespec{
			Sec:  before[i].Sec ^ c.Times[i].Sec,
			Nsec: before[i].Nsec ^ c.Times[i].Nsec,
		}
	}
	return UtimensRecord{At: c.Path, TimesXOR: xorTimes}, nil
}

func (e *Engine) captureWrite(guestPath string, offset int64, newBuf []byte) (Record, error) {
	path := e.backing(guestPath)
	p, err := lstatProbe(path)
	if err != nil {
		return nil, err
	}

	old := make([]byte, len(newBuf))
	if p.exists {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		n, err := f.ReadAt(old, offset)
		if err != nil && err != io.EOF {
			return nil, err
		}
		for i := n; i < len(old); i++ {
			old[i] = 0
		}
	}

	oldSize := p.size
	newSize := oldSize
	if end := offset + int64(len(newBuf)); end > newSize {
		newSize = end
	}

	return WriteRecord{
		At:      guestPath,
		Offset:  offset,
		SizeXOR: oldSize ^ newSize,
		Buf:     xorBytes(old, newBuf),
	}, nil
}

// captureXattr reads the pre-mutation value of name and pairs it with
// the call's incoming new value (newHas/newValue), XORing the two the
// same way captureWrite XORs old and new file bytes, so a single
// record can reverse either a Setxattr or a Removexattr.
func (e *Engine) captureXattr(guestPath, name string, newHas bool, newValue []byte) (Record, error) {
	path := e.backing(guestPath)
	old, oldHas, err := getXattr(path, name)
	if err != nil {
		return nil, err
	}
	return XattrRecord{
		At:       guestPath,
		Name:     name,
		HasValue: oldHas != newHas,
		SizeXOR:  len(old) ^ len(newValue),
		Value:    xorBytes(old, newValue),
	}, nil
}

func (e *Engine) captureRmdir(guestPath string) (Record, error) {
	path := e.backing(guestPath)
	p, err := lstatProbe(path)
	if err != nil {
		return nil, err
	}
	return DirRecord{At: guestPath, Mode: p.permBits()}, nil
}

func (e *Engine) captureUnlink(guestPath string) (Record, error) {
	path := e.backing(guestPath)
	p, err := lstatProbe(path)
	if err != nil {
		return nil, err
	}
	if !p.exists {
		return FileRecord{At: guestPath, Kind: FileKindAbsent}, nil
	}

	switch {
	case p.isSymlink():
		target, err := os.Readlink(path)
		if err != nil {
			return nil, err
		}
		return FileRecord{At: guestPath, Kind: FileKindSymlink, Target: target}, nil

	case p.isRegular() && p.nlink > 1:
		peer, err := findHardlinkPeer(filepath.Dir(path), path)
		if err != nil {
			return nil, err
		}
		return FileRecord{At: guestPath, Kind: FileKindHardlink, Target: peer, Mode: p.permBits()}, nil

	case p.isRegular():
		// Last link: preserve the bytes in the hidden trash directory
		// before the caller performs the actual unlink, so undo can
		// re-link the preserved inode back in (spec.md §4.6 FileStore).
		token, err := e.store.Preserve(path)
		if err != nil {
			return nil, err
		}
		return FileRecord{At: guestPath, Kind: FileKindRegular, Mode: p.permBits(), StoreToken: token}, nil

	default:
		// Device node, FIFO, or socket: cheap to recreate from mode+rdev.
		return FileRecord{At: guestPath, Kind: FileKindNode, Mode: p.mode, Rdev: p.rdev}, nil
	}
}

func (e *Engine) captureCreate(guestPath string) (Record, error) {
	path := e.backing(guestPath)
	p, err := lstatProbe(path)
	if err != nil {
		return nil, err
	}
	if !p.exists {
		return FileRecord{At: guestPath, Kind: FileKindAbsent}, nil
	}
	// Create targeting an existing path (O_CREAT without O_EXCL) can
	// truncate content; reversing that would need the same byte
	// preservation Unlink gets. Out of scope here: only the mode is
	// recorded, which is enough to restore permissions but not content.
	return FileRecord{At: guestPath, Kind: FileKindRegular, Mode: p.permBits()}, nil
}

func (e *Engine) captureRename(from, to string) (Record, error) {
	p, err := lstatProbe(e.backing(from))
	if err != nil {
		return nil, err
	}
	return RenameRecord{From: from, To: to, FromExists: p.exists}, nil
}

// findHardlinkPeer scans dir for another entry sharing exclude's inode,
// implementing spec.md's "external hardlink scan chooses a peer".
func findHardlinkPeer(dir, exclude string) (string, error) {
	excludeInfo, err := os.Lstat(exclude)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		candidate := filepath.Join(dir, entry.Name())
		if candidate == exclude {
			continue
		}
		info, err := os.Lstat(candidate)
		if err != nil {
			continue
		}
		if os.SameFile(excludeInfo, info) {
			return candidate, nil
		}
	}
	return "", os.ErrNotExist
}
