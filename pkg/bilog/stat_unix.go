//go:build unix

package bilog

import "golang.org/x/sys/unix"

// probe is a minimal, platform-normalized stat(2) result used by capture
// and apply to decide direction and recover pre-mutation fields.
type probe struct {
	exists             bool
	mode               uint32
	uid, gid           uint32
	rdev               uint64
	nlink              uint64
	size               int64
	atimeSec, atimeNs  int64
	mtimeSec, mtimeNs  int64
}

func lstatProbe(path string) (probe, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		if err == unix.ENOENT {
			return probe{}, nil
		}
		return probe{}, err
	}
	return probe{
		exists:   true,
		mode:     st.Mode,
		uid:      st.Uid,
		gid:      st.Gid,
		rdev:     uint64(st.Rdev),
		nlink:    uint64(st.Nlink),
		size:     st.Size,
		atimeSec: int64(st.Atim.Sec),
		atimeNs:  int64(st.Atim.Nsec),
		mtimeSec: int64(st.Mtim.Sec),
		mtimeNs:  int64(st.Mtim.Nsec),
	}, nil
}

func (p probe) isDir() bool     { return p.mode&unix.S_IFMT == unix.S_IFDIR }
func (p probe) isSymlink() bool { return p.mode&unix.S_IFMT == unix.S_IFLNK }
func (p probe) isRegular() bool { return p.mode&unix.S_IFMT == unix.S_IFREG }
func (p probe) permBits() uint32 { return p.mode & 0o7777 }
