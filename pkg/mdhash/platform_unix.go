//go:build unix

package mdhash

import (
	"encoding/binary"
	"hash"
	"os"
	"syscall"
)

// writePlatformFields feeds the POSIX ownership fields spec.md §4.7
// requires (uid, gid) into h. Directories and symlinks contribute
// ownership too; only size is skipped for directories (handled by the
// caller). info.Sys() on unix returns *syscall.Stat_t, matching the
// teacher's inodeFromSys type switch in pkg/vfs/server.go.
func writePlatformFields(h hash.Hash64, info os.FileInfo) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], st.Uid)
	binary.LittleEndian.PutUint32(buf[4:], st.Gid)
	_, _ = h.Write(buf[:])
}
