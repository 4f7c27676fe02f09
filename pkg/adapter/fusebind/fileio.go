//go:build unix

package fusebind

import (
	"context"
	"os"
	"syscall"

	"github.com/bahusvel/fsyncer/pkg/adapter"
	"github.com/bahusvel/fsyncer/pkg/vfscall"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// FileHandle wraps an open backing-store file descriptor for the
// read/write/fsync/release FUSE callbacks, grounded on the teacher's
// VFSFileHandle (cmd/guest-fused/main.go). Write is the one callback
// that mutates the backing store, so it builds a vfscall.Write and
// drives it through the same engine.PreOp/PostOp sandwich every other
// mutating Node method uses (see Node.handle), the pattern
// memadapter.Adapter.Handle follows for its own vfscall.Write case;
// without it a FUSE write(2) would apply locally but never reach the
// journal, bilog, or any replicated client.
type FileHandle struct {
	file   *os.File
	engine *adapter.Engine
	path   string // guest-absolute path
}

var (
	_ fs.FileReader    = (*FileHandle)(nil)
	_ fs.FileWriter    = (*FileHandle)(nil)
	_ fs.FileFsyncer   = (*FileHandle)(nil)
	_ fs.FileReleaser  = (*FileHandle)(nil)
	_ fs.FileGetattrer = (*FileHandle)(nil)
)

func (h *FileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := h.file.ReadAt(dest, off)
	if err != nil && n == 0 {
		return nil, errnoOfErr(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *FileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	call := vfscall.NewWriteBorrowed(h.path, off, data)
	ref := h.engine.PreOp(call)
	if rc, ok := ref.ShortCircuit(); ok {
		return 0, errnoOf(rc)
	}

	n, err := h.file.WriteAt(data, off)
	rc := int32(n)
	if err != nil {
		rc = -int32(errnoOfErr(err))
	}

	final := h.engine.PostOp(ref, rc)
	if final < 0 {
		return 0, errnoOf(final)
	}
	return uint32(final), 0
}

func (h *FileHandle) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	return errnoOfErr(h.file.Sync())
}

func (h *FileHandle) Release(ctx context.Context) syscall.Errno {
	return errnoOfErr(h.file.Close())
}

func (h *FileHandle) Getattr(ctx context.Context, out *fuse.AttrOut) syscall.Errno {
	info, err := h.file.Stat()
	if err != nil {
		return errnoOfErr(err)
	}
	fillAttr(&out.Attr, info)
	return 0
}
