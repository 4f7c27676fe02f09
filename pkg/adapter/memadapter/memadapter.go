// Package memadapter is a reference VFS adapter (spec.md §4.8) backed
// by an in-memory filesystem, grounded on the teacher's
// pkg/vfs.MemoryProvider. It exists to exercise the PreOp/PostOp
// contract end-to-end (journal + bilog + replication fan-out) without
// depending on a real kernel FUSE/Dokan mount, which makes it the
// vehicle of choice for pkg/adapter's own tests.
package memadapter

import (
	"sync"
	"time"

	"github.com/bahusvel/fsyncer/pkg/adapter"
	"github.com/bahusvel/fsyncer/pkg/vfscall"
)

type entry struct {
	isDir bool
	mode  uint32
	data  []byte
	mtime time.Time
}

// Adapter is the reference adapter: an in-memory directory tree plus
// the adapter.Core sandwich spec.md §4.8 requires around every mutating
// call.
type Adapter struct {
	core adapter.Core

	mu      sync.Mutex
	entries map[string]*entry
}

// New constructs an Adapter over core, seeded with an empty root
// directory.
func New(core adapter.Core) *Adapter {
	return &Adapter{
		core:    core,
		entries: map[string]*entry{"/": {isDir: true, mode: 0o755, mtime: time.Now()}},
	}
}

// Handle drives one VFSCall through the full adapter contract: PreOp,
// the in-memory syscall equivalent, then PostOp -- unless PreOp
// short-circuits, in which case the backing store is never touched.
func (a *Adapter) Handle(call vfscall.Call) int32 {
	ref := a.core.PreOp(call)
	if rc, ok := ref.ShortCircuit(); ok {
		return rc
	}
	result := a.perform(call)
	return a.core.PostOp(ref, result)
}

func (a *Adapter) perform(call vfscall.Call) int32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch c := call.(type) {
	case vfscall.Mkdir:
		if _, exists := a.entries[c.Path]; exists {
			return errEEXIST
		}
		a.entries[c.Path] = &entry{isDir: true, mode: c.Mode, mtime: time.Now()}
		return 0
	case vfscall.Rmdir:
		e, ok := a.entries[c.Path]
		if !ok {
			return errENOENT
		}
		if !e.isDir {
			return errENOTDIR
		}
		delete(a.entries, c.Path)
		return 0
	case vfscall.Create:
		a.entries[c.Path] = &entry{mode: c.Mode, mtime: time.Now()}
		return 0
	case vfscall.Unlink:
		if _, ok := a.entries[c.Path]; !ok {
			return errENOENT
		}
		delete(a.entries, c.Path)
		return 0
	case vfscall.Write:
		e, ok := a.entries[c.Path]
		if !ok {
			return errENOENT
		}
		end := c.Offset + int64(len(c.Buf))
		if int64(len(e.data)) < end {
			grown := make([]byte, end)
			copy(grown, e.data)
			e.data = grown
		}
		copy(e.data[c.Offset:end], c.Buf)
		e.mtime = time.Now()
		return int32(len(c.Buf))
	case vfscall.Chmod:
		e, ok := a.entries[c.Path]
		if !ok {
			return errENOENT
		}
		e.mode = c.Mode
		return 0
	case vfscall.Rename:
		e, ok := a.entries[c.From]
		if !ok {
			return errENOENT
		}
		delete(a.entries, c.From)
		a.entries[c.To] = e
		return 0
	default:
		return errENOSYS
	}
}

// Negative-errno constants matching Linux values, used by this
// in-memory adapter the same way a real POSIX adapter would map its
// syscall failures (see pkg/replclient's rcOf for the real-syscall
// equivalent).
const (
	errENOENT  int32 = -2
	errENOTDIR int32 = -20
	errEEXIST  int32 = -17
	errENOSYS  int32 = -38
)
