package bilog

import (
	"path/filepath"
	"strings"

	"github.com/bahusvel/fsyncer/pkg/vfscall"
)

// Engine captures and replays bilog records against a backing root. The VFS
// adapter's PreOp hook calls Capture whenever a bilog Engine is configured;
// the journal replay command calls Apply (spec.md §4.6, §4.8).
type Engine struct {
	root  string
	store *FileStore
}

// NewEngine constructs an Engine rooted at the same backing directory the
// VFS adapter serves. A nil store gets a FileStore of its own rooted at
// the same directory.
func NewEngine(root string, store *FileStore) *Engine {
	if store == nil {
		store = NewFileStore(root)
	}
	return &Engine{root: root, store: store}
}

// Store returns the engine's FileStore.
func (e *Engine) Store() *FileStore { return e.store }

func (e *Engine) backing(guestPath string) string {
	clean := filepath.Clean("/" + strings.TrimPrefix(guestPath, "/"))
	return filepath.Join(e.root, strings.TrimPrefix(clean, "/"))
}

// Capture reads the filesystem state a call is about to affect and
// returns the Record that reproduces-or-reverses it. It must be called
// before the call's backing-store syscall(s) execute.
func (e *Engine) Capture(call vfscall.Call) (Record, error) {
	return e.capture(call)
}

// Apply replays (or reverses, depending on current state) rec against the
// engine's backing root.
func (e *Engine) Apply(rec Record) error {
	return e.apply(rec)
}
