// Package adapter implements the core/adapter boundary described in
// spec.md §4.8: every VFS adapter (FUSE, Dokan, or the in-memory test
// double in memadapter) must sandwich its backing-store syscall between
// a PreOp and a PostOp call, letting the core own capture, journaling,
// fan-out, and cork serialization while the adapter itself stays a thin
// syscall-and-error-mapping shim.
package adapter

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/bahusvel/fsyncer/pkg/bilog"
	"github.com/bahusvel/fsyncer/pkg/journal"
	"github.com/bahusvel/fsyncer/pkg/replserver"
	"github.com/bahusvel/fsyncer/pkg/vfscall"
)

// OpRef is the token an adapter carries from PreOp to PostOp for one
// operation. Adapters must not inspect or mutate its fields; spec.md
// §4.8 reserves that privilege to the core.
type OpRef struct {
	call         vfscall.Call
	record       bilog.Record
	shortCircuit bool
	rc           int32
}

// ShortCircuit reports whether PreOp decided the operation must not
// reach the backing store. When true, the adapter must return rc
// immediately and must not call PostOp.
func (r OpRef) ShortCircuit() (rc int32, ok bool) {
	if !r.shortCircuit {
		return 0, false
	}
	return r.rc, true
}

// Core is implemented by Engine; adapters depend on this interface so
// tests can substitute a fake.
type Core interface {
	PreOp(call vfscall.Call) OpRef
	PostOp(ref OpRef, syscallResult int32) int32
}

// Engine is the concrete core described by spec.md §4.8: it captures
// bilog state before the syscall, then journals and replicates after,
// serializing the whole sequence across every concurrent adapter thread
// (per spec.md §5: "the core is responsible for all serialization").
type Engine struct {
	bilog   *bilog.Engine
	journal *journal.Store
	server  *replserver.Server

	mu     sync.Mutex
	closed atomic.Bool
}

// NewEngine constructs an Engine. journalStore and server may be nil
// (e.g. a journal-only or replication-only deployment); bilogEngine may
// be nil if no bidirectional log is kept.
func NewEngine(bilogEngine *bilog.Engine, journalStore *journal.Store, server *replserver.Server) *Engine {
	return &Engine{bilog: bilogEngine, journal: journalStore, server: server}
}

// PreOp implements spec.md §4.8 step 2. It acquires the engine's
// serialization lock, held until PostOp releases it, and captures
// pre-mutation bilog state for call. If the engine has been shut down,
// PreOp returns a short-circuit OpRef without ever taking the lock;
// the adapter must skip the syscall and PostOp entirely in that case.
func (e *Engine) PreOp(call vfscall.Call) OpRef {
	if e.closed.Load() {
		return OpRef{call: call, shortCircuit: true, rc: -errEROFS}
	}
	e.mu.Lock()

	var rec bilog.Record
	if e.bilog != nil {
		if r, err := e.bilog.Capture(call); err == nil {
			rec = r
		}
	}
	return OpRef{call: call, record: rec}
}

// PostOp implements spec.md §4.8 step 4: on success it appends to the
// journal and fans the call out to replicas, then releases the lock
// PreOp acquired. On failure (syscallResult < 0) it skips journaling
// and fan-out, matching the journal/bilog's own "only on success" rule,
// but still releases the lock.
func (e *Engine) PostOp(ref OpRef, syscallResult int32) int32 {
	defer e.mu.Unlock()

	if syscallResult < 0 {
		return syscallResult
	}

	if e.journal != nil && ref.record != nil {
		data, err := bilog.Encode(ref.record)
		if err == nil {
			_, err = e.journal.Append(data)
		}
		if err != nil {
			if e.bilog != nil {
				// spec.md §7: "fatal if append fails while a bilog
				// journal is configured (the bilog invariant is
				// broken)". A partially-written bilog journal can no
				// longer be trusted to reverse later entries, so this
				// must not be allowed to continue as if nothing
				// happened.
				log.Panicf("[adapter] fatal: bilog journal append failed: %v", err)
			}
			log.Printf("[adapter] journal append failed: %v", err)
		}
	}

	if e.server != nil {
		return e.server.HandleOp(ref.call, syscallResult)
	}
	return syscallResult
}

// Shutdown causes every future PreOp to short-circuit, draining new
// traffic without blocking on the serialization lock. In-flight
// operations already past PreOp complete normally.
func (e *Engine) Shutdown() { e.closed.Store(true) }

const errEROFS int32 = 30 // matches unix.EROFS; kept as a plain constant so this file has no platform build tag
