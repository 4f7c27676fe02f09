package replserver

import (
	"fmt"
	"sync"

	"github.com/bahusvel/fsyncer/pkg/wire"
)

// corkState implements the cork/uncork quiescence protocol (spec.md
// §4.3): a control client (or the server itself, e.g. before a
// checksum pass) corks replication, which broadcasts a Cork(tid) to
// every live non-control client and blocks new HandleOp calls until the
// cork is released by uncork. cork itself returns once every such client
// has replied AckCork or been dropped.
type corkState struct {
	mu      sync.Mutex
	cond    *sync.Cond
	corked  bool
	tid     uint64
	pending map[uint64]bool // client id -> still awaiting AckCork
}

func newCorkState() *corkState {
	cs := &corkState{pending: make(map[uint64]bool)}
	cs.cond = sync.NewCond(&cs.mu)
	return cs
}

// waitWhileCorked blocks HandleOp callers while a cork is in effect.
func (cs *corkState) waitWhileCorked() {
	cs.mu.Lock()
	for cs.corked {
		cs.cond.Wait()
	}
	cs.mu.Unlock()
}

// cork broadcasts Cork to every client returned by liveClients, then
// waits for all of them to reply AckCork (via ack) or be dropped (via
// dropClient). Returns an error if corking is already in progress.
func (cs *corkState) cork(liveClients func() []*Client) error {
	cs.mu.Lock()
	if cs.corked {
		cs.mu.Unlock()
		return fmt.Errorf("replserver: already corked")
	}
	cs.tid++
	tid := cs.tid
	cs.corked = true
	cs.pending = make(map[uint64]bool)
	cs.mu.Unlock()

	clients := liveClients()
	cs.mu.Lock()
	for _, c := range clients {
		if c.Mode() == wire.ModeControl {
			continue
		}
		cs.pending[c.ID()] = true
	}
	cs.mu.Unlock()

	for _, c := range clients {
		if c.Mode() == wire.ModeControl {
			continue
		}
		if err := c.send(wire.Cork{Tid: tid}); err != nil {
			c.markDead()
			cs.dropClient(c.ID())
		}
	}

	cs.mu.Lock()
	for len(cs.pending) > 0 {
		cs.cond.Wait()
	}
	cs.mu.Unlock()
	return nil
}

// uncork releases a cork, waking any blocked HandleOp callers. It only
// releases the local gate; Server.Uncork sends the Uncork message to
// clients before calling it.
func (cs *corkState) uncork() {
	cs.mu.Lock()
	cs.corked = false
	cs.mu.Unlock()
	cs.cond.Broadcast()
}

// ack records that client id has replied AckCork for tid.
func (cs *corkState) ack(id uint64, tid uint64) {
	cs.mu.Lock()
	if tid == cs.tid {
		delete(cs.pending, id)
		if len(cs.pending) == 0 {
			cs.cond.Broadcast()
		}
	}
	cs.mu.Unlock()
}

// dropClient removes id from the pending set, e.g. because the
// connection died mid-cork; without this a dead client would wedge
// cork forever.
func (cs *corkState) dropClient(id uint64) {
	cs.mu.Lock()
	if _, ok := cs.pending[id]; ok {
		delete(cs.pending, id)
		if len(cs.pending) == 0 {
			cs.cond.Broadcast()
		}
	}
	cs.mu.Unlock()
}
