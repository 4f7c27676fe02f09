package replserver

import (
	"time"

	"github.com/bahusvel/fsyncer/pkg/wire"
)

// flushLoop periodically nudges ASYNC/FLUSHSYNC clients with a NOP so a
// client-side stream compressor that buffers internally still makes
// forward progress even when no real traffic arrives (spec.md §6's
// flush thread).
func (s *Server) flushLoop() {
	defer s.flushWG.Done()
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.flushStop:
			return
		case <-ticker.C:
			s.flushOnce()
		}
	}
}

func (s *Server) flushOnce() {
	for _, c := range s.liveClients() {
		switch c.Mode() {
		case wire.ModeAsync, wire.ModeFlushsync:
			s.flushClient(c)
		}
	}
}

// flushClient sends a single client a NOP and then flushes its stream
// compressor, if that compressor buffers internally, so whatever it is
// holding reaches the wire. Shared by
// the periodic flushLoop and HandleOp's per-fsync flush for FLUSHSYNC
// clients (spec.md §4.3: "periodic flush is forced on every fsync-class
// operation").
func (s *Server) flushClient(c *Client) {
	if err := c.send(wire.NOP{}); err != nil {
		c.markDead()
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.streamW.(interface{ Flush() error }); ok && c.st == statusAlive {
		if err := f.Flush(); err != nil {
			c.markDeadLocked()
		}
	}
}
