package replserver

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/bahusvel/fsyncer/pkg/wire"
	"golang.org/x/time/rate"
)

// status is a Client's liveness state (spec.md §4.3).
type status int32

const (
	statusAlive status = iota
	statusDead
)

// slot is a response slot for one outstanding sync call, parked under its
// tid until the reader goroutine observes the matching Ack, or the client
// is dropped (spec.md's per-thread ack parking).
type slot struct {
	ch chan int32
}

// Client is the server-side record of one connected replica (spec.md
// §4.3's Client entity): its writer chain, parked acks, and liveness.
type Client struct {
	id   uint64
	mode wire.Mode

	mu        sync.Mutex
	conn      net.Conn
	writer    io.Writer
	streamW   io.WriteCloser // non-nil when a stream compressor wraps conn
	blockComp wire.BlockCompressor
	limiter   *rate.Limiter
	parked    map[uint64]*slot
	st        status
}

func newClient(id uint64, mode wire.Mode, conn net.Conn, streamW io.WriteCloser, writer io.Writer, blockComp wire.BlockCompressor, limiter *rate.Limiter) *Client {
	return &Client{
		id:        id,
		mode:      mode,
		conn:      conn,
		writer:    writer,
		streamW:   streamW,
		blockComp: blockComp,
		limiter:   limiter,
		parked:    make(map[uint64]*slot),
		st:        statusAlive,
	}
}

// ID returns the client's server-assigned identifier.
func (c *Client) ID() uint64 { return c.id }

// Mode returns the client's negotiated delivery mode.
func (c *Client) Mode() wire.Mode { return c.mode }

// Alive reports whether the client is still considered live.
func (c *Client) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st == statusAlive
}

// send writes msg to the client, applying the rate limiter and block
// compressor. Callers must not hold c.mu.
func (c *Client) send(msg wire.Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(msg)
}

func (c *Client) sendLocked(msg wire.Msg) error {
	if c.st != statusAlive {
		return io.ErrClosedPipe
	}
	data, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	if c.blockComp != nil {
		data, err = c.blockComp.Compress(data)
		if err != nil {
			return err
		}
	}
	if c.limiter != nil {
		if err := c.limiter.WaitN(context.Background(), len(data)); err != nil {
			return err
		}
	}
	if err := wire.WriteFrameBytes(c.writer, data); err != nil {
		c.markDeadLocked()
		return err
	}
	return nil
}

// park allocates a response slot for tid and returns the channel to wait
// on. The caller must call unpark once done (success or timeout) to avoid
// leaking the map entry.
func (c *Client) park(tid uint64) chan int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan int32, 1)
	c.parked[tid] = &slot{ch: ch}
	return ch
}

func (c *Client) unpark(tid uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.parked, tid)
}

// signal delivers retcode to the slot parked under tid, if any.
func (c *Client) signal(tid uint64, retcode int32) {
	c.mu.Lock()
	s, ok := c.parked[tid]
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case s.ch <- retcode:
	default:
	}
}

// markDead flags the client DEAD and signals every parked slot with -1 so
// no sender deadlocks (spec.md §4.3's dropped-client rule).
func (c *Client) markDead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markDeadLocked()
}

func (c *Client) markDeadLocked() {
	if c.st == statusDead {
		return
	}
	c.st = statusDead
	for tid, s := range c.parked {
		select {
		case s.ch <- -1:
		default:
		}
		delete(c.parked, tid)
	}
	if c.streamW != nil {
		c.streamW.Close()
	}
	c.conn.Close()
}
