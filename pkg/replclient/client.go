// Package replclient implements the replica side of the replication
// fabric (spec.md §4.4): connect/handshake, the read-dispatch-ack main
// loop, and a pluggable Dispatcher contract with a POSIX backing-store
// implementation.
package replclient

import (
	"fmt"
	"io"
	"net"

	"github.com/bahusvel/fsyncer/pkg/mdhash"
	"github.com/bahusvel/fsyncer/pkg/vfscall"
	"github.com/bahusvel/fsyncer/pkg/wire"
)

// Dispatcher maps a single VFSCall to its equivalent backing-store
// operation (spec.md §4.4's "single function dispatch(call, backing_root)
// -> i32"), returning a negative errno-style return code on failure.
type Dispatcher interface {
	Dispatch(call vfscall.Call) int32
}

// Config configures Connect.
type Config struct {
	Addr       string
	Mode       wire.Mode
	MountPath  string // hashed at handshake unless DontCheck
	DontCheck  bool
	Compress   wire.CompressBit
	IOLimitBps uint64

	// RecvBufferBytes sets the socket's receive buffer, matching
	// spec.md §4.4's "set large recv buffer" step. Zero leaves the OS
	// default.
	RecvBufferBytes int

	// MaxFrameBytes bounds an inbound frame's declared length; 0 selects
	// wire.MaxInlineMessage.
	MaxFrameBytes uint32
}

// Client is a connected replica: the negotiated stream/block
// (de)compressors and the live connection.
type Client struct {
	conn       net.Conn
	reader     io.ReadCloser
	blockComp  wire.BlockCompressor
	dispatcher Dispatcher
	mode       wire.Mode
	maxFrame   uint32
}

// Connect dials cfg.Addr, performs the InitMsg handshake, and returns a
// Client ready for Run.
func Connect(cfg Config, dispatcher Dispatcher) (*Client, error) {
	conn, err := net.Dial("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("replclient: dial %s: %w", cfg.Addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok && cfg.RecvBufferBytes > 0 {
		_ = tc.SetReadBuffer(cfg.RecvBufferBytes)
	}

	var hash uint64
	if cfg.Mode != wire.ModeControl && !cfg.DontCheck {
		hash, err = mdhash.Hash(cfg.MountPath)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("replclient: hashing mount path: %w", err)
		}
	}

	init := wire.InitMsg{
		Mode:       cfg.Mode,
		DstHash:    hash,
		Compress:   cfg.Compress,
		IOLimitBps: cfg.IOLimitBps,
	}
	if err := wire.WriteFrame(conn, init); err != nil {
		conn.Close()
		return nil, fmt.Errorf("replclient: sending InitMsg: %w", err)
	}

	streamComp, err := wire.NewStreamCompressor(cfg.Compress)
	if err != nil {
		conn.Close()
		return nil, err
	}
	blockComp, err := wire.NewBlockCompressor(cfg.Compress)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Client{
		conn:       conn,
		reader:     streamComp.WrapReader(conn),
		blockComp:  blockComp,
		dispatcher: dispatcher,
		mode:       cfg.Mode,
		maxFrame:   cfg.MaxFrameBytes,
	}, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.reader.Close()
	return c.conn.Close()
}

// Run executes the main loop (spec.md §4.4) until a read error
// terminates it, which is returned to the caller (io.EOF on a clean
// server-initiated close).
func (c *Client) Run() error {
	for {
		data, err := wire.ReadFrameBytes(c.reader, c.maxFrame)
		if err != nil {
			return err
		}
		if c.blockComp != nil {
			data, err = c.blockComp.Decompress(data)
			if err != nil {
				return fmt.Errorf("replclient: decompressing frame: %w", err)
			}
		}
		msg, err := wire.Decode(data)
		if err != nil {
			return fmt.Errorf("replclient: decoding message: %w", err)
		}
		if err := c.handle(msg); err != nil {
			return err
		}
	}
}

func (c *Client) handle(msg wire.Msg) error {
	switch m := msg.(type) {
	case wire.AsyncOp:
		c.dispatcher.Dispatch(m.Call)
	case wire.SyncOp:
		return c.handleSyncOp(m)
	case wire.Cork:
		return c.send(wire.AckCork{Tid: m.Tid})
	case wire.Uncork, wire.NOP:
		// no-op
	default:
		return fmt.Errorf("replclient: unexpected message %T", m)
	}
	return nil
}

// handleSyncOp implements spec.md §4.4's SEMISYNC-vs-SYNC ack-ordering
// distinction. SyncOp is used by both modes; only the client's own
// negotiated Mode (set at Connect, known only to it and the server)
// tells it which contract to honor: SEMISYNC emits Ack(0, tid) before
// dispatching, so the server's wait only measures receipt latency;
// SYNC dispatches first and reports the true return code, so the
// server's wait measures completion.
func (c *Client) handleSyncOp(m wire.SyncOp) error {
	if c.mode == wire.ModeSemisync {
		if err := c.send(wire.Ack{Retcode: 0, Tid: m.Tid}); err != nil {
			return err
		}
		c.dispatcher.Dispatch(m.Call)
		return nil
	}
	rc := c.dispatcher.Dispatch(m.Call)
	return c.send(wire.Ack{Retcode: rc, Tid: m.Tid})
}

func (c *Client) send(msg wire.Msg) error {
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
	return wire.WriteFrameBytes(c.conn, data)
}
