package replclient

import (
	"net"
	"testing"
	"time"

	"github.com/bahusvel/fsyncer/pkg/vfscall"
	"github.com/bahusvel/fsyncer/pkg/wire"
	"github.com/stretchr/testify/require"
)

// recordingDispatcher remembers every call it was asked to dispatch and
// returns a fixed return code.
type recordingDispatcher struct {
	calls []vfscall.Call
	rc    int32
}

func (r *recordingDispatcher) Dispatch(call vfscall.Call) int32 {
	r.calls = append(r.calls, call)
	return r.rc
}

func serverSideAccept(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	conn, err := ln.Accept()
	require.NoError(t, err)
	_, err = wire.ReadFrame(conn, 0) // InitMsg
	require.NoError(t, err)
	return conn
}

func TestRunAsyncOpDispatchesAndDiscardsResult(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() { accepted <- serverSideAccept(t, ln) }()

	disp := &recordingDispatcher{rc: -1}
	cli, err := Connect(Config{Addr: ln.Addr().String(), Mode: wire.ModeAsync, DontCheck: true}, disp)
	require.NoError(t, err)
	defer cli.Close()

	conn := <-accepted
	defer conn.Close()

	require.NoError(t, wire.WriteFrame(conn, wire.AsyncOp{Call: vfscall.Chmod{Path: "/a", Mode: 0o644}}))
	go cli.Run()

	require.Eventually(t, func() bool { return len(disp.calls) == 1 }, time.Second, 10*time.Millisecond)
	require.Equal(t, vfscall.Chmod{Path: "/a", Mode: 0o644}, disp.calls[0])
}

func TestRunSyncOpAcksWithDispatchResult(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() { accepted <- serverSideAccept(t, ln) }()

	disp := &recordingDispatcher{rc: -7}
	cli, err := Connect(Config{Addr: ln.Addr().String(), Mode: wire.ModeSync, DontCheck: true}, disp)
	require.NoError(t, err)
	defer cli.Close()

	conn := <-accepted
	defer conn.Close()

	go cli.Run()
	require.NoError(t, wire.WriteFrame(conn, wire.SyncOp{Call: vfscall.Unlink{Path: "/a"}, Tid: 42}))

	msg, err := wire.ReadFrame(conn, 0)
	require.NoError(t, err)
	ack, ok := msg.(wire.Ack)
	require.True(t, ok)
	require.Equal(t, int32(-7), ack.Retcode)
	require.Equal(t, uint64(42), ack.Tid)
}

func TestRunSemisyncAcksBeforeDispatching(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() { accepted <- serverSideAccept(t, ln) }()

	disp := &recordingDispatcher{rc: -7}
	cli, err := Connect(Config{Addr: ln.Addr().String(), Mode: wire.ModeSemisync, DontCheck: true}, disp)
	require.NoError(t, err)
	defer cli.Close()

	conn := <-accepted
	defer conn.Close()

	go cli.Run()
	require.NoError(t, wire.WriteFrame(conn, wire.SyncOp{Call: vfscall.Unlink{Path: "/a"}, Tid: 1}))

	msg, err := wire.ReadFrame(conn, 0)
	require.NoError(t, err)
	ack, ok := msg.(wire.Ack)
	require.True(t, ok)
	require.Equal(t, int32(0), ack.Retcode) // SEMISYNC acks receipt, not completion
}

func TestRunCorkRepliesAckCork(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() { accepted <- serverSideAccept(t, ln) }()

	disp := &recordingDispatcher{}
	cli, err := Connect(Config{Addr: ln.Addr().String(), Mode: wire.ModeAsync, DontCheck: true}, disp)
	require.NoError(t, err)
	defer cli.Close()

	conn := <-accepted
	defer conn.Close()

	go cli.Run()
	require.NoError(t, wire.WriteFrame(conn, wire.Cork{Tid: 9}))

	msg, err := wire.ReadFrame(conn, 0)
	require.NoError(t, err)
	ackCork, ok := msg.(wire.AckCork)
	require.True(t, ok)
	require.Equal(t, uint64(9), ackCork.Tid)
}
