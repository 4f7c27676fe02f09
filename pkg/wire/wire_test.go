package wire

import (
	"bytes"
	"testing"

	"github.com/bahusvel/fsyncer/pkg/vfscall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripSimpleMessages(t *testing.T) {
	cases := []Msg{
		InitMsg{Mode: ModeSync, DstHash: 42, Compress: CompressStreamZSTD, IOLimitBps: 1000},
		Ack{Retcode: -2, Tid: 7},
		Cork{Tid: 1},
		AckCork{Tid: 1},
		Uncork{},
		NOP{},
	}
	for _, c := range cases {
		data, err := Encode(c)
		require.NoError(t, err)
		got, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestRoundTripAsyncOpCarriesCall(t *testing.T) {
	msg := AsyncOp{Call: vfscall.Chmod{Path: "/a", Mode: 0o644}}
	data, err := Encode(msg)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	asyncOp, ok := got.(AsyncOp)
	require.True(t, ok)
	assert.Equal(t, vfscall.Chmod{Path: "/a", Mode: 0o644}, asyncOp.Call)
}

func TestRoundTripSyncOpPreservesTid(t *testing.T) {
	msg := SyncOp{Call: vfscall.Unlink{Path: "/a"}, Tid: 99}
	data, err := Encode(msg)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	syncOp, ok := got.(SyncOp)
	require.True(t, ok)
	assert.Equal(t, uint64(99), syncOp.Tid)
	assert.Equal(t, vfscall.Unlink{Path: "/a"}, syncOp.Call)
}

func TestWriteFrameReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, Ack{Retcode: 0, Tid: 5}))

	got, err := ReadFrame(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, Ack{Retcode: 0, Tid: 5}, got)
}

func TestReadFrameRejectsOversizeLength(t *testing.T) {
	var buf bytes.Buffer
	header := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	buf.Write(header)
	_, err := ReadFrame(&buf, MaxInlineMessage)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestBlockCompressorRoundTrip(t *testing.T) {
	for _, bits := range []CompressBit{0, CompressRTDsscZSTD, CompressRTDsscChunked} {
		bc, err := NewBlockCompressor(bits)
		require.NoError(t, err)
		payload := bytes.Repeat([]byte("hello fsyncer "), 50)
		compressed, err := bc.Compress(payload)
		require.NoError(t, err)
		decompressed, err := bc.Decompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, payload, decompressed)
	}
}

func TestStreamCompressorRoundTrip(t *testing.T) {
	for _, bits := range []CompressBit{0, CompressStreamZSTD, CompressStreamLZ4} {
		sc, err := NewStreamCompressor(bits)
		require.NoError(t, err)

		var buf bytes.Buffer
		w := sc.WrapWriter(&buf)
		_, err = w.Write([]byte("payload"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		r := sc.WrapReader(&buf)
		out := make([]byte, 7)
		_, err = r.Read(out)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(out))
		require.NoError(t, r.Close())
	}
}
