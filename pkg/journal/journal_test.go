package journal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, size uint64) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.bin")
	s, err := Create(path, size, TypeForward, false)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndReadForward(t *testing.T) {
	s := newTestStore(t, BlockSize)

	payloads := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	var ids []uint32
	for _, p := range payloads {
		id, err := s.Append(p)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.Equal(t, []uint32{0, 1, 2}, ids)

	it := s.ReadForward()
	for i, want := range payloads {
		entry, ok, err := it.Next()
		require.NoError(t, err)
		require.True(t, ok, "entry %d", i)
		assert.Equal(t, ids[i], entry.TransID)
		assert.True(t, bytes.Equal(want, entry.Payload))
	}
	_, ok, err := it.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadReverseYieldsNewestFirst(t *testing.T) {
	s := newTestStore(t, BlockSize)

	for i := 0; i < 10; i++ {
		_, err := s.Append([]byte(fmt.Sprintf("entry-%d", i)))
		require.NoError(t, err)
	}

	it := s.ReadReverse()
	for i := 9; i >= 0; i-- {
		entry, ok, err := it.Next()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("entry-%d", i), string(entry.Payload))
	}
	_, ok, err := it.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppendCrossesBlockBoundaryWithPadding(t *testing.T) {
	s := newTestStore(t, 4*BlockSize)

	const n = 15000 // 25-byte entries (13-byte payload + 12 bytes framing): about 2.9 blocks' worth, crossing two block boundaries
	for i := 0; i < n; i++ {
		_, err := s.Append([]byte(fmt.Sprintf("payload-%05d", i)))
		require.NoError(t, err)
	}

	it := s.ReadForward()
	count := 0
	for {
		entry, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		assert.Equal(t, fmt.Sprintf("payload-%05d", count), string(entry.Payload))
		count++
	}
	assert.Equal(t, n, count)
}

func TestRingOverflowDropsOldestBlock(t *testing.T) {
	s := newTestStore(t, 2*BlockSize)

	// Each entry is a quarter of a block, so three fit per block once framing
	// is added; twelve of them need four blocks, which forces the two-block
	// ring to drop its oldest blocks to make room.
	payload := make([]byte, BlockSize/4)
	const n = 12
	var lastIDs []uint32
	for i := 0; i < n; i++ {
		id, err := s.Append(payload)
		require.NoError(t, err)
		lastIDs = append(lastIDs, id)
	}

	header := s.Header()
	assert.Greater(t, header.Head, uint64(0), "ring should have advanced head past the oldest block")

	it := s.ReadForward()
	entry, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, lastIDs[0], entry.TransID, "oldest entry should have been dropped")
}

func TestAppendRejectsOversizeEntry(t *testing.T) {
	s := newTestStore(t, BlockSize)
	_, err := s.Append(make([]byte, BlockSize))
	assert.ErrorIs(t, err, ErrEntryTooLarge)
}

func TestAppendAfterCloseFails(t *testing.T) {
	s := newTestStore(t, BlockSize)
	require.NoError(t, s.Close())
	_, err := s.Append([]byte("x"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRecoverReplaysUnflushedHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.bin")
	s, err := Create(path, BlockSize, TypeForward, false)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := s.Append([]byte(fmt.Sprintf("entry-%d", i)))
		require.NoError(t, err)
	}

	// The header is only persisted at block boundaries or Close; simulate a
	// crash where entries made it to disk but the header did not.
	trueTail := s.header.Tail
	trueCtr := s.header.TransCtr
	s.header.Tail = 0
	s.header.TransCtr = 0
	require.NoError(t, s.writeHeaderLocked())
	require.NoError(t, s.f.Close())

	reopened, err := Open(path, false)
	require.NoError(t, err)
	defer reopened.Close()

	got := reopened.Header()
	assert.Equal(t, trueTail, got.Tail)
	assert.Equal(t, trueCtr, got.TransCtr)

	it := reopened.ReadForward()
	count := 0
	for {
		_, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 5, count)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.bin")
	s, err := Create(path, BlockSize, TypeForward, false)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Corrupt the magic bytes directly.
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0, 0, 0, 0}, 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(path, false)
	assert.ErrorIs(t, err, ErrBadMagic)
}
