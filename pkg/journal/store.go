package journal

import (
	"encoding/binary"
	"os"
	"sync"
)

// Store is an open ring journal backed by a single file: a headerSize
// preamble followed by size bytes of ring payload, block-aligned per
// BlockSize. Store is safe for concurrent use; Append takes an internal
// lock, matching the teacher's sync-guarded single-file access pattern
// (pkg/storedb/db.go).
type Store struct {
	mu       sync.Mutex
	f        *os.File
	size     uint64 // N, the ring payload size in bytes; always a multiple of BlockSize
	header   Header
	syncEach bool
	closed   bool
}

// Create initializes a new journal file at path with a size-byte ring
// (rounded up to the next BlockSize multiple) and the given Type, and
// opens it for use. An existing file at path is truncated.
func Create(path string, size uint64, typ Type, syncEach bool) (*Store, error) {
	if size == 0 {
		size = BlockSize
	}
	if rem := size % BlockSize; rem != 0 {
		size += BlockSize - rem
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(headerSize + size)); err != nil {
		f.Close()
		return nil, err
	}

	s := &Store{f: f, size: size, syncEach: syncEach, header: Header{Type: typ}}
	if err := s.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Open reopens an existing journal file, reading its header and then
// running recovery (see recover) to pick up any entries that were written
// and CRC-sealed after the header's last flush but before a crash.
func Open(path string, syncEach bool) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() < int64(headerSize) {
		f.Close()
		return nil, ErrHeaderTooShort
	}

	buf := make([]byte, headerSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		f.Close()
		return nil, err
	}
	header, err := decodeHeader(buf)
	if err != nil {
		f.Close()
		return nil, err
	}

	size := uint64(info.Size()) - headerSize
	if rem := size % BlockSize; rem != 0 {
		size -= rem
	}

	s := &Store{f: f, size: size, syncEach: syncEach, header: header}
	if err := s.recover(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Close flushes the header and closes the backing file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.writeHeaderLocked(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// Header returns a snapshot of the store's current header fields.
func (s *Store) Header() Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}

func (s *Store) writeHeader() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeHeaderLocked()
}

func (s *Store) writeHeaderLocked() error {
	buf := s.header.encode()
	_, err := s.f.WriteAt(buf[:], 0)
	return err
}

func (s *Store) physicalOffset(pos uint64) int64 {
	return int64(headerSize) + int64(pos%s.size)
}

func (s *Store) writeAt(pos uint64, data []byte) error {
	_, err := s.f.WriteAt(data, s.physicalOffset(pos))
	return err
}

func (s *Store) readAt(pos uint64, n uint32) ([]byte, error) {
	buf := make([]byte, n)
	_, err := s.f.ReadAt(buf, s.physicalOffset(pos))
	return buf, err
}

// Append encodes payload as the next entry, padding to the next block
// boundary first if it would not fit in the remainder of the current
// block, and dropping the oldest block(s) from the ring if necessary to
// make room. It returns the entry's transaction id.
func (s *Store) Append(payload []byte) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	transID := s.header.TransCtr
	entry := encodeEntry(transID, payload)
	fsize := uint32(len(entry))
	if fsize > BlockSize {
		return 0, ErrEntryTooLarge
	}

	remaining := uint32(BlockSize - (s.header.Tail % BlockSize))
	if remaining < fsize {
		if remaining >= 4 {
			if err := s.writeAt(s.header.Tail, make([]byte, 4)); err != nil {
				return 0, err
			}
		}
		s.header.Tail += uint64(remaining)
	}

	for s.header.Tail+uint64(fsize)-s.header.Head > s.size {
		s.header.Head += BlockSize
	}

	if err := s.writeAt(s.header.Tail, entry); err != nil {
		return 0, err
	}
	s.header.Tail += uint64(fsize)
	s.header.TransCtr = nextTransID(transID)

	if s.syncEach {
		if err := s.f.Sync(); err != nil {
			return 0, err
		}
	}
	if s.header.Tail%BlockSize == 0 {
		if err := s.writeHeaderLocked(); err != nil {
			return 0, err
		}
	}
	return transID, nil
}

// recover re-derives the true tail by scanning forward from the on-disk
// header's tail: the header is only flushed at block boundaries, so after
// a crash mid-block it may lag behind entries that were fully written and
// CRC-sealed. Recovery stops at the first entry that fails to validate,
// which is either a torn write or simply "no more data" (spec.md §4.5).
func (s *Store) recover() error {
	pos := s.header.Tail
	lastGood := pos
	expected := s.header.TransCtr

	for pos-s.header.Head < s.size {
		remaining := uint32(BlockSize - (pos % BlockSize))
		if remaining < 4 {
			pos += uint64(remaining)
			continue
		}
		lenBuf, err := s.readAt(pos, 4)
		if err != nil {
			break
		}
		fsize := binary.BigEndian.Uint32(lenBuf)
		if fsize == 0 {
			pos += uint64(remaining)
			continue
		}
		if fsize > remaining {
			break
		}
		buf, err := s.readAt(pos, fsize)
		if err != nil {
			break
		}
		transID, _, err := decodeEntry(buf)
		if err != nil || transID != expected {
			break
		}
		pos += uint64(fsize)
		lastGood = pos
		expected = nextTransID(expected)
	}

	s.header.Tail = lastGood
	s.header.TransCtr = expected
	return s.writeHeaderLocked()
}
