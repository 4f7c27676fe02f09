package journal

import "encoding/binary"

// ForwardIter walks entries from the ring's current head toward its tail,
// oldest first. It is a point-in-time snapshot: entries appended after the
// iterator was created are not visited.
type ForwardIter struct {
	s    *Store
	pos  uint64
	tail uint64
}

// ReadForward returns an iterator over every entry currently between head
// and tail, in write order.
func (s *Store) ReadForward() *ForwardIter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &ForwardIter{s: s, pos: s.header.Head, tail: s.header.Tail}
}

// Next returns the next entry, or ok=false once the snapshot is exhausted.
// err is non-nil only on I/O failure or a corrupt (non-torn-tail) entry.
func (it *ForwardIter) Next() (Entry, bool, error) {
	for it.pos < it.tail {
		remaining := uint32(BlockSize - (it.pos % BlockSize))
		if remaining < 4 {
			it.pos += uint64(remaining)
			continue
		}
		lenBuf, err := it.s.readAt(it.pos, 4)
		if err != nil {
			return Entry{}, false, err
		}
		fsize := binary.BigEndian.Uint32(lenBuf)
		if fsize == 0 {
			it.pos += uint64(remaining)
			continue
		}
		if fsize > remaining {
			return Entry{}, false, ErrTornEntry
		}
		buf, err := it.s.readAt(it.pos, fsize)
		if err != nil {
			return Entry{}, false, err
		}
		transID, payload, err := decodeEntry(buf)
		if err != nil {
			return Entry{}, false, err
		}
		it.pos += uint64(fsize)
		out := make([]byte, len(payload))
		copy(out, payload)
		return Entry{TransID: transID, Payload: out}, true, nil
	}
	return Entry{}, false, nil
}

// ReverseIter walks entries from the ring's current tail toward its head,
// newest first, decoding one block at a time (spec.md §4.5: "decode each
// block forward, buffer, yield in reverse; step backward one block at a
// time until reaching head").
type ReverseIter struct {
	s            *Store
	head         uint64
	tail         uint64
	nextBlockEnd uint64 // exclusive end of the block to decode next; 0 once exhausted
	buf          []Entry
}

// ReadReverse returns an iterator over every entry currently between head
// and tail, newest first.
func (s *Store) ReadReverse() *ReverseIter {
	s.mu.Lock()
	defer s.mu.Unlock()
	head, tail := s.header.Head, s.header.Tail
	if tail <= head {
		return &ReverseIter{s: s, head: head, tail: tail}
	}
	lastPos := tail - 1
	blockEnd := lastPos - (lastPos % BlockSize) + BlockSize
	return &ReverseIter{s: s, head: head, tail: tail, nextBlockEnd: blockEnd}
}

func (it *ReverseIter) loadBlock() error {
	blockStart := it.nextBlockEnd - BlockSize
	if blockStart < it.head {
		blockStart = it.head
	}
	limit := it.nextBlockEnd
	if it.tail < limit {
		limit = it.tail
	}

	var entries []Entry
	pos := blockStart
	for pos < limit {
		remaining := uint32(BlockSize - (pos % BlockSize))
		if remaining < 4 {
			pos += uint64(remaining)
			continue
		}
		lenBuf, err := it.s.readAt(pos, 4)
		if err != nil {
			return err
		}
		fsize := binary.BigEndian.Uint32(lenBuf)
		if fsize == 0 {
			pos += uint64(remaining)
			continue
		}
		if fsize > remaining {
			break // torn entry at the live tail; nothing more to decode here
		}
		buf, err := it.s.readAt(pos, fsize)
		if err != nil {
			return err
		}
		transID, payload, err := decodeEntry(buf)
		if err != nil {
			return err
		}
		out := make([]byte, len(payload))
		copy(out, payload)
		entries = append(entries, Entry{TransID: transID, Payload: out})
		pos += uint64(fsize)
	}

	it.buf = entries
	if blockStart <= it.head {
		it.nextBlockEnd = 0
	} else {
		it.nextBlockEnd = blockStart
	}
	return nil
}

// Next returns the next (in reverse write order) entry, or ok=false once
// the snapshot is exhausted.
func (it *ReverseIter) Next() (Entry, bool, error) {
	for len(it.buf) == 0 {
		if it.nextBlockEnd == 0 {
			return Entry{}, false, nil
		}
		if err := it.loadBlock(); err != nil {
			return Entry{}, false, err
		}
	}
	last := it.buf[len(it.buf)-1]
	it.buf = it.buf[:len(it.buf)-1]
	return last, true, nil
}
