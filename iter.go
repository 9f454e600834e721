package recstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Record is one validated entry yielded by an Iterator. Payload aliases
// the scratch buffer passed to Next and is valid until the next call.
type Record struct {
	Generation uint32
	Payload    []byte
}

// Iterator walks a stream, yielding each validly framed record between
// markers. Candidates that fail to decode, decode to less than the fixed
// header, or fail their CRC are skipped silently; the iterator
// resynchronises at the following marker.
//
// Iterators are plain values over a backing byte range and are not safe
// for concurrent use. Each goroutine of a parallel replay gets its own.
type Iterator struct {
	buf    []byte
	mapped []byte // non-nil when the iterator owns an mmap region

	cursor    int
	stop      int
	firstData int  // lowest offset past leading zeros
	first     bool // next candidate starts at cursor without a marker

	scratch []byte
}

// NewBufIterator returns an iterator over an in-memory stream image.
func NewBufIterator(buf []byte) *Iterator {
	return &Iterator{buf: buf, stop: len(buf), first: true}
}

// OpenIterator maps f read-only and returns an iterator over its current
// contents. Leading sparse holes are skipped via SEEK_DATA where the
// filesystem supports it, and any further run of zero bytes at the head is
// stepped over byte-wise - zero-filled pages cannot contain a marker. The
// descriptor is not owned; Close only releases the mapping.
//
// OpenIterator moves the descriptor's file offset while probing for data.
func OpenIterator(f *os.File) (*Iterator, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("recstream: stat stream: %w", err)
	}

	size := info.Size()
	if size == 0 {
		return &Iterator{first: true}, nil
	}

	if int64(int(size)) != size {
		return nil, fmt.Errorf("recstream: stream too large to map: %d bytes", size)
	}

	fd := int(f.Fd())

	dataOff, err := unix.Seek(fd, 0, unix.SEEK_DATA)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			// The whole file is a hole.
			dataOff = size
		} else {
			// Filesystem without SEEK_DATA; the zero skip below
			// covers the hole the slow way.
			dataOff = 0
		}
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("recstream: mmap stream: %w", err)
	}

	cur := int(dataOff)
	for cur < len(data) && data[cur] == 0 {
		cur++
	}

	return &Iterator{
		buf:       data,
		mapped:    data,
		cursor:    cur,
		stop:      len(data),
		firstData: cur,
		first:     true,
	}, nil
}

// Close releases the memory mapping, if any. The iterator must not be
// used afterwards. Close is idempotent.
func (it *Iterator) Close() error {
	if it.mapped == nil {
		return nil
	}

	m := it.mapped
	it.mapped = nil
	it.buf = nil
	it.cursor, it.stop = 0, 0

	if err := unix.Munmap(m); err != nil {
		return fmt.Errorf("recstream: munmap stream: %w", err)
	}

	return nil
}

// Size returns the length in bytes of the backing range.
func (it *Iterator) Size() int64 {
	return int64(len(it.buf))
}

// Offset returns the cursor position. It can be handed back to LocateAt
// later to resume iteration from the same point.
func (it *Iterator) Offset() int64 {
	return int64(it.cursor)
}

// FirstOffset returns the lowest offset the iterator considers: the first
// byte past any leading sparse hole. It is the smallest offset LocateAt
// accepts, and the one that restores first-record iteration.
func (it *Iterator) FirstOffset() int64 {
	return int64(it.firstData)
}

// LocateAt positions the cursor at the given byte offset. Offsets before
// the first data byte or past the stop bound return ErrOffsetOutOfBounds.
// Relocating to the first data byte restores the unmarked-first-record
// state; anywhere else the iterator resynchronises on the next marker.
func (it *Iterator) LocateAt(off int64) error {
	if off < int64(it.firstData) || off > int64(it.stop) {
		return ErrOffsetOutOfBounds
	}

	it.cursor = int(off)
	it.first = off == int64(it.firstData)

	return nil
}

// StopAt clamps iteration to records whose starting byte lies before the
// given offset. A record that starts before the bound is still yielded in
// full even when it extends past it, which is what makes disjoint
// [LocateAt, StopAt) windows partition a stream exactly.
func (it *Iterator) StopAt(off int64) error {
	if off < 0 || off > int64(len(it.buf)) {
		return ErrOffsetOutOfBounds
	}

	it.stop = int(off)

	return nil
}

// Next yields the next valid record, or ok == false when the window is
// exhausted. scratch is reused for decoding when it holds at least MaxRead
// bytes; otherwise an internal buffer is used. The returned payload
// aliases whichever buffer decoded the record.
func (it *Iterator) Next(scratch []byte) (Record, bool) {
	if len(scratch) < MaxRead {
		if it.scratch == nil {
			it.scratch = make([]byte, MaxRead)
		}

		scratch = it.scratch
	}

	for it.cursor < it.stop {
		var encStart int

		if it.first {
			it.first = false
			encStart = it.cursor
		} else {
			header := it.cursor + FindMarker(it.buf[it.cursor:])
			if header >= it.stop {
				break
			}

			encStart = header + MarkerLen
		}

		// The record may legitimately extend past the stop bound, so
		// the closing marker is searched to the end of the range.
		next := encStart + FindMarker(it.buf[encStart:])
		it.cursor = next

		if next-encStart > MaxRead {
			continue
		}

		n, err := Decode(scratch, it.buf[encStart:next])
		if err != nil {
			continue
		}

		if n < recordHeaderSize {
			continue
		}

		rec := scratch[:n]
		if !verifyRecordCRC(rec) {
			continue
		}

		return Record{
			Generation: binary.LittleEndian.Uint32(rec[offGeneration:]),
			Payload:    rec[recordHeaderSize:n],
		}, true
	}

	it.cursor = len(it.buf)

	return Record{}, false
}
