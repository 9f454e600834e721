package recstream

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// appendAttempts bounds the retry loop of a single vectored append.
const appendAttempts = 3

// writev is the vectored-write seam. Tests swap it to exercise the short
// write and error retry paths, which real descriptors do not produce on
// demand.
var writev = func(fd int, iovs [][]byte) (int, error) {
	return unix.Writev(fd, iovs)
}

// AppendInitial prepares a possibly-corrupt file for appending. If the
// file already ends in a marker nothing is written; otherwise a marker is
// appended so the next record starts on a clean boundary. Call it once
// before the first AppendRecord on a reopened file.
func AppendInitial(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("recstream: stat stream: %w", err)
	}

	size := info.Size()
	fd := int(f.Fd())

	if size >= MarkerLen {
		var tail [MarkerLen]byte

		n, err := unix.Pread(fd, tail[:], size-MarkerLen)
		if err != nil {
			return fmt.Errorf("recstream: probe stream tail: %w", err)
		}

		if n == MarkerLen && tail[0] == markerByte0 && tail[1] == markerByte1 {
			return nil
		}
	}

	n, err := writev(fd, [][]byte{marker()})
	if err != nil {
		return fmt.Errorf("recstream: append initial marker: %w", err)
	}

	if n < MarkerLen {
		return ErrShortWrite
	}

	return nil
}

// AppendRecord frames payload with the given generation, word-stuffs it,
// and appends it to f with a single vectored write. The encoded buffer
// ends with a marker that pre-anchors the next record; corruption clusters
// at the file tail, so getting that marker to stable storage early is
// worth the two bytes.
//
// Payloads over MaxWrite return ErrTooLarge. Each append makes at most
// three write attempts; once a write lands short, the remaining bytes are
// re-anchored behind an explicit marker because a concurrent appender may
// have raced into the gap. If the append is still short after retries, a
// best-effort bare marker is written and ErrShortWrite returned.
func AppendRecord(f *os.File, generation uint32, payload []byte) error {
	enc, err := encodeRecord(generation, payload)
	if err != nil {
		return err
	}

	return appendEncoded(int(f.Fd()), enc)
}

func appendEncoded(fd int, enc []byte) error {
	// head is the spec'd iov[0]: empty until the first short write
	// promotes it to an explicit marker ahead of the remaining bytes.
	var head []byte

	data := enc
	short := false

	var lastErr error

	for attempt := 0; attempt < appendAttempts; attempt++ {
		iovs := make([][]byte, 0, 2)
		if len(head) > 0 {
			iovs = append(iovs, head)
		}

		iovs = append(iovs, data)
		expected := len(head) + len(data)

		n, err := writev(fd, iovs)
		if err != nil {
			lastErr = err

			continue
		}

		if n >= expected {
			return nil
		}

		if n <= 0 {
			continue
		}

		// Short write: drop what landed and anchor the rest.
		lastErr = nil

		if !short {
			short = true
			data = data[n:]
			head = marker()

			continue
		}

		if n <= len(head) {
			head = head[n:]
		} else {
			data = data[n-len(head):]
			head = nil
		}
	}

	if short {
		// Leave a clean boundary for whoever writes next. Failure here
		// is ignored; the reader skips the torn record either way.
		_, _ = writev(fd, [][]byte{marker()})

		return ErrShortWrite
	}

	if lastErr != nil {
		return fmt.Errorf("recstream: append writev: %w", lastErr)
	}

	return ErrShortWrite
}
