package recstream

import (
	"fmt"
	"io"
	"os"
)

// Message is the serialisation capability accepted by AppendMessage and
// WriteMessage. It matches the shape of generated protocol-buffer code
// without depending on any particular runtime: a size query and a
// pack-into-buffer operation.
type Message interface {
	// PackedSize returns the exact number of bytes PackTo will write.
	PackedSize() int

	// PackTo serialises the message into dst and returns the number of
	// bytes written. dst has at least PackedSize bytes.
	PackTo(dst []byte) int
}

// packMessage serialises msg into a fresh payload buffer.
func packMessage(msg Message) ([]byte, error) {
	size := msg.PackedSize()
	if size < 0 || size > MaxWrite {
		return nil, ErrTooLarge
	}

	buf := make([]byte, size)

	if n := msg.PackTo(buf); n != size {
		return nil, fmt.Errorf("recstream: message packed %d bytes, declared %d: %w", n, size, ErrTooLarge)
	}

	return buf, nil
}

// AppendMessage serialises msg and appends it as one record, with
// AppendRecord's durability and retry semantics.
func AppendMessage(f *os.File, generation uint32, msg Message) error {
	payload, err := packMessage(msg)
	if err != nil {
		return err
	}

	return AppendRecord(f, generation, payload)
}

// WriteMessage serialises msg and writes it as one record with
// WriteRecord's buffered semantics.
func WriteMessage(w io.Writer, generation uint32, msg Message) error {
	payload, err := packMessage(msg)
	if err != nil {
		return err
	}

	return WriteRecord(w, generation, payload)
}
