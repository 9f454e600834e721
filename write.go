package recstream

import (
	"fmt"
	"io"
)

// WriteInitial writes a leading marker to w. It is the buffered
// counterpart of AppendInitial for fresh private files: there is no tail
// to probe, and a leading marker is always a valid stream prefix.
func WriteInitial(w io.Writer) error {
	if _, err := w.Write(marker()); err != nil {
		return fmt.Errorf("recstream: write initial marker: %w", err)
	}

	return nil
}

// WriteRecord frames, encodes, and writes one record to w. Unlike
// AppendRecord there is no retry logic: the variant is meant for private
// files or buffers where the caller owns synchronisation and error
// handling.
func WriteRecord(w io.Writer, generation uint32, payload []byte) error {
	enc, err := encodeRecord(generation, payload)
	if err != nil {
		return err
	}

	if _, err := w.Write(enc); err != nil {
		return fmt.Errorf("recstream: write record: %w", err)
	}

	return nil
}
