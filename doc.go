// Package recstream implements a resilient, self-synchronising binary
// record stream for append-only log files of small variable-length records.
//
// Records are word-stuffed so that the reserved 2-byte marker 0xFE 0xFD
// never appears inside an encoded record body. Markers delimit records, so
// any local corruption - overwritten bytes, zero-filled pages, short
// writes, inserted or removed bytes - damages at most the records that
// overlap the corrupted region. Every other record stays independently
// decodable.
//
// # Writing
//
//	f, _ := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
//	if err := recstream.AppendInitial(f); err != nil {
//	    // handle
//	}
//	if err := recstream.AppendRecord(f, generation, payload); err != nil {
//	    // [ErrTooLarge], [ErrShortWrite], or a wrapped OS error
//	}
//
// Appends go through a single writev on the underlying descriptor. With
// O_APPEND semantics multiple processes may append to the same file without
// user-space locking; the kernel serialises each vectored write.
//
// # Reading
//
//	it, err := recstream.OpenIterator(f)
//	if err != nil {
//	    // handle
//	}
//	defer it.Close()
//
//	var scratch [recstream.MaxRead]byte
//	for {
//	    rec, ok := it.Next(scratch[:])
//	    if !ok {
//	        break
//	    }
//	    // rec.Generation, rec.Payload
//	}
//
// The read path never surfaces corruption as an error: candidate records
// that fail to decode or fail their CRC are silently skipped and the
// iterator resynchronises at the next marker. Exhaustion is reported by
// Next returning false.
//
// # Parallel replay
//
// [Iterator.LocateAt] and [Iterator.StopAt] bound the cursor to a byte
// window. A record belongs to the window that contains its starting byte,
// even when the record ends past the window, so disjoint windows replay
// every record exactly once.
package recstream
