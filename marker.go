package recstream

import "bytes"

// FindMarker returns the offset of the first occurrence of the reserved
// marker in buf, or len(buf) when absent. Occurrences overlap: the pairs at
// i and i+1 share a byte. Inputs shorter than the marker return len(buf).
func FindMarker(buf []byte) int {
	// Anchor on the first byte; markers are rare in real data, so the
	// vectorised IndexByte dominates the scan.
	off := 0

	for {
		i := bytes.IndexByte(buf[off:], markerByte0)
		if i < 0 {
			return len(buf)
		}

		pos := off + i
		if pos+1 >= len(buf) {
			return len(buf)
		}

		if buf[pos+1] == markerByte1 {
			return pos
		}

		off = pos + 1
	}
}
