package recstream

import "math"

// StuffedBound returns the worst-case encoded size for a source of n
// bytes: the payload, one initial header byte padded to two, and two more
// bytes for every further 64008 bytes of payload. includeTrailer adds the
// trailing marker. The bound is monotonic in n; size destination buffers
// with it. Returns ErrTooLarge when n is negative or the arithmetic would
// overflow.
func StuffedBound(n int, includeTrailer bool) (int, error) {
	if n < 0 {
		return 0, ErrTooLarge
	}

	headers := 2 * (2 + n/maxNextRun)
	if n > math.MaxInt-headers-MarkerLen {
		return 0, ErrTooLarge
	}

	bound := n + headers
	if includeTrailer {
		bound += MarkerLen
	}

	return bound, nil
}

// Encode word-stuffs src into dst and appends the trailing marker,
// returning the number of bytes written. The output before the trailer
// contains no marker sequence. dst must hold StuffedBound(len(src), true)
// bytes; Encode panics otherwise.
//
// The source is treated as if followed by one virtual marker. Each block
// emits a run length (one byte for the first block, two little-endian
// base-253 digits after that) and the literal bytes up to the next marker
// or the block cap. A run short of the cap implies a marker follows; the
// virtual one terminates the record. When the source ends exactly on a cap
// boundary the terminal zero-length block is omitted - the decoder treats
// end of input at a block boundary as the terminator.
func Encode(dst, src []byte) int {
	if bound, err := StuffedBound(len(src), true); err != nil || len(dst) < bound {
		panic("recstream: Encode destination smaller than StuffedBound")
	}

	n := 0
	rem := src
	first := true

	for {
		limit := maxNextRun
		if first {
			limit = maxFirstRun
		}

		window := len(rem)
		if window > limit {
			window = limit
		}

		run := FindMarker(rem[:window])

		if first {
			dst[n] = byte(run)
			n++
		} else {
			dst[n] = byte(run % runRadix)
			dst[n+1] = byte(run / runRadix)
			n += 2
		}

		n += copy(dst[n:], rem[:run])
		rem = rem[run:]
		first = false

		if run == limit {
			if len(rem) == 0 {
				break
			}

			continue
		}

		// Short run: a marker follows. Nothing left means it was the
		// virtual terminator; otherwise skip the explicit marker bytes.
		if len(rem) == 0 {
			break
		}

		rem = rem[MarkerLen:]
	}

	dst[n] = markerByte0
	dst[n+1] = markerByte1

	return n + MarkerLen
}

// Decode reverses Encode. src is the encoded bytes without the trailing
// marker (the caller delimits at the next marker or end of data). The
// decoded bytes are written to dst and the decoded length returned.
//
// Decode never writes more than len(src)-1 bytes; dst must be at least
// that large or ErrShortBuffer is returned. Malformed input - a truncated
// header, a digit outside [0, 252], a run past the cap, or a run past the
// remaining input - returns ErrDecode.
func Decode(dst, src []byte) (int, error) {
	if need := len(src) - 1; need > 0 && len(dst) < need {
		return 0, ErrShortBuffer
	}

	n := 0
	in := src
	first := true

	for {
		var run, limit int

		if first {
			if len(in) < 1 {
				return 0, ErrDecode
			}

			run = int(in[0])
			in = in[1:]
			limit = maxFirstRun

			if run > limit {
				return 0, ErrDecode
			}
		} else {
			if len(in) == 0 {
				// Input ended on a block boundary after a
				// full-cap run: the virtual terminator.
				return n, nil
			}

			if len(in) < 2 {
				return 0, ErrDecode
			}

			lo, hi := int(in[0]), int(in[1])
			if lo >= runRadix || hi >= runRadix {
				return 0, ErrDecode
			}

			run = lo + runRadix*hi
			in = in[2:]
			limit = maxNextRun
		}

		if run > len(in) {
			return 0, ErrDecode
		}

		n += copy(dst[n:], in[:run])
		in = in[run:]
		first = false

		if run == limit {
			continue
		}

		if len(in) == 0 {
			// Virtual terminator consumed.
			return n, nil
		}

		// A short run with input remaining encodes a literal marker,
		// and another block header must follow it.
		if len(in) < 2 {
			return 0, ErrDecode
		}

		dst[n] = markerByte0
		dst[n+1] = markerByte1
		n += MarkerLen
	}
}
