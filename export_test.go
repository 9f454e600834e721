package recstream

// SwapWritev replaces the vectored-write seam for a test and returns a
// restore func.
func SwapWritev(fn func(fd int, iovs [][]byte) (int, error)) func() {
	old := writev
	writev = fn

	return func() { writev = old }
}

// AppendEncoded exposes the retry loop for tests that need to drive it
// with pre-encoded bytes.
var AppendEncoded = appendEncoded

// EncodeTestRecord exposes record framing so corruption tests can compute
// exact on-disk ranges.
var EncodeTestRecord = encodeRecord
