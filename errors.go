package recstream

import "errors"

// Error classification.
//
// Call sites may wrap these with additional context; callers classify with
// errors.Is. Syscall failures are wrapped so the OS error number stays
// reachable through errors.As.
var (
	// ErrTooLarge reports a payload over MaxWrite, a message whose packed
	// size disagrees with its declaration, or a bound computation that
	// would overflow.
	ErrTooLarge = errors.New("recstream: input too large")

	// ErrShortWrite reports an append that stayed partial after retries.
	// A best-effort boundary marker has been emitted.
	ErrShortWrite = errors.New("recstream: short write")

	// ErrDecode reports malformed word-stuffed input.
	ErrDecode = errors.New("recstream: malformed stuffed data")

	// ErrShortBuffer reports a destination buffer smaller than the decoder
	// may need.
	ErrShortBuffer = errors.New("recstream: destination buffer too small")

	// ErrOffsetOutOfBounds reports a LocateAt/StopAt offset outside the
	// iterator's valid range.
	ErrOffsetOutOfBounds = errors.New("recstream: offset out of bounds")
)
