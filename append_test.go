package recstream_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/calvinalkan/recstream"
)

func openStream(t *testing.T) *os.File {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stream.rec")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}

	t.Cleanup(func() { _ = f.Close() })

	return f
}

func readAll(t *testing.T, f *os.File) []byte {
	t.Helper()

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}

	return data
}

func Test_AppendInitial_EmptyFile_AppendsMarker(t *testing.T) {
	t.Parallel()

	f := openStream(t)

	if err := recstream.AppendInitial(f); err != nil {
		t.Fatalf("AppendInitial: %v", err)
	}

	if got := readAll(t, f); !bytes.Equal(got, []byte{0xFE, 0xFD}) {
		t.Fatalf("file contents %x, want marker", got)
	}
}

func Test_AppendInitial_MarkerTerminated_IsNoop(t *testing.T) {
	t.Parallel()

	f := openStream(t)

	if err := recstream.AppendRecord(f, 1, []byte("x")); err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}

	before := readAll(t, f)

	if err := recstream.AppendInitial(f); err != nil {
		t.Fatalf("AppendInitial: %v", err)
	}

	if after := readAll(t, f); !bytes.Equal(before, after) {
		t.Fatalf("AppendInitial changed a marker-terminated file: %x -> %x", before, after)
	}
}

func Test_AppendInitial_TornTail_AppendsMarker(t *testing.T) {
	t.Parallel()

	f := openStream(t)

	if _, err := f.Write([]byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("seed torn tail: %v", err)
	}

	if err := recstream.AppendInitial(f); err != nil {
		t.Fatalf("AppendInitial: %v", err)
	}

	got := readAll(t, f)
	if !bytes.Equal(got, []byte{0x01, 0x02, 0x03, 0xFE, 0xFD}) {
		t.Fatalf("file contents %x", got)
	}
}

func Test_AppendRecord_RejectsOversizePayload(t *testing.T) {
	t.Parallel()

	f := openStream(t)

	err := recstream.AppendRecord(f, 1, make([]byte, recstream.MaxWrite+1))
	if !errors.Is(err, recstream.ErrTooLarge) {
		t.Fatalf("error = %v, want ErrTooLarge", err)
	}

	if got := readAll(t, f); len(got) != 0 {
		t.Fatalf("rejected append still wrote %d bytes", len(got))
	}
}

func Test_AppendRecord_WritesEncodedRecordWithTrailer(t *testing.T) {
	t.Parallel()

	f := openStream(t)

	if err := recstream.AppendRecord(f, 7, []byte{0xAA, 0xBB}); err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}

	got := readAll(t, f)

	want, err := recstream.EncodeTestRecord(7, []byte{0xAA, 0xBB})
	if err != nil {
		t.Fatalf("EncodeTestRecord: %v", err)
	}

	if !bytes.Equal(got, want) {
		t.Fatalf("on-disk bytes %x, want %x", got, want)
	}

	if !bytes.Equal(got[len(got)-2:], []byte{0xFE, 0xFD}) {
		t.Fatalf("record not marker-terminated: %x", got)
	}
}

// shortWritev simulates a kernel that lands only the given byte counts per
// call, recording every iovec it sees.
type shortWritev struct {
	results []int      // bytes accepted per call; -1 means return an error
	calls   [][][]byte // deep-copied iovecs per call
}

func (s *shortWritev) call(_ int, iovs [][]byte) (int, error) {
	snapshot := make([][]byte, len(iovs))
	for i, iov := range iovs {
		snapshot[i] = append([]byte{}, iov...)
	}

	s.calls = append(s.calls, snapshot)

	if len(s.results) == 0 {
		return 0, unix.EIO
	}

	r := s.results[0]
	s.results = s.results[1:]

	if r < 0 {
		return -1, unix.EIO
	}

	return r, nil
}

func flatten(iovs [][]byte) []byte {
	var out []byte
	for _, iov := range iovs {
		out = append(out, iov...)
	}

	return out
}

func Test_AppendEncoded_ShortWrite_AnchorsRemainderBehindMarker(t *testing.T) {
	enc := []byte{0x03, 0x11, 0x22, 0x33, 0xFE, 0xFD}

	fake := &shortWritev{results: []int{2, 6}}
	restore := recstream.SwapWritev(fake.call)
	defer restore()

	if err := recstream.AppendEncoded(0, enc); err != nil {
		t.Fatalf("AppendEncoded: %v", err)
	}

	if len(fake.calls) != 2 {
		t.Fatalf("writev called %d times, want 2", len(fake.calls))
	}

	// First attempt: the bare encoded record.
	if got := flatten(fake.calls[0]); !bytes.Equal(got, enc) {
		t.Fatalf("first attempt wrote %x", got)
	}

	// Second attempt: explicit marker anchor, then the unwritten tail.
	second := fake.calls[1]
	if len(second) != 2 || !bytes.Equal(second[0], []byte{0xFE, 0xFD}) {
		t.Fatalf("retry iovecs = %x, want marker-led pair", second)
	}

	if !bytes.Equal(second[1], enc[2:]) {
		t.Fatalf("retry remainder = %x, want %x", second[1], enc[2:])
	}
}

func Test_AppendEncoded_ExhaustedShortWrites_EmitsBoundaryMarker(t *testing.T) {
	enc := []byte{0x02, 0x11, 0x22, 0xFE, 0xFD}

	fake := &shortWritev{results: []int{1, 1, 1, 2}}
	restore := recstream.SwapWritev(fake.call)
	defer restore()

	err := recstream.AppendEncoded(0, enc)
	if !errors.Is(err, recstream.ErrShortWrite) {
		t.Fatalf("error = %v, want ErrShortWrite", err)
	}

	// Three attempts plus the best-effort boundary marker.
	if len(fake.calls) != 4 {
		t.Fatalf("writev called %d times, want 4", len(fake.calls))
	}

	last := fake.calls[3]
	if len(last) != 1 || !bytes.Equal(last[0], []byte{0xFE, 0xFD}) {
		t.Fatalf("final call = %x, want bare marker", last)
	}
}

func Test_AppendEncoded_ErrorThenSuccess_Retries(t *testing.T) {
	enc := []byte{0x01, 0x11, 0xFE, 0xFD}

	fake := &shortWritev{results: []int{-1, 4}}
	restore := recstream.SwapWritev(fake.call)
	defer restore()

	if err := recstream.AppendEncoded(0, enc); err != nil {
		t.Fatalf("AppendEncoded: %v", err)
	}

	if len(fake.calls) != 2 {
		t.Fatalf("writev called %d times, want 2", len(fake.calls))
	}

	// A failed attempt writes nothing, so the retry repeats the full record.
	if got := flatten(fake.calls[1]); !bytes.Equal(got, enc) {
		t.Fatalf("retry wrote %x, want full record", got)
	}
}

func Test_AppendEncoded_PersistentError_SurfacesErrno(t *testing.T) {
	fake := &shortWritev{results: []int{-1, -1, -1}}
	restore := recstream.SwapWritev(fake.call)
	defer restore()

	err := recstream.AppendEncoded(0, []byte{0x00, 0xFE, 0xFD})
	if !errors.Is(err, unix.EIO) {
		t.Fatalf("error = %v, want wrapped EIO", err)
	}

	if len(fake.calls) != 3 {
		t.Fatalf("writev called %d times, want 3", len(fake.calls))
	}
}
