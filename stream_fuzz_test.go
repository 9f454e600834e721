package recstream_test

import (
	"bytes"
	"testing"

	"github.com/calvinalkan/recstream"
	"github.com/calvinalkan/recstream/internal/testutil"
)

// FuzzStreamReplay builds a stream image from fuzz-derived operations -
// records interleaved with arbitrary inter-record garbage - and checks
// that every appended record is replayed intact and in order. Garbage may
// add phantom candidates (they are skipped, or in the theoretical case of
// a colliding CRC, yielded); it must never swallow a real record.
func FuzzStreamReplay(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x03, 0x10, 0xFE, 0xFD, 0x00, 0x02, 0x20})
	f.Add(bytes.Repeat([]byte{0xA5}, 64))

	f.Fuzz(func(t *testing.T, input []byte) {
		stream := testutil.NewByteStream(input)

		var (
			image bytes.Buffer
			want  [][]byte
		)

		for stream.HasMore() && len(want) < 16 {
			if stream.NextBool() {
				// Inter-record garbage, terminated by a marker so
				// the following record keeps its anchor.
				junk := stream.NextBytes(stream.NextInt(40))
				image.Write(junk)
				image.Write([]byte{0xFE, 0xFD})
			}

			payload := stream.NextPayload(80)

			gen := uint32(len(want) + 1)
			if err := recstream.WriteRecord(&image, gen, payload); err != nil {
				t.Fatalf("WriteRecord: %v", err)
			}

			want = append(want, payload)
		}

		it := recstream.NewBufIterator(image.Bytes())
		scratch := make([]byte, recstream.MaxRead)

		next := 0

		for {
			rec, ok := it.Next(scratch)
			if !ok {
				break
			}

			if next < len(want) && rec.Generation == uint32(next+1) && bytes.Equal(rec.Payload, want[next]) {
				next++
			}
		}

		if next != len(want) {
			t.Fatalf("replayed %d of %d appended records", next, len(want))
		}
	})
}
