package main

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/recstream"
)

var verifyCRC32C = crc32.MakeTable(crc32.Castagnoli)

// cmdVerify walks every marker-delimited segment of a stream with the
// codec primitives and classifies it, reporting how many bytes a reader
// would silently skip. Exits non-zero when the stream carries garbage,
// which makes it usable as a health check.
func cmdVerify(out io.Writer, args []string) int {
	flagSet := flag.NewFlagSet("verify", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	quiet := flagSet.Bool("quiet", false, "suppress per-record output")

	if err := flagSet.Parse(args); err != nil {
		log.Error("parsing flags", "err", err)

		return 1
	}

	if flagSet.NArg() < 1 {
		log.Error("missing stream file")

		return 1
	}

	image, err := os.ReadFile(flagSet.Arg(0))
	if err != nil {
		log.Error("reading stream", "err", err)

		return 1
	}

	valid, skipped := verifyImage(out, image, *quiet)

	log.Info("verify complete",
		"bytes", len(image),
		"valid_records", valid,
		"skipped_bytes", skipped,
	)

	if skipped > 0 {
		return 1
	}

	return 0
}

// verifyImage classifies each marker-delimited segment. Bytes belonging to
// valid records, every marker found, and the run of zero bytes at the head
// count as healthy; everything else, including zero runs further in, is
// reported as skipped.
func verifyImage(out io.Writer, image []byte, quiet bool) (valid, skipped int) {
	scratch := make([]byte, recstream.MaxRead)

	healthy := 0
	pos := 0
	first := true

	// Leading zeros read back from sparse holes are benign.
	for pos < len(image) && image[pos] == 0 {
		pos++
		healthy++
	}

	for pos < len(image) {
		var encStart int

		if first {
			first = false
			encStart = pos
		} else {
			h := pos + recstream.FindMarker(image[pos:])
			if h >= len(image) {
				break
			}

			encStart = h + recstream.MarkerLen
			healthy += recstream.MarkerLen
		}

		next := encStart + recstream.FindMarker(image[encStart:])
		segment := image[encStart:next]

		if gen, payloadLen, ok := checkRecord(segment, scratch); ok {
			valid++
			healthy += len(segment)

			if !quiet {
				fmt.Fprintf(out, "%8d  gen=%-10d len=%d\n", encStart, gen, payloadLen)
			}
		} else if !quiet && len(segment) > 0 {
			fmt.Fprintf(out, "%8d  skipped %d bytes\n", encStart, len(segment))
		}

		pos = next
	}

	skipped = len(image) - healthy
	if skipped < 0 {
		skipped = 0
	}

	return valid, skipped
}

// checkRecord applies the reader's validation chain to one candidate
// segment: size cap, stuffing decode, minimum length, and CRC32C with the
// crc field replaced by the all-ones sentinel.
func checkRecord(segment, scratch []byte) (gen uint32, payloadLen int, ok bool) {
	if len(segment) > recstream.MaxRead {
		return 0, 0, false
	}

	n, err := recstream.Decode(scratch, segment)
	if err != nil || n < 8 {
		return 0, 0, false
	}

	rec := scratch[:n]
	stored := binary.LittleEndian.Uint32(rec[0:])
	binary.LittleEndian.PutUint32(rec[0:], 0xFFFFFFFF)

	if crc32.Checksum(rec, verifyCRC32C) != stored {
		return 0, 0, false
	}

	return binary.LittleEndian.Uint32(rec[4:]), n - 8, true
}
