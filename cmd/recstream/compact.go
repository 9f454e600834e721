package main

import (
	"bytes"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/recstream"
)

// cmdCompact rewrites a stream keeping only its valid records, atomically
// replacing the original file. Garbage from torn writes or corruption is
// dropped; record order and generations are preserved.
//
// Compaction must not race live appenders - the atomic rename discards
// anything appended to the old inode meanwhile.
func cmdCompact(args []string) int {
	flagSet := flag.NewFlagSet("compact", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	dryRun := flagSet.Bool("dry-run", false, "report what would be dropped without rewriting")

	if err := flagSet.Parse(args); err != nil {
		log.Error("parsing flags", "err", err)

		return 1
	}

	if flagSet.NArg() < 1 {
		log.Error("missing stream file")

		return 1
	}

	path := flagSet.Arg(0)

	image, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		log.Error("reading stream", "err", err)

		return 1
	}

	it := recstream.NewBufIterator(image)
	scratch := make([]byte, recstream.MaxRead)

	var out bytes.Buffer

	if err := recstream.WriteInitial(&out); err != nil {
		log.Error("writing stream head", "err", err)

		return 1
	}

	kept := 0

	for {
		rec, ok := it.Next(scratch)
		if !ok {
			break
		}

		if err := recstream.WriteRecord(&out, rec.Generation, rec.Payload); err != nil {
			log.Error("rewriting record", "generation", rec.Generation, "err", err)

			return 1
		}

		kept++
	}

	dropped := len(image) - out.Len()
	if dropped < 0 {
		dropped = 0
	}

	if *dryRun {
		log.Info("compact dry run", "records", kept, "bytes_before", len(image), "bytes_after", out.Len(), "dropped", dropped)

		return 0
	}

	if err := atomic.WriteFile(path, bytes.NewReader(out.Bytes())); err != nil {
		log.Error("replacing stream", "err", err)

		return 1
	}

	log.Info("compact complete", "records", kept, "bytes_before", len(image), "bytes_after", out.Len(), "dropped", dropped)

	return 0
}
