package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/recstream"
)

func cmdDump(out io.Writer, cfg Config, args []string) int {
	flagSet := flag.NewFlagSet("dump", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	offset := flagSet.Int64("offset", 0, "start iterating at this byte offset")
	stop := flagSet.Int64("stop", -1, "only yield records starting before this offset")
	maxRecords := flagSet.Int("max", cfg.MaxDump, "stop after this many records (0 = unlimited)")
	hexOut := flagSet.Bool("hex", cfg.Hex, "always print payloads as hex")

	if err := flagSet.Parse(args); err != nil {
		log.Error("parsing flags", "err", err)

		return 1
	}

	if flagSet.NArg() < 1 {
		log.Error("missing stream file")

		return 1
	}

	f, err := os.Open(flagSet.Arg(0))
	if err != nil {
		log.Error("opening stream", "err", err)

		return 1
	}
	defer f.Close()

	it, err := recstream.OpenIterator(f)
	if err != nil {
		log.Error("mapping stream", "err", err)

		return 1
	}
	defer it.Close()

	if *offset > 0 {
		if err := it.LocateAt(*offset); err != nil {
			log.Error("locating offset", "offset", *offset, "err", err)

			return 1
		}
	}

	if *stop >= 0 {
		if err := it.StopAt(*stop); err != nil {
			log.Error("setting stop bound", "stop", *stop, "err", err)

			return 1
		}
	}

	scratch := make([]byte, recstream.MaxRead)
	count := 0

	for {
		rec, ok := it.Next(scratch)
		if !ok {
			break
		}

		count++
		fmt.Fprintf(out, "%6d  gen=%-10d len=%-4d %s\n", count, rec.Generation, len(rec.Payload), formatPayload(rec.Payload, *hexOut))

		if *maxRecords > 0 && count >= *maxRecords {
			log.Info("record limit reached", "max", *maxRecords)

			break
		}
	}

	log.Info("dump complete", "records", count, "bytes", it.Size())

	return 0
}

// formatPayload renders printable payloads as quoted text, everything else
// as hex.
func formatPayload(p []byte, forceHex bool) string {
	if len(p) == 0 {
		return "(empty)"
	}

	if !forceHex && isPrintable(p) {
		return fmt.Sprintf("%q", p)
	}

	return hex.EncodeToString(p)
}

func isPrintable(p []byte) bool {
	for _, b := range p {
		if b < 0x20 || b > 0x7E {
			return false
		}
	}

	return true
}
