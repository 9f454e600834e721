package main

import (
	"bufio"
	"io"
	"os"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/recstream"
)

// cmdAppend appends one record per argument, or one per stdin line with
// "-". The file is opened with O_APPEND so concurrent appenders stay safe,
// and prepared with AppendInitial so a torn tail is sealed first.
func cmdAppend(args []string) int {
	flagSet := flag.NewFlagSet("append", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	generation := flagSet.Uint32("generation", 0, "generation stored with each record")

	if err := flagSet.Parse(args); err != nil {
		log.Error("parsing flags", "err", err)

		return 1
	}

	rest := flagSet.Args()
	if len(rest) < 1 {
		log.Error("missing stream file")

		return 1
	}

	path := rest[0]
	payloads := rest[1:]

	// O_RDWR rather than O_WRONLY: AppendInitial reads the tail to probe
	// for an existing marker.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		log.Error("opening stream", "err", err)

		return 1
	}
	defer f.Close()

	if err := recstream.AppendInitial(f); err != nil {
		log.Error("sealing stream tail", "err", err)

		return 1
	}

	count := 0

	appendOne := func(payload []byte) bool {
		if err := recstream.AppendRecord(f, *generation, payload); err != nil {
			log.Error("appending record", "len", len(payload), "err", err)

			return false
		}

		count++

		return true
	}

	if len(payloads) == 1 && payloads[0] == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, recstream.MaxWrite+1), recstream.MaxWrite+1)

		for scanner.Scan() {
			if !appendOne(append([]byte{}, scanner.Bytes()...)) {
				return 1
			}
		}

		if err := scanner.Err(); err != nil {
			log.Error("reading stdin", "err", err)

			return 1
		}
	} else {
		for _, p := range payloads {
			if !appendOne([]byte(p)) {
				return 1
			}
		}
	}

	log.Info("append complete", "records", count, "generation", *generation)

	return 0
}
