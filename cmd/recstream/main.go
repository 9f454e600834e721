// recstream is a maintenance CLI for self-synchronising record stream
// files.
//
// Usage:
//
//	recstream dump <file>      Print every valid record
//	recstream verify <file>    Walk a stream and report skipped bytes
//	recstream append <file>    Append records from argv or stdin
//	recstream compact <file>   Rewrite a stream keeping only valid records
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || hasHelpFlag(args) {
		printUsage(os.Stderr)

		if len(args) == 0 {
			return 1
		}

		return 0
	}

	cfg, err := LoadConfig(os.Environ())
	if err != nil {
		log.Error("loading config", "err", err)

		return 1
	}

	if lvl, parseErr := log.ParseLevel(cfg.LogLevel); parseErr == nil {
		log.SetLevel(lvl)
	}

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "dump":
		return cmdDump(os.Stdout, cfg, rest)
	case "verify":
		return cmdVerify(os.Stdout, rest)
	case "append":
		return cmdAppend(rest)
	case "compact":
		return cmdCompact(rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage(os.Stderr)

		return 1
	}
}

func hasHelpFlag(args []string) bool {
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return true
		}
	}

	return false
}

func printUsage(w *os.File) {
	fmt.Fprint(w, `Usage: recstream <command> [options] <file>

Commands:
  dump <file>      Print every valid record (generation, length, payload)
  verify <file>    Walk the stream and report bytes skipped as garbage
  append <file>    Append records from the command line or stdin
  compact <file>   Rewrite the stream keeping only valid records

-h or --help anywhere on the command line prints this overview; commands
print no option lists of their own.
`)
}
