// recsh is an interactive inspector for record stream files.
//
// Usage:
//
//	recsh <stream-file>
//
// Commands (in REPL):
//
//	next [n]        Yield the next n records (default 1)
//	locate <off>    Move the cursor to a byte offset
//	stop <off>      Bound iteration to records starting before off
//	reset           Rewind to the first record
//	info            Show stream size and cursor position
//	dump            Yield all remaining records
//	help            Show this help
//	exit / quit / q Exit
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/recstream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: recsh <stream-file>")

		return errors.New("missing stream file path")
	}

	path := os.Args[1]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}
	defer f.Close()

	it, err := recstream.OpenIterator(f)
	if err != nil {
		return fmt.Errorf("mapping stream: %w", err)
	}
	defer it.Close()

	repl := &REPL{path: path, it: it}

	return repl.Run()
}

// REPL is the interactive command loop.
type REPL struct {
	path    string
	it      *recstream.Iterator
	scratch [recstream.MaxRead]byte
	liner   *liner.State
	yielded int
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".recsh_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("recsh - record stream inspector (%s, %d bytes)\n", r.path, r.it.Size())
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("recsh> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")

			r.saveHistory()

			return nil

		case "help", "?":
			printHelp()

		case "next", "n":
			r.cmdNext(args)

		case "locate":
			r.cmdLocate(args)

		case "stop":
			r.cmdStop(args)

		case "reset":
			r.cmdReset()

		case "info":
			r.cmdInfo()

		case "dump":
			r.cmdDump()

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

func completer(line string) []string {
	commands := []string{
		"next", "locate", "stop", "reset",
		"info", "dump", "help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  next [n]        Yield the next n records (default 1)")
	fmt.Println("  locate <off>    Move the cursor to a byte offset")
	fmt.Println("  stop <off>      Bound iteration to records starting before off")
	fmt.Println("  reset           Rewind to the first record")
	fmt.Println("  info            Show stream size and cursor position")
	fmt.Println("  dump            Yield all remaining records")
	fmt.Println("  help            Show this help")
	fmt.Println("  exit / quit / q Exit")
}

func (r *REPL) printRecord(rec recstream.Record) {
	r.yielded++

	payload := "(empty)"
	if len(rec.Payload) > 0 {
		if printable(rec.Payload) {
			payload = fmt.Sprintf("%q", rec.Payload)
		} else {
			payload = hex.EncodeToString(rec.Payload)
		}
	}

	fmt.Printf("%4d. gen=%-10d len=%-4d %s\n", r.yielded, rec.Generation, len(rec.Payload), payload)
}

func printable(p []byte) bool {
	for _, b := range p {
		if b < 0x20 || b > 0x7E {
			return false
		}
	}

	return true
}

func (r *REPL) cmdNext(args []string) {
	count := 1

	if len(args) >= 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			fmt.Println("Usage: next [n]")

			return
		}

		count = n
	}

	for i := 0; i < count; i++ {
		rec, ok := r.it.Next(r.scratch[:])
		if !ok {
			fmt.Println("(end of stream)")

			return
		}

		r.printRecord(rec)
	}
}

func (r *REPL) cmdLocate(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: locate <offset>")

		return
	}

	off, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Error parsing offset: %v\n", err)

		return
	}

	if err := r.it.LocateAt(off); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: cursor at %d\n", off)
}

func (r *REPL) cmdStop(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: stop <offset>")

		return
	}

	off, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Printf("Error parsing offset: %v\n", err)

		return
	}

	if err := r.it.StopAt(off); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: iteration bounded to records starting before %d\n", off)
}

func (r *REPL) cmdReset() {
	if err := r.it.StopAt(r.it.Size()); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	off := r.it.FirstOffset()
	if err := r.it.LocateAt(off); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	r.yielded = 0

	fmt.Printf("OK: cursor at %d\n", off)
}

func (r *REPL) cmdInfo() {
	fmt.Printf("Stream Info:\n")
	fmt.Printf("  Path:    %s\n", r.path)
	fmt.Printf("  Size:    %d bytes\n", r.it.Size())
	fmt.Printf("  Cursor:  %d\n", r.it.Offset())
	fmt.Printf("  Yielded: %d records this session\n", r.yielded)
}

func (r *REPL) cmdDump() {
	for {
		rec, ok := r.it.Next(r.scratch[:])
		if !ok {
			fmt.Println("(end of stream)")

			return
		}

		r.printRecord(rec)
	}
}
