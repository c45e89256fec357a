// Package script runs the line-oriented command language of vmsim.
//
// Each line holds one command:
//
//	r <addr>          prints the byte at addr as "0xADDR => 0xVAL"
//	w <addr> <byte>   stores a byte
//	stats             prints the statistics
//	flush             writes every dirty page back
//
// Numbers use Go literal syntax, such as 0xCAFE or 51966. Blank lines and
// lines starting with # are skipped.
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
)

// ErrInvalidCommand is returned by Parse for lines it cannot understand.
var ErrInvalidCommand = errors.New("invalid command")

// Op is what a command does.
type Op int

// The operations of the language.
const (
	OpRead Op = iota
	OpWrite
	OpStats
	OpFlush
)

// A Command is a parsed line.
type Command struct {
	Op      Op
	Address uint64
	Value   byte
}

// Memory is what the commands run against.
type Memory interface {
	Read(addr uint64) (byte, error)
	Write(addr uint64, value byte) error
	FlushAll() error
	Stats() mmu.Stats
}

// Progress is told when each command starts and finishes.
type Progress interface {
	IncrementInProgress(amount uint64)
	MoveInProgressToFinished(amount uint64)
}

// Parse parses one line. It returns false for lines without a command.
func Parse(line string) (Command, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Command{}, false, nil
	}

	tokens := strings.Fields(line)

	switch strings.ToLower(tokens[0]) {
	case "r":
		if len(tokens) != 2 {
			return Command{}, false, invalid(line)
		}

		addr, err := strconv.ParseUint(tokens[1], 0, 64)
		if err != nil {
			return Command{}, false, invalid(line)
		}

		return Command{Op: OpRead, Address: addr}, true, nil
	case "w":
		if len(tokens) != 3 {
			return Command{}, false, invalid(line)
		}

		addr, err := strconv.ParseUint(tokens[1], 0, 64)
		if err != nil {
			return Command{}, false, invalid(line)
		}

		value, err := strconv.ParseUint(tokens[2], 0, 8)
		if err != nil {
			return Command{}, false, invalid(line)
		}

		return Command{Op: OpWrite, Address: addr, Value: byte(value)}, true, nil
	case "stats":
		return Command{Op: OpStats}, true, nil
	case "flush":
		return Command{Op: OpFlush}, true, nil
	default:
		return Command{}, false, invalid(line)
	}
}

func invalid(line string) error {
	return fmt.Errorf("%w: %s", ErrInvalidCommand, line)
}

// A Runner executes commands against a memory and prints their results.
type Runner struct {
	mem      Memory
	out      io.Writer
	logger   *slog.Logger
	progress Progress
}

// NewRunner creates a runner that prints to out.
func NewRunner(mem Memory, out io.Writer) *Runner {
	return &Runner{
		mem:    mem,
		out:    out,
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithLogger sets the logger of the runner.
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	r.logger = logger
	return r
}

// WithProgress sets where the runner reports its progress.
func (r *Runner) WithProgress(p Progress) *Runner {
	r.progress = p
	return r
}

// Run executes the commands of in until EOF. Invalid lines and out-of-bounds
// addresses are reported on the output and skipped. Any other error stops the
// run.
func (r *Runner) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++

		cmd, ok, err := Parse(scanner.Text())
		if err != nil {
			r.logger.Warn("skipping line", "line", lineNumber, "error", err)
			fmt.Fprintln(r.out, err)

			continue
		}

		if !ok {
			continue
		}

		err = r.Exec(cmd)
		if errors.Is(err, vm.ErrAddressOutOfBounds) {
			r.logger.Warn("skipping command", "line", lineNumber, "error", err)
			fmt.Fprintf(r.out, "error: %v\n", err)

			continue
		}

		if err != nil {
			return fmt.Errorf("line %d: %w", lineNumber, err)
		}
	}

	return scanner.Err()
}

// Exec executes a single command.
func (r *Runner) Exec(cmd Command) error {
	if r.progress != nil {
		r.progress.IncrementInProgress(1)
		defer r.progress.MoveInProgressToFinished(1)
	}

	switch cmd.Op {
	case OpRead:
		value, err := r.mem.Read(cmd.Address)
		if err != nil {
			return err
		}

		fmt.Fprintf(r.out, "0x%04X => 0x%X\n", cmd.Address, value)
	case OpWrite:
		return r.mem.Write(cmd.Address, cmd.Value)
	case OpStats:
		r.mem.Stats().Print(r.out)
	case OpFlush:
		return r.mem.FlushAll()
	default:
		panic(fmt.Sprintf("unknown op %d", cmd.Op))
	}

	return nil
}
