package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/google/shlex"

	"hrpwm/config"
	"hrpwm/core"
)

var errQuit = errors.New("quit")

type shell struct {
	setup *config.Setup
	out   io.Writer
}

func newShell(setup *config.Setup, out io.Writer) *shell {
	return &shell{setup: setup, out: out}
}

// run executes commands from r until quit or end of input.
func (s *shell) run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		err := s.exec(scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

func (s *shell) channel(name string) (*core.Channel, error) {
	if ch := s.setup.Channel(name); ch != nil {
		return ch, nil
	}
	// a pin name or board alias also works
	if pin, ok := core.ParsePin(name); ok {
		if ch := s.setup.Complex.Channel(pin); ch != nil {
			return ch, nil
		}
	}
	return nil, fmt.Errorf("no channel %q", name)
}

func (s *shell) exec(line string) error {
	parts, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return nil
	}

	switch cmd, args := parts[0], parts[1:]; cmd {
	case "quit", "exit", "q":
		return errQuit

	case "help", "?":
		s.help()

	case "show":
		s.show()

	case "write":
		if len(args) != 2 {
			return errors.New("usage: write <channel> <duty 0..1>")
		}
		ch, err := s.channel(args[0])
		if err != nil {
			return err
		}
		duty, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return fmt.Errorf("duty %q: %w", args[1], err)
		}
		ch.Write(float32(duty))
		fmt.Fprintf(s.out, "%s: duty %.4f -> compare %d\n", args[0], ch.Read(), ch.Duty())

	case "start", "stop":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s <channel>", cmd)
		}
		ch, err := s.channel(args[0])
		if err != nil {
			return err
		}
		if cmd == "start" {
			ch.Start()
		} else {
			ch.Stop()
		}

	case "sync":
		if len(args) < 2 || len(args) > 3 {
			return errors.New("usage: sync <a> <b> [c]")
		}
		chs := make([]*core.Channel, len(args))
		for i, name := range args {
			ch, err := s.channel(name)
			if err != nil {
				return err
			}
			chs[i] = ch
		}
		chs[0].SyncWith(chs[1:]...)

	default:
		return fmt.Errorf("unknown command %q (type 'help' for available commands)", cmd)
	}
	return nil
}

func (s *shell) help() {
	fmt.Fprintln(s.out, "Available commands:")
	fmt.Fprintln(s.out, "  show                  - Print channel timing and state")
	fmt.Fprintln(s.out, "  write <ch> <duty>     - Set a duty cycle in [0,1]")
	fmt.Fprintln(s.out, "  start <ch>            - Start an output")
	fmt.Fprintln(s.out, "  stop <ch>             - Stop an output")
	fmt.Fprintln(s.out, "  sync <a> <b> [c]      - Restart outputs in phase")
	fmt.Fprintln(s.out, "  quit/exit/q           - Exit the program")
}

func (s *shell) show() {
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tPIN\tTIMER\tFREQ\tPRESCALER\tPERIOD\tDUTY RANGE\tMODE\tDUTY\tSTATE")
	for _, name := range s.setup.Order {
		ch := s.setup.Channel(name)
		tm := ch.Timing()
		mode, state := "normal", "stopped"
		if ch.Rollover() {
			mode = "rollover"
		}
		if ch.Running() {
			state = "running"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f Hz\t%s\t%d\t[%d,%d]\t%s\t%.4f (%d)\t%s\n",
			name, ch.Pin(), ch.Timer(), tm.Frequency(), tm.Prescaler, tm.Period,
			tm.DutyMin, tm.DutyMax, mode, ch.Read(), ch.Duty(), state)
	}
	w.Flush()
}
