// Package console is the interactive front-end for both sides of an
// auction.  When stdin is a terminal it gets line editing and history
// from golang.org/x/term; otherwise commands are read line by line,
// which is how scripted sessions and tests drive it.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ErrQuit is returned by Run when the user asks to leave.
var ErrQuit = errors.New("quit")

// Command is one shell verb.
type Command struct {
	Name  string
	Usage string // argument synopsis, e.g. "<amount>"
	Help  string
	Run   func(args []string) error
}

// Shell reads commands and writes output without the two clobbering
// each other.
type Shell struct {
	out      io.Writer
	readLine func() (string, error)
	restore  func()

	mu   sync.Mutex
	cmds map[string]Command
}

// New attaches a shell to in and out.  If in is a terminal it is put
// into raw mode until Close.
func New(in io.Reader, out io.Writer, prompt string) (*Shell, error) {
	s := &Shell{cmds: make(map[string]Command), restore: func() {}}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return nil, fmt.Errorf("terminal raw mode: %w", err)
		}
		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{in, out}, prompt)
		s.out = t
		s.readLine = t.ReadLine
		s.restore = func() { term.Restore(int(f.Fd()), state) } //nolint:errcheck
		return s, nil
	}

	sc := bufio.NewScanner(in)
	s.out = &syncWriter{w: out}
	s.readLine = func() (string, error) {
		if sc.Scan() {
			return sc.Text(), nil
		}
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s, nil
}

// Writer returns the shell's output stream.  Log output should be
// routed here so it does not break the prompt.
func (s *Shell) Writer() io.Writer { return s.out }

// Printf writes a line of output.
func (s *Shell) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	io.WriteString(s.out, msg) //nolint:errcheck
}

// Handle registers commands, replacing any with the same name.
func (s *Shell) Handle(cmds ...Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cmds {
		s.cmds[c.Name] = c
	}
}

// Run reads and executes commands until ctx is cancelled, input ends
// (io.EOF) or a command returns ErrQuit.  Other command errors are
// printed and the loop continues.
func (s *Shell) Run(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		for {
			line, err := s.readLine()
			if err != nil {
				errc <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			return err
		case line := <-lines:
			if err := s.Exec(line); err != nil {
				if errors.Is(err, ErrQuit) {
					return ErrQuit
				}
				s.Printf("error: %v", err)
			}
		}
	}
}

// Exec runs a single command line.
func (s *Shell) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name := strings.ToLower(fields[0])
	switch name {
	case "help", "?":
		s.printHelp()
		return nil
	case "quit", "exit":
		return ErrQuit
	}

	s.mu.Lock()
	cmd, ok := s.cmds[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown command %q (try 'help')", fields[0])
	}
	return cmd.Run(fields[1:])
}

// Close restores the terminal.
func (s *Shell) Close() { s.restore() }

func (s *Shell) printHelp() {
	s.mu.Lock()
	cmds := make([]Command, 0, len(s.cmds))
	for _, c := range s.cmds {
		cmds = append(cmds, c)
	}
	s.mu.Unlock()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, c := range cmds {
		fmt.Fprintf(&b, "  %-22s %s\n", strings.TrimSpace(c.Name+" "+c.Usage), c.Help)
	}
	fmt.Fprintf(&b, "  %-22s %s\n", "help", "show this list")
	fmt.Fprintf(&b, "  %-22s %s", "quit", "leave the program")
	s.Printf("%s", b.String())
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}
