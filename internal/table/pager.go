package table

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	fallbackRows = 20
	fallbackCols = 80
)

// Pager shows content one screenful at a time, less-style: space advances a
// full page, enter advances one line, q stops. One screenful is the terminal
// height minus the prompt line.
type Pager struct {
	out io.Writer

	// size and readKey are injectable for tests; the defaults probe the
	// process tty.
	size    func() (rows, cols int)
	readKey func() (byte, error)
}

// NewPager creates a pager bound to the process terminal.
func NewPager() *Pager {
	return &Pager{
		out:     os.Stdout,
		size:    terminalSize,
		readKey: readRawKey,
	}
}

// Show pages through content until it is exhausted or the user quits.
func (p *Pager) Show(content string) error {
	lines := strings.Split(content, "\n")
	rows, _ := p.size()
	pageSize := rows - 1
	if pageSize < 1 {
		pageSize = 1
	}

	current := 0
	for current < len(lines) {
		end := current + pageSize
		if end > len(lines) {
			end = len(lines)
		}

		fmt.Fprint(p.out, "\033[2J\033[H")
		fmt.Fprint(p.out, strings.Join(lines[current:end], "\n"))

		if end >= len(lines) {
			fmt.Fprintln(p.out)
			return nil
		}

		fmt.Fprint(p.out, "\n:")
		key, err := p.readKey()
		if err != nil {
			return fmt.Errorf("read pager key: %w", err)
		}

		switch key {
		case 'q', 'Q':
			fmt.Fprintln(p.out)
			return nil
		case ' ':
			current = end
		case '\r', '\n':
			current++
		}
	}
	return nil
}

// terminalSize probes the terminal dimensions with a fixed fallback when the
// probe fails (no tty, pipes).
func terminalSize() (rows, cols int) {
	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || rows < 2 || cols < 1 {
		return fallbackRows, fallbackCols
	}
	return rows, cols
}

// readRawKey reads a single key press without waiting for a newline.
func readRawKey() (byte, error) {
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		// Not a tty: fall back to a buffered single-byte read.
		var buf [1]byte
		if _, err := os.Stdin.Read(buf[:]); err != nil {
			return 0, err
		}
		return buf[0], nil
	}
	defer term.Restore(fd, state)

	var buf [1]byte
	if _, err := os.Stdin.Read(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
