// Package console handles user-facing terminal output and prompts.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Answer is the outcome of a yes/no/quit prompt.
type Answer int

const (
	AnswerNo Answer = iota
	AnswerYes
	AnswerQuit
)

// ColorScheme color scheme for replay output
type ColorScheme struct {
	Success *color.Color
	Failure *color.Color
	Notice  *color.Color
	Prompt  *color.Color
}

// NewColorScheme creates the default color scheme
func NewColorScheme() *ColorScheme {
	return &ColorScheme{
		Success: color.New(color.FgGreen, color.Bold),
		Failure: color.New(color.FgRed, color.Bold),
		Notice:  color.New(color.FgCyan),
		Prompt:  color.New(color.FgYellow),
	}
}

// Console writes colored status lines and reads interactive answers. The
// error stream is passed in by the caller: interactive runs report errors on
// stdout so tables, prompts, and failures stay in order, non-interactive
// runs keep stderr separate.
type Console struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	scheme *ColorScheme
}

// New creates a console over the given streams.
func New(in io.Reader, out, errOut io.Writer) *Console {
	return &Console{
		in:     bufio.NewReader(in),
		out:    out,
		errOut: errOut,
		scheme: NewColorScheme(),
	}
}

// Infof prints a plain informational line.
func (c *Console) Infof(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Noticef prints a highlighted informational line.
func (c *Console) Noticef(format string, args ...interface{}) {
	c.scheme.Notice.Fprintf(c.out, format+"\n", args...)
}

// Successf prints a green success line.
func (c *Console) Successf(format string, args ...interface{}) {
	c.scheme.Success.Fprintf(c.out, format+"\n", args...)
}

// Failf prints a red failure line on the error stream.
func (c *Console) Failf(format string, args ...interface{}) {
	c.scheme.Failure.Fprintf(c.errOut, format+"\n", args...)
}

// AskYesNo asks question and reads one answer per line, case-insensitive:
// yes/y, no/n, q, or empty for no. Anything else prints a usage hint and
// asks again; there is no retry limit.
func (c *Console) AskYesNo(question string) (Answer, error) {
	for {
		c.scheme.Prompt.Fprintf(c.out, "%s [y/N/q] ", question)

		line, err := c.in.ReadString('\n')
		if err != nil && line == "" {
			return AnswerNo, fmt.Errorf("read answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return AnswerNo, nil
		case "y", "yes":
			return AnswerYes, nil
		case "n", "no":
			return AnswerNo, nil
		case "q":
			return AnswerQuit, nil
		default:
			c.Infof("Please respond with 'yes' or 'no' or 'quit' (or 'y' or 'n' or 'q').")
		}
	}
}
