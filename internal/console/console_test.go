package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

func TestAskYesNo(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Answer
	}{
		{"yes", "yes\n", AnswerYes},
		{"y", "y\n", AnswerYes},
		{"uppercase yes", "YES\n", AnswerYes},
		{"no", "no\n", AnswerNo},
		{"n", "n\n", AnswerNo},
		{"empty defaults to no", "\n", AnswerNo},
		{"quit", "q\n", AnswerQuit},
		{"uppercase quit", "Q\n", AnswerQuit},
		{"whitespace trimmed", "  y  \n", AnswerYes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			c := New(strings.NewReader(tt.input), out, out)

			got, err := c.AskYesNo("Replay request 1/2?")
			if err != nil {
				t.Fatalf("ask failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected answer %v, got %v", tt.want, got)
			}
			if !strings.Contains(out.String(), "[y/N/q]") {
				t.Fatalf("prompt missing choices hint: %q", out.String())
			}
		})
	}
}

func TestAskYesNo_RepromptsOnGarbage(t *testing.T) {
	out := &bytes.Buffer{}
	c := New(strings.NewReader("maybe\nwhat\ny\n"), out, out)

	got, err := c.AskYesNo("Replay?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if got != AnswerYes {
		t.Fatalf("expected yes after reprompts, got %v", got)
	}
	if hints := strings.Count(out.String(), "Please respond"); hints != 2 {
		t.Fatalf("expected 2 usage hints, got %d", hints)
	}
	if prompts := strings.Count(out.String(), "Replay?"); prompts != 3 {
		t.Fatalf("expected 3 prompts, got %d", prompts)
	}
}

func TestAskYesNo_InputClosed(t *testing.T) {
	out := &bytes.Buffer{}
	c := New(strings.NewReader(""), out, out)

	if _, err := c.AskYesNo("Replay?"); err == nil {
		t.Fatal("expected an error when input is exhausted")
	}
}

func TestConsole_ErrorStreamSeparation(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	c := New(strings.NewReader(""), out, errOut)

	c.Successf("-> SUCCEEDED: ok")
	c.Failf("-> FAILED: bad")

	if !strings.Contains(out.String(), "SUCCEEDED") || strings.Contains(out.String(), "FAILED") {
		t.Fatalf("stdout stream wrong: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "FAILED") || strings.Contains(errOut.String(), "SUCCEEDED") {
		t.Fatalf("error stream wrong: %q", errOut.String())
	}
}
