package ports

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TerminalInteractor implements Interactor over a line oriented reader and
// writer, usually stdin and stderr.
type TerminalInteractor struct {
	in  *bufio.Reader
	out io.Writer
	mu  sync.Mutex
}

var _ Interactor = (*TerminalInteractor)(nil)

func NewTerminalInteractor(in io.Reader, out io.Writer) *TerminalInteractor {
	return &TerminalInteractor{in: bufio.NewReader(in), out: out}
}

func (t *TerminalInteractor) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *TerminalInteractor) Output(message string) {
	t.printf("%s\n", message)
}

func (t *TerminalInteractor) Warning(message string) {
	t.printf("Warning: %s\n", message)
}

func (t *TerminalInteractor) Error(message string, err error) {
	if err == nil {
		t.printf("Error: %s\n", message)
		return
	}
	t.printf("Error: %s: %v\n", message, err)
}

// StartSpinner prints the message; terminals without cursor control get a
// single line instead of an animation.
func (t *TerminalInteractor) StartSpinner(message string) {
	t.printf("%s...\n", message)
}

func (t *TerminalInteractor) StopSpinner(success bool, message string) {
	mark := "done"
	if !success {
		mark = "failed"
	}
	t.printf("%s (%s)\n", message, mark)
}

func (t *TerminalInteractor) readLine(prompt string) (string, bool) {
	t.printf("%s ", prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}

// SelectDirectory re-prompts until an existing directory or an empty line
// is entered.
func (t *TerminalInteractor) SelectDirectory(prompt string) (string, bool) {
	return t.selectPath(prompt, true)
}

// SelectFile re-prompts until an existing file or an empty line is entered.
func (t *TerminalInteractor) SelectFile(prompt string) (string, bool) {
	return t.selectPath(prompt, false)
}

func (t *TerminalInteractor) selectPath(prompt string, dir bool) (string, bool) {
	for {
		line, ok := t.readLine(prompt)
		if !ok || line == "" {
			return "", false
		}
		path := filepath.Clean(strings.Trim(line, `"'`))
		info, err := os.Stat(path)
		switch {
		case err != nil:
			t.Warning(fmt.Sprintf("%s does not exist", path))
		case dir && !info.IsDir():
			t.Warning(fmt.Sprintf("%s is not a directory", path))
		case !dir && info.IsDir():
			t.Warning(fmt.Sprintf("%s is a directory", path))
		default:
			return path, true
		}
	}
}

func (t *TerminalInteractor) Confirm(prompt string, def bool) bool {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	for {
		line, ok := t.readLine(prompt + " " + hint)
		if !ok {
			return def
		}
		switch strings.ToLower(line) {
		case "":
			return def
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
	}
}
