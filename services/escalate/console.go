package escsvc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/trezcool/darasa/core"
)

// abortInput backs out of the current prompt.
const abortInput = "q"

type consolePort struct {
	in  *bufio.Reader
	out io.Writer
}

var _ core.EscalationPort = (*consolePort)(nil)

// NewConsolePort prompts the operator on stdin/stdout. Entering "q" at any
// prompt aborts it with core.ErrEscalationAborted.
func NewConsolePort() core.EscalationPort {
	return newConsolePort(os.Stdin, os.Stdout)
}

func newConsolePort(in io.Reader, out io.Writer) *consolePort {
	return &consolePort{in: bufio.NewReader(in), out: out}
}

func (p *consolePort) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", core.ErrEscalationAborted
	}
	line = strings.TrimSpace(line)
	if line == abortInput {
		return "", core.ErrEscalationAborted
	}
	return line, nil
}

func (p *consolePort) Choose(prompt string, options []string) (int, error) {
	fmt.Fprintln(p.out, prompt)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}
	for {
		fmt.Fprintf(p.out, "choice [1-%d, q to skip]: ", len(options))
		line, err := p.readLine()
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(options) {
			fmt.Fprintln(p.out, "invalid choice")
			continue
		}
		return n - 1, nil
	}
}

func (p *consolePort) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (p *consolePort) CollectFields(prompts []core.FieldPrompt) (map[string]string, error) {
	fields := make(map[string]string, len(prompts))
	for _, fp := range prompts {
		fmt.Fprintf(p.out, "%s: ", fp.Label)
		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		fields[fp.Name] = line
	}
	return fields, nil
}
