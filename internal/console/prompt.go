package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter reads line-oriented answers from an input stream.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter reads from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Choose lists options as "[i] - name" and loops until the answer names one
// of them, by index or case-insensitive name. It returns io.EOF when the
// input ends.
func (p *Prompter) Choose(prompt string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("no options for %q", prompt)
	}
	for {
		fmt.Fprintln(p.out, prompt)
		for i, option := range options {
			fmt.Fprintf(p.out, "  [%d] - %s\n", i, option)
		}
		fmt.Fprint(p.out, "Value: ")

		answer, err := p.readLine()
		if err != nil {
			return 0, err
		}
		if index, ok := matchOption(answer, options); ok {
			return index, nil
		}
		fmt.Fprintln(p.out, "The value entered does not exist in the value list.  Please try again.")
	}
}

// ReadString prompts once and returns the trimmed answer.
func (p *Prompter) ReadString(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	return p.readLine()
}

func (p *Prompter) readLine() (string, error) {
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func matchOption(answer string, options []string) (int, bool) {
	if answer == "" {
		return 0, false
	}
	if index, err := strconv.Atoi(answer); err == nil {
		return index, index >= 0 && index < len(options)
	}
	for i, option := range options {
		if strings.EqualFold(option, answer) {
			return i, true
		}
	}
	return 0, false
}
