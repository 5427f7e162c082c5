package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter asks questions on an interactive terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter reading answers from in and writing
// questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prompts for a free-text answer. An empty answer returns def.
func (p *Prompter) Ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	input, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return def, nil
	}
	return input, nil
}

// Option is one numbered choice offered by Choose.
type Option struct {
	Value string
	Label string
}

// Choose prints a numbered list and returns the chosen option's value. The
// answer may be the number or the value itself; anything else asks again.
func (p *Prompter) Choose(label string, options []Option) (string, error) {
	for {
		fmt.Fprintf(p.out, "%s:\n", label)
		for i, o := range options {
			fmt.Fprintf(p.out, "  %d) %s\n", i+1, o.Label)
		}
		answer, err := p.Ask("Escolha", "")
		if err != nil {
			return "", err
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return options[n-1].Value, nil
		}
		for _, o := range options {
			if strings.EqualFold(answer, o.Value) || strings.EqualFold(answer, o.Label) {
				return o.Value, nil
			}
		}
		fmt.Fprintf(p.out, "Opção inválida: %q\n", answer)
	}
}

// Confirm asks a yes/no question. Only an explicit yes returns true.
func (p *Prompter) Confirm(label string) (bool, error) {
	answer, err := p.Ask(label+" (s/N)", "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "s", "sim", "y", "yes":
		return true, nil
	}
	return false, nil
}
