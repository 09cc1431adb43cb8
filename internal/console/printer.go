package console

import (
	"fmt"
	"io"

	"batchproc/internal/events"
)

// Options tunes a Printer.
type Options struct {
	Colorize    bool
	ShowDebug   bool
	BorderWidth int
}

// Printer writes relayed notifications to a terminal.
type Printer struct {
	out  io.Writer
	opts Options
}

// NewPrinter builds a Printer writing to out.
func NewPrinter(out io.Writer, opts Options) *Printer {
	if out == nil {
		out = io.Discard
	}
	return &Printer{out: out, opts: opts}
}

// Banner greets the user with the program name and version.
func (p *Printer) Banner(name, version string) {
	border := paint(Border('=', p.opts.BorderWidth), ansiBlue, p.opts.Colorize)
	fmt.Fprintln(p.out, border)
	fmt.Fprintf(p.out, "---- %s\n", name)
	if version != "" {
		fmt.Fprintf(p.out, "---- Version %s\n", version)
	}
	fmt.Fprintln(p.out, border)
}

// UnitStarting frames the unit name between two borders.
func (p *Printer) UnitStarting(name string, sequence int) {
	border := Border('=', p.opts.BorderWidth)
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, border)
	fmt.Fprintf(p.out, "%s (#%d)\n", name, sequence)
	fmt.Fprintln(p.out, border)
	fmt.Fprintln(p.out)
}

// Change prints "sender:: message".
func (p *Printer) Change(sender string, change events.Change) {
	if change.Category == events.CategoryDebug && !p.opts.ShowDebug {
		return
	}
	line := fmt.Sprintf("%s:: %s", sender, change.Message)
	fmt.Fprintln(p.out, paint(line, categoryColor(change.Category), p.opts.Colorize))
}

// Completion prints the result code and message of a finished unit.
func (p *Printer) Completion(sender string, completion events.Completion) {
	line := fmt.Sprintf("%s:: [%s]", sender, completion.Result)
	if completion.Message != "" {
		line += " " + completion.Message
	}
	color := ansiGreen
	if !completion.Result.Success() {
		color = ansiRed
	}
	fmt.Fprintln(p.out, paint(line, color, p.opts.Colorize))
}

// Status prints a labelled status line.
func (p *Printer) Status(label string, kind StatusKind, message string) {
	fmt.Fprintln(p.out, StatusLine(label, kind, message, p.opts.Colorize))
}
