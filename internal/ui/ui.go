// Package ui writes user-facing messages: successes in green on stdout,
// errors in red on stderr, titles bold and underlined. Colors are dropped
// automatically when a writer is not a terminal.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Printer owns the command's output streams.
type Printer struct {
	out io.Writer
	err io.Writer

	ok    lipgloss.Style
	fail  lipgloss.Style
	title lipgloss.Style
}

// New creates a Printer for stdout and stderr.
func New(stdout, stderr io.Writer) *Printer {
	outRenderer := lipgloss.NewRenderer(stdout)
	errRenderer := lipgloss.NewRenderer(stderr)
	return &Printer{
		out:   stdout,
		err:   stderr,
		ok:    outRenderer.NewStyle().Foreground(lipgloss.Color("2")),
		fail:  errRenderer.NewStyle().Foreground(lipgloss.Color("1")),
		title: outRenderer.NewStyle().Bold(true).Underline(true),
	}
}

// OK prints a success line on stdout.
func (p *Printer) OK(format string, args ...any) {
	fmt.Fprintln(p.out, p.ok.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error line on stderr.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.err, p.fail.Render(fmt.Sprintf(format, args...)))
}

// Title prints a heading on stdout.
func (p *Printer) Title(format string, args ...any) {
	fmt.Fprintln(p.out, p.title.Render(fmt.Sprintf(format, args...)))
}

// Line prints an unstyled line on stdout.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Stdout returns the writer for raw output such as a revealed password.
func (p *Printer) Stdout() io.Writer { return p.out }
