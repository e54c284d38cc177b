// Package report renders matcher pairings as text, one line per scheduled
// slot and a blank line after each generation.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"schedulematch/internal/model"
)

const NoMatch = "NO MATCH"

var (
	colorMatched = lipgloss.Color("#2CD7C7")
	colorMissing = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#2C4A54")
)

type Printer struct {
	w       io.Writer
	color   bool
	matched lipgloss.Style
	missing lipgloss.Style
	header  lipgloss.Style
}

// NewPrinter colours its output only when w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	return newPrinter(w, isTerminal(w))
}

func newPrinter(w io.Writer, color bool) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		color:   color,
		matched: r.NewStyle().Foreground(colorMatched),
		missing: r.NewStyle().Foreground(colorMissing).Bold(true),
		header:  r.NewStyle().Foreground(colorMuted),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Line formats a single pairing without styling.
func Line(p model.Pairing) string {
	if !p.Matched() {
		return FormatTime(p.Scheduled) + " " + NoMatch
	}
	return FormatTime(p.Scheduled) + " " + FormatTime(*p.Dose)
}

func FormatTime(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteGeneration writes one block of pairings followed by a blank line.
func (p *Printer) WriteGeneration(pairings []model.Pairing) error {
	for _, pairing := range pairings {
		if _, err := fmt.Fprintln(p.w, p.styled(pairing)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(p.w)
	return err
}

// WriteHeader writes a muted label line, used before a generation block when
// every generation is printed.
func (p *Printer) WriteHeader(label string) error {
	if p.color {
		label = p.header.Render(label)
	}
	_, err := fmt.Fprintln(p.w, label)
	return err
}

func (p *Printer) styled(pairing model.Pairing) string {
	if !p.color {
		return Line(pairing)
	}
	scheduled := FormatTime(pairing.Scheduled)
	if !pairing.Matched() {
		return scheduled + " " + p.missing.Render(NoMatch)
	}
	return scheduled + " " + p.matched.Render(FormatTime(*pairing.Dose))
}
