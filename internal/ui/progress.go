// Package ui renders terminal output for the vaultindex CLI.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

const (
	barWidth      = 24
	maxLabelRunes = 48
)

// IsTerminal reports whether the writer is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Progress renders indexing progress. On a terminal it redraws a
// single bar line; when output is piped it prints one line per note
// only in verbose mode, so CI logs stay readable.
type Progress struct {
	mu      sync.Mutex
	out     io.Writer
	tty     bool
	verbose bool
	drawn   bool
}

// NewProgress creates a renderer writing to out.
func NewProgress(out io.Writer, verbose bool) *Progress {
	return &Progress{
		out:     out,
		tty:     IsTerminal(out),
		verbose: verbose,
	}
}

// Update reports one completed item.
func (p *Progress) Update(done, total int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tty {
		p.drawBar(done, total, label)
		return
	}
	if p.verbose {
		fmt.Fprintf(p.out, "[%d/%d] %s\n", done, total, label)
	}
}

// Warn reports a per-note failure without interrupting the run.
func (p *Progress) Warn(label string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clearBar()
	fmt.Fprintf(p.out, "WARN: %s: %v\n", label, err)
}

// Finish ends the bar line so subsequent output starts clean.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.drawn {
		fmt.Fprintln(p.out)
		p.drawn = false
	}
}

func (p *Progress) drawBar(done, total int, label string) {
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)

	line := fmt.Sprintf("[%s] %d/%d %s", bar, done, total, truncateLabel(label))
	// Pad so a shorter redraw fully overwrites the previous line.
	fmt.Fprintf(p.out, "\r%-80s", line)
	p.drawn = true
}

func (p *Progress) clearBar() {
	if p.drawn {
		fmt.Fprintf(p.out, "\r%-80s\r", "")
		p.drawn = false
	}
}

func truncateLabel(label string) string {
	runes := []rune(label)
	if len(runes) <= maxLabelRunes {
		return label
	}
	return "..." + string(runes[len(runes)-maxLabelRunes:])
}
