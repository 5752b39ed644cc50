// Package cliui provides terminal output helpers (styles, step indicators,
// aligned summaries, duration and rate formatting) shared by glyph CLI
// commands.
package cliui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"charm.land/lipgloss/v2"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")

	StepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	HeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinnerInterval = 80 * time.Millisecond

// spinner redraws a single status line until stop is called.
type spinner struct {
	w    io.Writer
	msg  string
	mu   sync.Mutex
	done chan struct{}
	exit chan struct{}
}

func startSpinner(w io.Writer, msg string) *spinner {
	s := &spinner{w: w, msg: msg, done: make(chan struct{}), exit: make(chan struct{})}
	go s.loop()
	return s
}

func (s *spinner) loop() {
	defer close(s.exit)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		s.draw(spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), "")
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}
	}
}

func (s *spinner) draw(mark, suffix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r  %s %s%s", mark, s.msg, suffix)
}

// stop halts the animation and leaves the final mark on the line.
func (s *spinner) stop(err error, elapsed time.Duration) {
	close(s.done)
	<-s.exit
	s.draw(Mark(err), " "+StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed)))+"\n")
}

// Step shows a spinner next to msg while fn runs, then a ✓ or ✗ with the
// elapsed time. It returns fn's error.
func Step(w io.Writer, msg string, fn func() error) error {
	s := startSpinner(w, msg)
	start := time.Now()
	err := fn()
	s.stop(err, time.Since(start))
	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// Pair is one row of a KeyValues block.
type Pair struct {
	Key   string
	Value string
}

// KeyValues writes pairs as an indented block with the values aligned.
func KeyValues(w io.Writer, pairs ...Pair) {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p.Key))
	}
	for _, p := range pairs {
		pad := strings.Repeat(" ", width-lipgloss.Width(p.Key))
		fmt.Fprintf(w, "  %s%s  %s\n", KeyStyle.Render(p.Key+":"), pad, ValueStyle.Render(p.Value))
	}
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// FormatRate formats a per-second rate (e.g. "1234.56/sec").
func FormatRate(r float64) string {
	return fmt.Sprintf("%.2f/sec", r)
}
