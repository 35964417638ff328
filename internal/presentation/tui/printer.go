package tui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/rerun/pkg/domain"
	"github.com/aretw0/rerun/pkg/ports"
	"github.com/muesli/termenv"
)

// Printer is a transport that writes every update as one line, for replaying runs in a terminal.
//
//	main[0] <p>Hello</p>
//	main[2] ✂ <p>Changed</p>      (clear before)
//	main[3] ✂                     (truncate)
//	main/wx[+] <p>Appended</p>
type Printer struct {
	mu       sync.Mutex
	w        io.Writer
	out      *termenv.Output
	statuses bool
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithProfile forces a color profile, e.g. termenv.Ascii for plain text.
func WithProfile(p termenv.Profile) PrinterOption {
	return func(pr *Printer) {
		pr.out = termenv.NewOutput(pr.w, termenv.WithProfile(p))
	}
}

// WithStatuses also prints BEGIN, RUNNING and END notifications.
func WithStatuses(enabled bool) PrinterOption {
	return func(pr *Printer) {
		pr.statuses = enabled
	}
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, opts ...PrinterOption) *Printer {
	p := &Printer{w: w, out: termenv.NewOutput(w)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ ports.Transport = (*Printer)(nil)

// Send implements ports.Transport.
func (p *Printer) Send(_ string, u domain.Update) {
	pos := "+"
	if u.Index != nil {
		pos = fmt.Sprint(*u.Index)
	}

	var b strings.Builder
	b.WriteString(p.out.String(fmt.Sprintf("%s[%s]", u.Container.Key(), pos)).Foreground(p.out.Color("#38bdf8")).String())
	if u.ClearBefore {
		b.WriteString(" ")
		b.WriteString(p.out.String("✂").Foreground(p.out.Color("#f87171")).String())
	}
	if u.Render != nil {
		b.WriteString(" ")
		b.WriteString(*u.Render)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, b.String())
}

// SendStatus implements ports.Transport.
func (p *Printer) SendStatus(_ string, status domain.Status, unused map[string]int) {
	if !p.statuses {
		return
	}
	line := "-- " + string(status)
	if len(unused) > 0 {
		names := make([]string, 0, len(unused))
		for name, n := range unused {
			names = append(names, fmt.Sprintf("%s×%d", name, n))
		}
		sort.Strings(names)
		line += " unused: " + strings.Join(names, ", ")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.out.String(line).Faint())
}
