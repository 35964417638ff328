package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// NewRenderer returns a markdown renderer for terminal narration.
// Output that is not a terminal gets the plain "notty" style so logs and pipes stay readable.
func NewRenderer(f *os.File) func(string) (string, error) {
	style := glamour.WithAutoStyle()
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(100))
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}
