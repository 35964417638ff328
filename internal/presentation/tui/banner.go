package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct{ text, color string }{
	{"  _ __ ___ _ __ _   _ _ __  ", "#34d399"},
	{" | '__/ _ \\ '__| | | | '_ \\ ", "#2dd4bf"},
	{" | | |  __/ |  | |_| | | | |", "#22d3ee"},
	{" |_|  \\___|_|   \\__,_|_| |_|", "#38bdf8"},
}

// PrintBanner writes the rerun banner and version, colored when the writer supports it.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
