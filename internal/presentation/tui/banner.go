package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the portal banner in a blue to teal gradient.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{`  _____ _                 _   _     `, "#60a5fa"},
		{` |  ___(_)_  ___ __   __ _| |_| |__  `, "#38bdf8"},
		{` | |_  | \ \/ / '_ \ / _' | __| '_ \ `, "#22d3ee"},
		{` |  _| | |>  <| |_) | (_| | |_| | | |`, "#2dd4bf"},
		{` |_|   |_/_/\_\ .__/ \__,_|\__|_| |_|`, "#34d399"},
		{`              |_|                    `, "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Notice styles a one-line status message: warnings in yellow, everything
// else in green.
func Notice(w io.Writer, warn bool, msg string) {
	out := termenv.NewOutput(w)
	color := "#22c55e"
	if warn {
		color = "#eab308"
	}
	fmt.Fprintln(w, out.String(msg).Foreground(out.Color(color)))
}
