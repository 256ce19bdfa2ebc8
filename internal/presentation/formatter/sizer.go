package formatter

import (
	"os"

	"golang.org/x/term"

	"github.com/penwyp/tracevis/internal/util"
)

const (
	fallbackWidth = 100
	minWidth      = 60
)

// terminalWidth returns the width of the terminal on stdout, or a fallback
// when stdout is not a terminal.
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < minWidth {
		width = fallbackWidth
	}
	util.LogDebugf("Report width %d", width)
	return width
}
