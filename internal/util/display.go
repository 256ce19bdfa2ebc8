package util

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Terminal control sequences
const (
	ColorReset   = "\033[0m"
	ColorCyan    = "\033[36m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorRed     = "\033[31m"
	ColorMagenta = "\033[35m"
	ColorBold    = "\033[1m"

	ClearLine = "\033[2K"
)

// GetDisplayWidth returns the number of terminal cells text occupies.
func GetDisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// PadRight pads text with spaces to width cells, truncating with an ellipsis
// when it does not fit.
func PadRight(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) > width {
		text = runewidth.Truncate(text, width, "…")
	}
	return runewidth.FillRight(text, width)
}

// CreateProgressBar renders a bar of width cells for done out of total.
func CreateProgressBar(done, total, width int) string {
	if width < 3 {
		width = 3
	}
	barWidth := width - 2
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}

// FormatHeaderTitle formats main header titles (Magenta + Bold)
func FormatHeaderTitle(title string) string {
	return fmt.Sprintf("%s%s%s%s", ColorBold, ColorMagenta, title, ColorReset)
}

// FormatWarning formats a warning line (Yellow + Bold)
func FormatWarning(text string) string {
	return fmt.Sprintf("%s%s%s%s", ColorBold, ColorYellow, text, ColorReset)
}

// FormatSuccess formats a completion line (Green)
func FormatSuccess(text string) string {
	return fmt.Sprintf("%s%s%s", ColorGreen, text, ColorReset)
}

// FormatFailure formats an error line (Red + Bold)
func FormatFailure(text string) string {
	return fmt.Sprintf("%s%s%s%s", ColorBold, ColorRed, text, ColorReset)
}

// FormatSectionSeparator creates a separator line width cells wide.
func FormatSectionSeparator(width int) string {
	if width <= 0 {
		width = 60
	}
	return fmt.Sprintf("%s%s%s", ColorCyan, strings.Repeat("─", width), ColorReset)
}
