package outwriter

import (
	"os"

	"golang.org/x/term"

	"github.com/huangsam/repolens/internal/contract"
)

// Bounds for the widest free-text column of a table.
const (
	minCellWidth = 15
	maxCellWidth = 70
)

// terminalWidth returns the configured width, the detected terminal width or 80.
func terminalWidth(cfg *contract.Config) int {
	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		// Conservative default for narrow terminals and CI
		return 80
	}
	return detectedWidth
}

// getMaxCellWidth calculates how wide the free-text column (path, shared
// items) may be once fixedWidth is reserved for the other columns.
func getMaxCellWidth(cfg *contract.Config, fixedWidth int) int {
	// Reserve generous space for table borders, separators, and padding
	available := terminalWidth(cfg) - fixedWidth - 20
	if available < minCellWidth {
		return minCellWidth
	}
	if available > maxCellWidth {
		return maxCellWidth
	}
	return available
}
