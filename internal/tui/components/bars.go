package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Bars renders one horizontal bar per label, scaled to the share of the
// total count.
func Bars(labels []string, counts []uint64, width int, style lipgloss.Style) string {
	var total uint64
	for _, c := range counts {
		total += c
	}
	labelWidth := 0
	for _, l := range labels {
		if len(l) > labelWidth {
			labelWidth = len(l)
		}
	}
	if width < 1 {
		width = 1
	}

	var b strings.Builder
	for i, l := range labels {
		var share float64
		if total > 0 {
			share = float64(counts[i]) / float64(total)
		}
		n := int(share * float64(width))
		bar := strings.Repeat("█", n) + strings.Repeat("·", width-n)
		fmt.Fprintf(&b, "%*s %s %5.1f%%", labelWidth, l, style.Render(bar), share*100)
		if i < len(labels)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
