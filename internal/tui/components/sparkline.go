package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var levels = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline is a one-line scrolling chart over the last Width samples.
type Sparkline struct {
	Data   []float64
	Width  int
	Label  string
	Unit   string
	Style  lipgloss.Style
	maxVal float64
}

func NewSparkline(width int, label, unit string, style lipgloss.Style) Sparkline {
	return Sparkline{
		Width: width,
		Label: label,
		Unit:  unit,
		Style: style,
		Data:  make([]float64, 0, width),
	}
}

// Push appends a sample, dropping the oldest once the window is full.
func (s *Sparkline) Push(v float64) {
	if v < 0 {
		v = 0
	}
	s.Data = append(s.Data, v)
	if s.Width > 0 && len(s.Data) > s.Width {
		s.Data = s.Data[len(s.Data)-s.Width:]
	}

	// scale to the visible window
	s.maxVal = 0
	for _, d := range s.Data {
		if d > s.maxVal {
			s.maxVal = d
		}
	}
}

// Last is the most recent sample, or 0.
func (s Sparkline) Last() float64 {
	if len(s.Data) == 0 {
		return 0
	}
	return s.Data[len(s.Data)-1]
}

func (s Sparkline) View() string {
	if s.Width <= 0 {
		return ""
	}

	var graph strings.Builder
	for _, v := range s.Data {
		idx := 0
		if s.maxVal > 0 {
			idx = int(v / s.maxVal * float64(len(levels)-1))
		}
		graph.WriteRune(levels[idx])
	}
	if pad := s.Width - len(s.Data); pad > 0 {
		graph.WriteString(strings.Repeat(" ", pad))
	}

	head := fmt.Sprintf("%s  %.1f %s", s.Label, s.Last(), s.Unit)
	return s.Style.Render(head) + "\n" + s.Style.Render(graph.String())
}
