package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestSparklineWindow(t *testing.T) {
	s := NewSparkline(3, "ops/s", "", lipgloss.NewStyle())
	for _, v := range []float64{1, 2, 3, 8} {
		s.Push(v)
	}
	assert.Equal(t, []float64{2, 3, 8}, s.Data)
	assert.Equal(t, 8.0, s.Last())

	view := s.View()
	assert.Contains(t, view, "ops/s")
	assert.True(t, strings.HasSuffix(view, "█"))

	empty := NewSparkline(4, "x", "ms", lipgloss.NewStyle())
	assert.Equal(t, 0.0, empty.Last())
	assert.Contains(t, empty.View(), "    ")
}

func TestBars(t *testing.T) {
	out := Bars([]string{"<= 1", "> 32"}, []uint64{3, 1}, 8, lipgloss.NewStyle())
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "██████··")
	assert.Contains(t, lines[0], "75.0%")
	assert.Contains(t, lines[1], "██······")

	assert.Contains(t, Bars([]string{"a"}, []uint64{0}, 4, lipgloss.NewStyle()), "0.0%")
}
