package banner

import (
	"github.com/charmbracelet/lipgloss"

	"kvbench/internal/tui/styles"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
 __               __                    __
|  |--.--.--.    |  |--.-----.-----.----|  |--.
|    <|  |  |    |  _  |  -__|     |  __|     |
|__|__|\___/     |_____|_____|__|__|____|__|__|`

	return "\n" + style.Render(ascii) + "\n"
}
