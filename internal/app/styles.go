package app

import (
	"github.com/charmbracelet/lipgloss"

	"wifiwatch-tui/internal/client"
)

var (
	chromeBG        = lipgloss.Color("#05090C")
	chromeFG        = lipgloss.Color("#E8F0F2")
	panelBorder     = lipgloss.Color("#2D6A80")
	accentPrimary   = lipgloss.Color("#50E3C2")
	accentSecondary = lipgloss.Color("#F6AE2D")
	mutedText       = lipgloss.Color("#8CA1AE")
	warningText     = lipgloss.Color("#FF6B6B")
	chartLine       = lipgloss.Color("#2B7EA1")

	bandColors = map[client.Band]lipgloss.Color{
		client.BandUnknown: mutedText,
		client.BandStrong:  lipgloss.Color("#44E7AE"),
		client.BandGood:    lipgloss.Color("#C8EE63"),
		client.BandWeak:    lipgloss.Color("#F0C74B"),
		client.BandPoor:    warningText,
	}
)

var (
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(accentPrimary)

	statusStyle = lipgloss.NewStyle().
			Foreground(accentSecondary).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)

	cardTitleStyle = lipgloss.NewStyle().
			Foreground(chromeFG).
			Bold(true)

	cardMutedStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	chartStyle = lipgloss.NewStyle().
			Foreground(chartLine)
)

func bandStyle(band client.Band) lipgloss.Style {
	color, ok := bandColors[band]
	if !ok {
		color = mutedText
	}
	return lipgloss.NewStyle().Foreground(color).Bold(band != client.BandUnknown)
}
