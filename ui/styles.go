package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/yllada/vpn-connector/common"
)

// Palette shared by the terminal views.
var (
	colorAccent  = lipgloss.Color("#3584e4")
	colorSuccess = lipgloss.Color("#2ec27e")
	colorWarning = lipgloss.Color("#e5a50a")
	colorError   = lipgloss.Color("#e01b24")
	colorDim     = lipgloss.Color("#9a9996")
)

// Terminal styles.
var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	LabelStyle = lipgloss.NewStyle().Foreground(colorDim).Width(12)
	ValueStyle = lipgloss.NewStyle()
	HelpStyle  = lipgloss.NewStyle().Foreground(colorDim).Italic(true)
	ErrorStyle = lipgloss.NewStyle().Foreground(colorError)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)

	statusStyles = map[common.ConnectionStatus]lipgloss.Style{
		common.StatusConnected:     lipgloss.NewStyle().Bold(true).Foreground(colorSuccess),
		common.StatusConnecting:    lipgloss.NewStyle().Bold(true).Foreground(colorWarning),
		common.StatusDisconnecting: lipgloss.NewStyle().Bold(true).Foreground(colorWarning),
		common.StatusError:         lipgloss.NewStyle().Bold(true).Foreground(colorError),
		common.StatusDisconnected:  lipgloss.NewStyle().Bold(true).Foreground(colorDim),
	}
)

// StatusBadge renders status with its color and a state glyph.
func StatusBadge(status common.ConnectionStatus) string {
	style, ok := statusStyles[status]
	if !ok {
		style = lipgloss.NewStyle().Foreground(colorDim)
	}
	glyph := "○"
	switch status {
	case common.StatusConnected:
		glyph = "●"
	case common.StatusConnecting, common.StatusDisconnecting:
		glyph = "◐"
	case common.StatusError:
		glyph = "✕"
	}
	return style.Render(glyph + " " + status.String())
}

// Field renders one "label value" row.
func Field(label string, value interface{}) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		LabelStyle.Render(label),
		ValueStyle.Render(fmt.Sprint(value)))
}

// Panel renders a titled box around rows.
func Panel(title string, rows ...string) string {
	body := lipgloss.JoinVertical(lipgloss.Left, append([]string{TitleStyle.Render(title)}, rows...)...)
	return BoxStyle.Render(body)
}
