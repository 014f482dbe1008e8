package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leadboard/internal/theme"
)

// MinColumnWidth is the narrowest a board column is drawn.
const MinColumnWidth = 24

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// VisibleColumns reports how many board columns fit side by side.
func (l Layout) VisibleColumns(total int) int {
	fit := l.Width / MinColumnWidth
	if fit < 1 {
		fit = 1
	}
	if total < fit {
		return total
	}
	return fit
}

// ColumnWidth splits the content width between n columns.
func (l Layout) ColumnWidth(n int) int {
	if n < 1 {
		return l.Width
	}
	w := l.Width / n
	if w < MinColumnWidth {
		return MinColumnWidth
	}
	return w
}

// RenderHeader renders the top header bar with a title on the left and
// status on the right.
func (l Layout) RenderHeader(title string, status string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(status)

	return join(l.Width, theme.HeaderStyle, titleRendered, statusRendered)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return join(l.Width, theme.StatusBarStyle, theme.StatusBarStyle.Render(hints), "")
}

// RenderNotice renders msg in place of the status bar.
func (l Layout) RenderNotice(msg string) string {
	return join(l.Width, theme.NoticeStyle, theme.NoticeStyle.Render(msg), "")
}

// join pads the gap between left and right with style's background.
func join(width int, style lipgloss.Style, left, right string) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
