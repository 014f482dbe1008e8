package panel

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/leadboard/internal/theme"
)

// Tone picks the highlight for an item.
type Tone int

const (
	ToneNormal Tone = iota
	ToneEmergency
	ToneDue
)

// Item is one row in a panel. ID is a lead or customer ID depending on
// the panel kind.
type Item struct {
	ID   string
	Name string
	Info string
	Tone Tone
}

// FilterValue returns the string used for filtering.
func (i Item) FilterValue() string { return i.Name }

// Title returns the item title for the list.
func (i Item) Title() string { return i.Name }

// Description returns a short summary line for the list.
func (i Item) Description() string { return i.Info }

// ItemDelegate renders panel rows on two lines.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single item.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}

	title := it.Name
	switch it.Tone {
	case ToneEmergency:
		title = theme.EmergencyStyle.Render("! " + title)
	case ToneDue:
		title = theme.DueReminderStyle.Render(title)
	}
	width := m.Width() - 4
	info := it.Info
	if width > 1 && len([]rune(info)) > width {
		info = string([]rune(info)[:width-1]) + "…"
	}
	body := fmt.Sprintf("%s\n%s", title, theme.MutedStyle.Render(strings.ReplaceAll(info, "\n", " ")))

	if index == m.Index() {
		fmt.Fprint(w, theme.SelectedCardStyle.Render(body))
		return
	}
	fmt.Fprint(w, theme.CardStyle.Render(body))
}
