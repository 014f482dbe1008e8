package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Left  key.Binding
	Right key.Binding
	Down  key.Binding
	Up    key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Search
	Search key.Binding

	// Keyboard drag
	Grab key.Binding
	Drop key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual resync
	Refresh key.Binding

	// Lead actions
	NewLead   key.Binding
	QuickLead key.Binding
	Edit      key.Binding
	Note      key.Binding
	Reminder  key.Binding
	Emergency key.Binding
	Assign    key.Binding
	Complete  key.Binding
	Delete    key.Binding

	// Column actions
	AddColumn    key.Binding
	RenameColumn key.Binding
	DeleteColumn key.Binding
	ColumnLeft   key.Binding
	ColumnRight  key.Binding

	// Panels
	Customers key.Binding
	History   key.Binding
	Reminders key.Binding

	// Panel actions
	Restore     key.Binding
	NewCustomer key.Binding
	Attach      key.Binding
	Detach      key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "prev column"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "next column"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Grab: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "grab/drop"),
		),
		Drop: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "drop"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "resync"),
		),
		NewLead: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new lead"),
		),
		QuickLead: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "quick lead"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Note: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "note"),
		),
		Reminder: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reminder"),
		),
		Emergency: key.NewBinding(
			key.WithKeys("!"),
			key.WithHelp("!", "emergency"),
		),
		Assign: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "assign"),
		),
		Complete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "complete"),
		),
		Delete: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete"),
		),
		AddColumn: key.NewBinding(
			key.WithKeys("+"),
			key.WithHelp("+", "add column"),
		),
		RenameColumn: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "rename column"),
		),
		DeleteColumn: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "delete column"),
		),
		ColumnLeft: key.NewBinding(
			key.WithKeys("<"),
			key.WithHelp("<", "move column left"),
		),
		ColumnRight: key.NewBinding(
			key.WithKeys(">"),
			key.WithHelp(">", "move column right"),
		),
		Customers: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "customers"),
		),
		History: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "history"),
		),
		Reminders: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reminders"),
		),
		Restore: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "restore"),
		),
		NewCustomer: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new customer"),
		),
		Attach: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "attach document"),
		),
		Detach: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "remove document"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Left, k.Right, k.Up, k.Down, k.Grab,
		k.NewLead, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.Grab, k.Drop, k.Search, k.Command, k.Help, k.Refresh},
		{k.NewLead, k.QuickLead, k.Edit, k.Note, k.Reminder, k.Emergency, k.Assign, k.Complete, k.Delete},
		{k.AddColumn, k.RenameColumn, k.DeleteColumn, k.ColumnLeft, k.ColumnRight},
		{k.Customers, k.History, k.Reminders, k.Restore, k.NewCustomer, k.Attach, k.Detach},
	}
}
