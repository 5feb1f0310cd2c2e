// ABOUTME: Page menu for the TUI built from the portal route table
// ABOUTME: Marks pages the current session cannot open and emits selection messages

package menu

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/carportal/carportal-cli/internal/guard"
	"github.com/carportal/carportal-cli/internal/tui/icons"
	"github.com/carportal/carportal-cli/internal/tui/styles"
)

// RouteSelectedMsg is sent when the user picks a page
type RouteSelectedMsg struct {
	Path string
}

// LogoutSelectedMsg is sent when the user picks sign out
type LogoutSelectedMsg struct{}

// CancelledMsg is sent when the user leaves the menu
type CancelledMsg struct{}

// Action distinguishes navigation entries from sign out
type Action int

const (
	ActionNavigate Action = iota
	ActionLogout
)

// Item is one menu row
type Item struct {
	Label  string
	Path   string
	Icon   icons.Icon
	Action Action
	Locked bool
}

// Menu lists the portal pages
type Menu struct {
	state  guard.AuthState
	items  []Item
	cursor int
}

// New creates a menu for the given auth state
func New(state guard.AuthState) *Menu {
	m := &Menu{state: state}
	m.Refresh()
	return m
}

// Refresh rebuilds the rows after a session change
func (m *Menu) Refresh() {
	signedIn := m.state.Session() != nil

	var items []Item
	for _, r := range guard.Routes {
		if strings.Contains(r.Pattern, ":") {
			continue
		}
		if signedIn && (r.Pattern == guard.LoginPath || r.Pattern == guard.RegisterPath) {
			continue
		}
		items = append(items, Item{
			Label:  r.Title,
			Path:   r.Pattern,
			Icon:   iconFor(r.Pattern),
			Locked: !r.Check(m.state, r.Pattern).Allowed(),
		})
	}
	if signedIn {
		items = append(items, Item{Label: "Sign out", Icon: icons.Quit, Action: ActionLogout})
	}

	m.items = items
	if m.cursor >= len(items) {
		m.cursor = len(items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Items returns the current rows
func (m *Menu) Items() []Item {
	return m.items
}

// Selected returns the row under the cursor
func (m *Menu) Selected() Item {
	if len(m.items) == 0 {
		return Item{}
	}
	return m.items[m.cursor]
}

// Init implements tea.Model
func (m *Menu) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *Menu) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.items) == 0 {
			return m, nil
		}
		item := m.items[m.cursor]
		if item.Action == ActionLogout {
			return m, func() tea.Msg { return LogoutSelectedMsg{} }
		}
		return m, func() tea.Msg { return RouteSelectedMsg{Path: item.Path} }
	case "q", "esc":
		return m, func() tea.Msg { return CancelledMsg{} }
	}
	return m, nil
}

// View implements tea.Model
func (m *Menu) View() string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render("Car Portal"))
	sb.WriteString("\n")

	for i, item := range m.items {
		cursor := "  "
		style := lipgloss.NewStyle()
		if i == m.cursor {
			cursor = styles.Selected.Render("> ")
			style = styles.Selected
		}

		line := item.Icon.String() + " " + item.Label
		if item.Locked {
			line += " " + lipgloss.NewStyle().Foreground(styles.Muted).Render(icons.Lock.String())
		}
		sb.WriteString(cursor + style.Render(line) + "\n")
	}
	return sb.String()
}

func iconFor(pattern string) icons.Icon {
	switch {
	case pattern == guard.HomePath:
		return icons.Home
	case strings.HasPrefix(pattern, "/cars"), pattern == "/admin/cars":
		return icons.Car
	case strings.HasPrefix(pattern, "/news"):
		return icons.News
	case pattern == "/favorites":
		return icons.Favorite
	case pattern == "/profile":
		return icons.User
	case strings.HasPrefix(pattern, "/moderator"):
		return icons.Moderator
	case strings.HasPrefix(pattern, "/admin"):
		return icons.Admin
	case pattern == guard.LoginPath, pattern == guard.RegisterPath:
		return icons.SignIn
	default:
		return icons.Home
	}
}
