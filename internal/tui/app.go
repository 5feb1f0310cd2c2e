// ABOUTME: Root bubbletea model for the portal browser
// ABOUTME: Applies route guards, shows a neutral state while the session reconciles, and renders pages

package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/carportal/carportal-cli/internal/client"
	"github.com/carportal/carportal-cli/internal/guard"
	"github.com/carportal/carportal-cli/internal/session"
	"github.com/carportal/carportal-cli/internal/tui/icons"
	"github.com/carportal/carportal-cli/internal/tui/login"
	"github.com/carportal/carportal-cli/internal/tui/menu"
	"github.com/carportal/carportal-cli/internal/tui/styles"
)

// Screen represents the current TUI screen
type Screen int

const (
	ScreenLoading Screen = iota
	ScreenMenu
	ScreenPage
	ScreenLogin
	ScreenGoto
)

// Layout constants
const (
	minTerminalWidth = 80
	frameOverhead    = 8 // header, footer, panel border and padding
)

// storeReadyMsg is sent once startup reconciliation has finished
type storeReadyMsg struct{}

// navigatedMsg is sent when the router moves, including redirects made by
// the refresh coordinator
type navigatedMsg struct {
	path string
}

// sessionChangedMsg is sent when the store's session changes
type sessionChangedMsg struct{}

// pageLoadedMsg is sent when a page fetch completes
type pageLoadedMsg struct {
	path    string
	content string
	err     error
}

// loginResultMsg is sent when a sign-in attempt completes
type loginResultMsg struct {
	sess *session.Session
	err  error
}

// loggedOutMsg is sent after sign out
type loggedOutMsg struct{}

// serverTimeMsg carries the clock shown in the header
type serverTimeMsg struct {
	value      string
	fromServer bool
}

// Store is the auth store as the app uses it
type Store interface {
	guard.AuthState
	Ready() <-chan struct{}
	Login(ctx context.Context, creds session.Credentials) (*session.Session, error)
	Logout(ctx context.Context)
}

// API is the backend as the app uses it
type API interface {
	pageAPI
	ServerTime(ctx context.Context) (string, bool)
}

// App is the root model for the TUI
type App struct {
	api    API
	store  Store
	router *guard.Router

	screen  Screen
	width   int
	height  int
	err     error
	status  string
	busy    bool
	current string // location whose content is on screen
	pending string // location requested while the session was reconciling

	serverTime      string
	serverTimeLocal bool
	lastUpdate      time.Time

	// Child models
	spinner  spinner.Model
	viewport viewport.Model
	goTo     textinput.Model
	menu     *menu.Menu
	login    *login.Form
}

// New creates a new TUI application
func New(api API, store Store, router *guard.Router) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	ti := textinput.New()
	ti.Placeholder = "/cars/1"
	ti.Prompt = "Go to: "
	ti.CharLimit = 128

	a := &App{
		api:      api,
		store:    store,
		router:   router,
		screen:   ScreenMenu,
		spinner:  sp,
		viewport: viewport.New(minTerminalWidth, 20),
		goTo:     ti,
		menu:     menu.New(store),
		pending:  router.Location(),
	}
	if store.Loading() {
		a.screen = ScreenLoading
	}
	return a
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.waitForStore(), a.fetchServerTime())
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport.Width = a.contentWidth()
		a.viewport.Height = a.contentHeight()
		if a.login != nil {
			return a.updateLogin(msg)
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		switch a.screen {
		case ScreenMenu:
			return a.updateMenu(msg)
		case ScreenPage:
			return a.updatePage(msg)
		case ScreenLogin:
			return a.updateLogin(msg)
		case ScreenGoto:
			return a.updateGoto(msg)
		case ScreenLoading:
			if msg.String() == "q" {
				return a, tea.Quit
			}
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case storeReadyMsg:
		a.menu.Refresh()
		if a.pending == "" {
			if a.screen == ScreenLoading {
				a.screen = ScreenMenu
			}
			return a, nil
		}
		path := a.pending
		a.pending = ""
		return a, a.navigate(path)

	case navigatedMsg:
		if msg.path == a.current || a.screen == ScreenLoading {
			return a, nil
		}
		slog.Debug("Router moved", "location", msg.path)
		return a, a.show(a.router.Location())

	case sessionChangedMsg:
		a.menu.Refresh()
		return a, nil

	case menu.RouteSelectedMsg:
		return a, a.navigate(msg.Path)

	case menu.LogoutSelectedMsg:
		return a, a.logout()

	case menu.CancelledMsg:
		return a, tea.Quit

	case login.SubmittedMsg:
		if a.busy {
			return a, nil
		}
		a.busy = true
		return a, a.signIn(msg.Credentials)

	case login.CancelledMsg:
		a.login = nil
		a.busy = false
		a.current = ""
		a.screen = ScreenMenu
		return a, nil

	case loginResultMsg:
		a.busy = false
		if msg.err != nil {
			if a.login != nil {
				return a, a.login.SetError(msg.err)
			}
			a.err = msg.err
			return a, nil
		}
		a.login = nil
		a.status = "Signed in as " + msg.sess.Username
		a.menu.Refresh()
		a.router.CompleteLogin()
		return a, a.show(a.router.Location())

	case loggedOutMsg:
		a.status = "Signed out"
		a.menu.Refresh()
		a.current = ""
		a.screen = ScreenMenu
		return a, nil

	case pageLoadedMsg:
		if msg.path != a.current {
			return a, nil
		}
		a.busy = false
		a.lastUpdate = time.Now()
		if msg.err != nil {
			a.err = msg.err
			if errors.Is(msg.err, client.ErrUnauthorized) {
				a.status = "Session expired"
			}
			a.viewport.SetContent(styles.StatusCritical.Render("Error: " + msg.err.Error()))
			return a, nil
		}
		a.err = nil
		a.viewport.SetContent(msg.content)
		a.viewport.GotoTop()
		return a, nil

	case serverTimeMsg:
		a.serverTime = msg.value
		a.serverTimeLocal = !msg.fromServer
		return a, nil

	default:
		if a.screen == ScreenLogin && a.login != nil {
			return a.updateLogin(msg)
		}
	}

	return a, nil
}

func (a *App) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "g" {
		return a, a.openGoto()
	}
	model, cmd := a.menu.Update(msg)
	a.menu = model.(*menu.Menu)
	return a, cmd
}

func (a *App) updatePage(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "b", "esc":
		a.screen = ScreenMenu
		a.current = ""
		a.err = nil
		return a, nil
	case "r":
		return a, tea.Batch(a.show(a.current), a.fetchServerTime())
	case "g":
		return a, a.openGoto()
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a *App) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.login == nil {
		return a, nil
	}
	model, cmd := a.login.Update(msg)
	a.login = model.(*login.Form)
	return a, cmd
}

func (a *App) updateGoto(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.goTo.Blur()
		a.screen = ScreenMenu
		return a, nil
	case "enter":
		path := strings.TrimSpace(a.goTo.Value())
		a.goTo.Blur()
		a.goTo.SetValue("")
		a.screen = ScreenMenu
		if path == "" {
			return a, nil
		}
		return a, a.navigate(path)
	}

	var cmd tea.Cmd
	a.goTo, cmd = a.goTo.Update(msg)
	return a, cmd
}

func (a *App) openGoto() tea.Cmd {
	a.screen = ScreenGoto
	return a.goTo.Focus()
}

// navigate runs the guard for path and shows wherever the router ends up.
// While the session is reconciling the request is held and replayed later.
func (a *App) navigate(path string) tea.Cmd {
	d := a.router.Visit(path)
	switch d.Outcome {
	case guard.Pending:
		a.pending = path
		a.screen = ScreenLoading
		return a.spinner.Tick
	case guard.Redirect:
		a.status = d.String()
	default:
		a.status = ""
	}
	return a.show(a.router.Location())
}

// show renders the screen for an already-guarded location
func (a *App) show(path string) tea.Cmd {
	a.current = path
	a.err = nil

	if path == guard.LoginPath {
		a.screen = ScreenLogin
		username := ""
		if sess := a.store.Session(); sess != nil {
			username = sess.Username
		}
		a.login = login.New(username, a.router.ReturnPath())
		return a.login.Init()
	}

	a.screen = ScreenPage
	a.busy = true
	a.viewport.SetContent(a.spinner.View() + " Loading...")
	return a.loadPage(path)
}

func (a *App) loadPage(path string) tea.Cmd {
	sess := a.store.Session()
	return func() tea.Msg {
		content, err := renderPage(context.Background(), a.api, path, sess)
		return pageLoadedMsg{path: path, content: content, err: err}
	}
}

func (a *App) signIn(creds session.Credentials) tea.Cmd {
	return func() tea.Msg {
		sess, err := a.store.Login(context.Background(), creds)
		return loginResultMsg{sess: sess, err: err}
	}
}

func (a *App) logout() tea.Cmd {
	return func() tea.Msg {
		a.store.Logout(context.Background())
		return loggedOutMsg{}
	}
}

func (a *App) waitForStore() tea.Cmd {
	ready := a.store.Ready()
	return func() tea.Msg {
		<-ready
		return storeReadyMsg{}
	}
}

func (a *App) fetchServerTime() tea.Cmd {
	return func() tea.Msg {
		value, fromServer := a.api.ServerTime(context.Background())
		return serverTimeMsg{value: value, fromServer: fromServer}
	}
}

// View implements tea.Model
func (a *App) View() string {
	var content string

	switch a.screen {
	case ScreenLoading:
		content = styles.Panel.Width(a.contentWidth()).Render(a.spinner.View() + " Checking your session...")
	case ScreenMenu:
		content = styles.ActivePanel.Width(a.contentWidth()).Render(a.menu.View())
	case ScreenPage:
		content = styles.ActivePanel.Width(a.contentWidth()).Render(a.pageTitle() + "\n" + a.viewport.View())
	case ScreenLogin:
		if a.login != nil {
			content = styles.ActivePanel.Width(a.contentWidth()).Render(a.login.View())
		}
	case ScreenGoto:
		content = styles.ActivePanel.Width(a.contentWidth()).Render(a.menu.View() + "\n" + a.goTo.View())
	}

	return a.wrapWithFrame(content)
}

func (a *App) pageTitle() string {
	route, _ := guard.Match(a.current)
	return styles.Title.Render(route.Title) + styles.Subtitle.Render("  "+a.current)
}

func (a *App) contentWidth() int {
	if a.width < minTerminalWidth {
		return minTerminalWidth - 4
	}
	return a.width - 4
}

func (a *App) contentHeight() int {
	h := a.height - frameOverhead - 2 // page title
	if h < 5 {
		return 5
	}
	return h
}

// renderHeader creates the header bar with app branding and the signed-in user
func (a *App) renderHeader() string {
	width := a.width
	if width < minTerminalWidth {
		width = minTerminalWidth
	}

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	titleStyle := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	contextStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	leftText := fmt.Sprintf(" %s %s ", icons.App.String(), titleStyle.Render("Car Portal"))

	var right []string
	if a.serverTime != "" {
		clock := icons.Clock.String() + " " + a.serverTime
		if a.serverTimeLocal {
			clock += " (local)"
		}
		right = append(right, clock)
	}
	switch sess := a.store.Session(); {
	case a.store.Loading():
		right = append(right, "…")
	case sess != nil:
		right = append(right, icons.User.String()+" "+sess.Username+" "+string(sess.Role))
	default:
		right = append(right, "guest")
	}
	rightText := contextStyle.Render(" "+strings.Join(right, "  ")) + " "

	fillWidth := width - 4 - lipgloss.Width(leftText) - lipgloss.Width(rightText)
	if fillWidth < 0 {
		fillWidth = 0
	}

	return borderStyle.Render("╭─" + leftText + strings.Repeat("─", fillWidth) + rightText + "─╮")
}

// renderFooter creates the footer with keyboard shortcuts and status
func (a *App) renderFooter() string {
	width := a.width
	if width < minTerminalWidth {
		width = minTerminalWidth
	}

	borderStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	keyStyle := lipgloss.NewStyle().Foreground(styles.Primary)
	labelStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	statusStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	var shortcuts []string
	switch a.screen {
	case ScreenLoading:
		shortcuts = []string{"q Quit"}
	case ScreenMenu:
		shortcuts = []string{"↑↓ Navigate", "Enter Open", "g Go to", "q Quit"}
	case ScreenPage:
		shortcuts = []string{"↑↓ Scroll", "r Refresh", "g Go to", "b Back", "q Quit"}
	case ScreenLogin:
		shortcuts = []string{"Enter Submit", "Esc Cancel"}
	case ScreenGoto:
		shortcuts = []string{"Enter Go", "Esc Cancel"}
	}

	var styled []string
	for _, s := range shortcuts {
		parts := strings.SplitN(s, " ", 2)
		styled = append(styled, keyStyle.Render(parts[0])+" "+labelStyle.Render(parts[1]))
	}
	leftText := " " + strings.Join(styled, "  ")

	status := a.status
	if status == "" && !a.lastUpdate.IsZero() && a.screen == ScreenPage {
		status = "Updated " + formatTimeSince(a.lastUpdate)
	}
	rightText := ""
	if status != "" {
		rightText = statusStyle.Render(status) + " "
	}

	fillWidth := width - 4 - lipgloss.Width(leftText) - lipgloss.Width(rightText)
	if fillWidth < 0 {
		fillWidth = 0
	}

	return borderStyle.Render("╰─" + leftText + strings.Repeat("─", fillWidth) + rightText + "─╯")
}

// formatTimeSince formats a duration since the given time in human-readable form
func formatTimeSince(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < 5*time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

// wrapWithFrame wraps content with header and footer
func (a *App) wrapWithFrame(content string) string {
	var sb strings.Builder
	sb.WriteString(a.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(content)
	sb.WriteString("\n")
	sb.WriteString(a.renderFooter())
	return sb.String()
}

// Run starts the TUI. Router moves and session changes made outside the
// event loop (for example by the refresh coordinator) are forwarded as messages.
func Run(api API, store *session.Store, router *guard.Router) error {
	app := New(api, store, router)
	p := tea.NewProgram(app, tea.WithAltScreen())

	router.OnNavigate(func(path string) {
		go p.Send(navigatedMsg{path: path})
	})
	unsubscribe := store.Subscribe(func(*session.Session) {
		go p.Send(sessionChangedMsg{})
	})
	defer unsubscribe()

	_, err := p.Run()
	return err
}
