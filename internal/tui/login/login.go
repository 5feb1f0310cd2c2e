// ABOUTME: Sign-in form as a bubbletea model
// ABOUTME: Wraps a huh form and reports submitted credentials or cancellation

package login

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/carportal/carportal-cli/internal/session"
	"github.com/carportal/carportal-cli/internal/tui/styles"
)

// SubmittedMsg carries the credentials the user entered
type SubmittedMsg struct {
	Credentials session.Credentials
}

// CancelledMsg is sent when the user leaves the form
type CancelledMsg struct{}

// Form is the sign-in screen
type Form struct {
	form     *huh.Form
	username string
	password string
	returnTo string
	err      string
}

// New creates a sign-in form. returnTo is shown so the user knows where
// they will land.
func New(username, returnTo string) *Form {
	f := &Form{username: username, returnTo: returnTo}
	f.form = f.build()
	return f
}

func (f *Form) build() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&f.username).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.password).
				Validate(required("password")),
		).Title("Sign in"),
	).WithTheme(huh.ThemeBase()).WithShowHelp(false)
}

// SetError shows a failed attempt and resets the form for another try
func (f *Form) SetError(err error) tea.Cmd {
	f.err = err.Error()
	f.password = ""
	f.form = f.build()
	return f.form.Init()
}

// Init implements tea.Model
func (f *Form) Init() tea.Cmd {
	return f.form.Init()
}

// Update implements tea.Model
func (f *Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		return f, func() tea.Msg { return CancelledMsg{} }
	}

	model, cmd := f.form.Update(msg)
	if form, ok := model.(*huh.Form); ok {
		f.form = form
	}

	switch f.form.State {
	case huh.StateCompleted:
		creds := session.Credentials{Username: strings.TrimSpace(f.username), Password: f.password}
		return f, func() tea.Msg { return SubmittedMsg{Credentials: creds} }
	case huh.StateAborted:
		return f, func() tea.Msg { return CancelledMsg{} }
	}
	return f, cmd
}

// View implements tea.Model
func (f *Form) View() string {
	var sb strings.Builder
	if f.returnTo != "" {
		sb.WriteString(styles.Subtitle.Render("Sign in to continue to " + f.returnTo))
		sb.WriteString("\n\n")
	}
	sb.WriteString(f.form.View())
	if f.err != "" {
		sb.WriteString("\n")
		sb.WriteString(styles.StatusCritical.Render(f.err))
	}
	return sb.String()
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
