// ABOUTME: Session commands: login, logout, whoami and register
// ABOUTME: Prompts for missing credentials with a huh form

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/carportal/carportal-cli/internal/guard"
	"github.com/carportal/carportal-cli/internal/session"
)

var (
	loginUsername string
	loginPassword string

	registerUsername string
	registerEmail    string
	registerPassword string
	registerPhone    string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the portal",
	Long:  `Sign in with a username and password. Prompts for anything not given as a flag.`,
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		creds := session.Credentials{Username: loginUsername, Password: loginPassword}
		if creds.Username == "" || creds.Password == "" {
			if err := promptCredentials(&creds); err != nil {
				printError(w, err)
				return exitError
			}
		}
		return runLogin(ctx, w, creds)
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runLogout(ctx, w)
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runWhoami(ctx, w)
	}),
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	Long:  `Create a new account. Registration does not sign you in; run 'carportal login' afterwards.`,
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		reg := session.Registration{
			Username: registerUsername,
			Email:    registerEmail,
			Password: registerPassword,
			Phone:    registerPhone,
		}
		if reg.Username == "" || reg.Email == "" || reg.Password == "" {
			if err := promptRegistration(&reg); err != nil {
				printError(w, err)
				return exitError
			}
		}
		return runRegister(ctx, w, reg)
	}),
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", os.Getenv("CARPORTAL_PASSWORD"), "Password (or CARPORTAL_PASSWORD)")

	registerCmd.Flags().StringVar(&registerUsername, "username", "", "Username")
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Email address")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "Password")
	registerCmd.Flags().StringVar(&registerPhone, "phone", "", "Phone number (optional)")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd)
}

// runLogin signs in and reports the new session
func runLogin(ctx context.Context, w io.Writer, creds session.Credentials) int {
	return withRuntime(ctx, w, runtimeOptions{start: guard.LoginPath}, func(rt *runtime) int {
		sess, err := rt.store.Login(ctx, creds)
		if err != nil {
			printError(w, err)
			return exitError
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(sess))
		} else {
			fmt.Fprintf(w, "Logged in as %s (%s)\n", sess.Username, sess.Role)
		}
		return exitOK
	})
}

// runLogout always succeeds locally, even if the backend cannot be reached
func runLogout(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		was := rt.store.Session()
		rt.store.Logout(ctx)

		switch {
		case IsJSONOutput():
			fmt.Fprintln(w, formatJSON(map[string]bool{"logged_out": true}))
		case was != nil:
			fmt.Fprintf(w, "Logged out %s\n", was.Username)
		default:
			fmt.Fprintln(w, "Logged out")
		}
		return exitOK
	})
}

// runWhoami prints the reconciled session, exiting 1 when signed out
func runWhoami(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		sess := rt.store.Session()
		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(sess))
		} else {
			fmt.Fprintln(w, formatSessionHuman(sess))
		}
		if sess == nil {
			return exitDenied
		}
		return exitOK
	})
}

// runRegister creates an account without signing in
func runRegister(ctx context.Context, w io.Writer, reg session.Registration) int {
	return withRuntime(ctx, w, runtimeOptions{start: guard.RegisterPath}, func(rt *runtime) int {
		created, err := rt.store.Register(ctx, reg)
		if err != nil {
			printError(w, err)
			return exitError
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(created))
			return exitOK
		}
		name := reg.Username
		if created != nil && created.Username != "" {
			name = created.Username
		}
		fmt.Fprintf(w, "Account %s created. Run 'carportal login' to sign in.\n", name)
		return exitOK
	})
}

// formatSessionHuman formats a session for human readability
func formatSessionHuman(sess *session.Session) string {
	if sess == nil {
		return "Not logged in"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "User:       %s\n", sess.Username)
	fmt.Fprintf(&sb, "Role:       %s\n", sess.Role)
	fmt.Fprintf(&sb, "Email:      %s", sess.Email)
	if sess.Phone != "" {
		fmt.Fprintf(&sb, "\nPhone:      %s", sess.Phone)
	}
	if sess.Avatar != "" {
		fmt.Fprintf(&sb, "\nAvatar:     %s", sess.Avatar)
	}
	if sess.CreatedAt != "" {
		fmt.Fprintf(&sb, "\nJoined:     %s", sess.CreatedAt)
	}
	if sess.LastLoginAt != "" {
		fmt.Fprintf(&sb, "\nLast login: %s", sess.LastLoginAt)
	}
	if sess.VisitCount > 0 {
		fmt.Fprintf(&sb, "\nVisits:     %d", sess.VisitCount)
	}
	return sb.String()
}

func promptCredentials(creds *session.Credentials) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&creds.Username).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.Password).
				Validate(required("password")),
		),
	).WithTheme(huh.ThemeBase())

	return form.Run()
}

func promptRegistration(reg *session.Registration) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Username").Value(&reg.Username).Validate(required("username")),
			huh.NewInput().Title("Email").Value(&reg.Email).Validate(required("email")),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&reg.Password).Validate(required("password")),
			huh.NewInput().Title("Phone (optional)").Value(&reg.Phone),
		),
	).WithTheme(huh.ThemeBase())

	return form.Run()
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
