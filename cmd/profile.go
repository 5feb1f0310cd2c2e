// ABOUTME: Profile and avatar commands for the signed-in user
// ABOUTME: Guarded by the authenticated /profile route

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/carportal/carportal-cli/internal/session"
)

const profilePath = "/profile"

var profileUpdate session.ProfileUpdate

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your profile",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runProfile(ctx, w)
	}),
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Update profile fields",
	Long:  `Update profile fields. Only the flags you pass are changed.`,
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runProfileEdit(ctx, w, profileUpdate)
	}),
}

var avatarCmd = &cobra.Command{
	Use:   "avatar",
	Short: "Manage your avatar",
}

var avatarUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a new avatar image",
	Args:  cobra.ExactArgs(1),
	Run: runCommand(func(ctx context.Context, w io.Writer, args []string) int {
		return runAvatarUpload(ctx, w, args[0])
	}),
}

var avatarDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Reset your avatar to the default image",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runAvatarDelete(ctx, w)
	}),
}

func init() {
	profileEditCmd.Flags().StringVar(&profileUpdate.Username, "username", "", "New username")
	profileEditCmd.Flags().StringVar(&profileUpdate.Email, "email", "", "New email address")
	profileEditCmd.Flags().StringVar(&profileUpdate.Phone, "phone", "", "New phone number")
	profileEditCmd.Flags().StringVar(&profileUpdate.Password, "password", "", "New password")

	profileCmd.AddCommand(profileEditCmd)
	avatarCmd.AddCommand(avatarUploadCmd, avatarDeleteCmd)
	rootCmd.AddCommand(profileCmd, avatarCmd)
}

// runProfile shows the dashboard view of the signed-in user
func runProfile(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, profilePath) {
			return exitDenied
		}

		sess, err := rt.client.Dashboard(ctx)
		if err != nil {
			printError(w, err)
			return exitError
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(sess))
		} else {
			fmt.Fprintln(w, formatSessionHuman(sess))
		}
		return exitOK
	})
}

// runProfileEdit applies update and stores the returned session
func runProfileEdit(ctx context.Context, w io.Writer, update session.ProfileUpdate) int {
	if update == (session.ProfileUpdate{}) {
		fmt.Fprintln(w, "Error: nothing to update; pass at least one of --username, --email, --phone, --password")
		return exitError
	}

	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, profilePath) {
			return exitDenied
		}

		sess, err := rt.store.UpdateProfile(ctx, update)
		if err != nil {
			printError(w, err)
			return exitError
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(sess))
		} else {
			fmt.Fprintln(w, "Profile updated")
			fmt.Fprintln(w, formatSessionHuman(sess))
		}
		return exitOK
	})
}

func runAvatarUpload(ctx context.Context, w io.Writer, path string) int {
	f, err := os.Open(path)
	if err != nil {
		printError(w, err)
		return exitError
	}
	defer f.Close()

	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, profilePath) {
			return exitDenied
		}

		url, err := rt.store.UploadAvatar(ctx, filepath.Base(path), f)
		if err != nil {
			printError(w, err)
			return exitError
		}
		printAvatar(w, url)
		return exitOK
	})
}

func runAvatarDelete(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, profilePath) {
			return exitDenied
		}

		url, err := rt.store.DeleteAvatar(ctx)
		if err != nil {
			printError(w, err)
			return exitError
		}
		printAvatar(w, url)
		return exitOK
	})
}

func printAvatar(w io.Writer, url string) {
	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(map[string]string{"avatar": url}))
		return
	}
	fmt.Fprintf(w, "Avatar: %s\n", url)
}
