// ABOUTME: Browse command launching the interactive portal TUI
// ABOUTME: Logs go to the debug log so the terminal display stays clean

package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/carportal/carportal-cli/internal/tui"
)

var browseStart string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the portal interactively",
	Long: `Open a full-screen browser for the portal.

The page you ask for is held while your stored session is checked with the
backend, then the usual access rules apply. Logs are written to debug.log in
the config directory.`,
	Args: cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runBrowse(ctx, w, browseStart)
	}),
}

func init() {
	browseCmd.Flags().StringVar(&browseStart, "path", "/", "Page to open first")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(ctx context.Context, w io.Writer, start string) int {
	opts := runtimeOptions{start: start, debugLog: true, background: true}
	return withRuntime(ctx, w, opts, func(rt *runtime) int {
		if err := tui.Run(rt.client, rt.store, rt.router); err != nil {
			printError(w, err)
			return exitError
		}
		return exitOK
	})
}
