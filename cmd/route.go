// ABOUTME: Route and time commands
// ABOUTME: route evaluates the navigation guard for a path; time shows the server clock

package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carportal/carportal-cli/internal/guard"
)

var routeCmd = &cobra.Command{
	Use:   "route <path>",
	Short: "Check whether you may open a page",
	Long: `Evaluate the navigation guard for a portal path with your current session.

Exit codes:
  0  Navigation allowed
  1  Redirected (to /login, or home for insufficient role)
  2  Error`,
	Args: cobra.ExactArgs(1),
	Run: runCommand(func(ctx context.Context, w io.Writer, args []string) int {
		return runRoute(ctx, w, args[0])
	}),
}

var timeCmd = &cobra.Command{
	Use:   "time",
	Short: "Show the portal server time",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runTime(ctx, w)
	}),
}

func init() {
	rootCmd.AddCommand(routeCmd, timeCmd)
}

// routeResult is the outcome of a guard evaluation
type routeResult struct {
	Path     string            `json:"path"`
	Route    string            `json:"route"`
	Title    string            `json:"title"`
	Params   map[string]string `json:"params,omitempty"`
	Outcome  string            `json:"outcome"`
	To       string            `json:"to,omitempty"`
	From     string            `json:"from,omitempty"`
	Location string            `json:"location"`
}

func runRoute(ctx context.Context, w io.Writer, path string) int {
	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		clean := guard.Clean(path)
		route, params := guard.Match(clean)
		d := rt.router.Visit(clean)

		result := routeResult{
			Path:     clean,
			Route:    route.Pattern,
			Title:    route.Title,
			Params:   params,
			Outcome:  d.Outcome.String(),
			To:       d.To,
			From:     d.From,
			Location: rt.router.Location(),
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(result))
		} else {
			fmt.Fprintln(w, formatRouteHuman(result, d))
		}

		if d.Allowed() {
			return exitOK
		}
		return exitDenied
	})
}

func formatRouteHuman(r routeResult, d guard.Decision) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Path:     %s\n", r.Path)
	fmt.Fprintf(&sb, "Page:     %s (%s)\n", r.Title, r.Route)
	if len(r.Params) > 0 {
		keys := make([]string, 0, len(r.Params))
		for k := range r.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+r.Params[k])
		}
		fmt.Fprintf(&sb, "Params:   %s\n", strings.Join(parts, " "))
	}
	fmt.Fprintf(&sb, "Decision: %s\n", d)
	fmt.Fprintf(&sb, "Location: %s", r.Location)
	return sb.String()
}

func runTime(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		value, fromServer := rt.client.ServerTime(ctx)

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(map[string]interface{}{"time": value, "server": fromServer}))
			return exitOK
		}
		if fromServer {
			fmt.Fprintln(w, value)
		} else {
			fmt.Fprintf(w, "%s (local clock, server unavailable at %s)\n", value, GetAPIURL())
		}
		return exitOK
	})
}
