// ABOUTME: Role-gated admin and moderator commands
// ABOUTME: The route guard runs before any request is sent

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carportal/carportal-cli/internal/client"
	"github.com/carportal/carportal-cli/internal/session"
)

const (
	adminUsersPath    = "/admin/users"
	adminCarsPath     = "/admin/cars"
	adminPath         = "/admin"
	moderatorNewsPath = "/moderator/news"
)

var (
	newsTitle   string
	newsContent string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administration (ADMIN only)",
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runAdminUsers(ctx, w)
	}),
}

var adminUsersDeleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	Run: runCommand(func(ctx context.Context, w io.Writer, args []string) int {
		return runAdminDelete(ctx, w, adminUsersPath, args[0], func(rt *runtime, id int64) (string, error) {
			return rt.client.AdminDeleteUser(ctx, id)
		})
	}),
}

var adminCarsCmd = &cobra.Command{
	Use:   "cars",
	Short: "List all cars including sold ones",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runCarQuery(ctx, w, adminCarsPath, func(rt *runtime) ([]client.Car, error) {
			return rt.client.AdminCars(ctx)
		})
	}),
}

var adminCarsDeleteCmd = &cobra.Command{
	Use:   "delete <car-id>",
	Short: "Delete a car listing",
	Args:  cobra.ExactArgs(1),
	Run: runCommand(func(ctx context.Context, w io.Writer, args []string) int {
		return runAdminDelete(ctx, w, adminCarsPath, args[0], func(rt *runtime, id int64) (string, error) {
			return rt.client.AdminDeleteCar(ctx, id)
		})
	}),
}

var adminNewsCmd = &cobra.Command{
	Use:   "news",
	Short: "List all news",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runNewsQuery(ctx, w, adminPath, func(rt *runtime) ([]client.News, error) {
			return rt.client.AdminNews(ctx)
		})
	}),
}

var moderatorCmd = &cobra.Command{
	Use:   "moderator",
	Short: "Moderation (MODERATOR or ADMIN)",
}

var moderatorNewsCmd = &cobra.Command{
	Use:   "news",
	Short: "List news under moderation",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runModeratorNewsList(ctx, w)
	}),
}

var moderatorNewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List news under moderation",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runModeratorNewsList(ctx, w)
	}),
}

var moderatorNewsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Publish an article",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runModeratorNewsAdd(ctx, w, client.NewsInput{Title: newsTitle, Content: newsContent})
	}),
}

var moderatorNewsDeleteCmd = &cobra.Command{
	Use:   "delete <news-id>",
	Short: "Delete an article",
	Args:  cobra.ExactArgs(1),
	Run: runCommand(func(ctx context.Context, w io.Writer, args []string) int {
		return runAdminDelete(ctx, w, moderatorNewsPath, args[0], func(rt *runtime, id int64) (string, error) {
			return rt.client.ModeratorDeleteNews(ctx, id)
		})
	}),
}

func init() {
	moderatorNewsAddCmd.Flags().StringVar(&newsTitle, "title", "", "Article title")
	moderatorNewsAddCmd.Flags().StringVar(&newsContent, "content", "", "Article body")

	adminUsersCmd.AddCommand(adminUsersDeleteCmd)
	adminCarsCmd.AddCommand(adminCarsDeleteCmd)
	adminCmd.AddCommand(adminUsersCmd, adminCarsCmd, adminNewsCmd)

	moderatorNewsCmd.AddCommand(moderatorNewsListCmd, moderatorNewsAddCmd, moderatorNewsDeleteCmd)
	moderatorCmd.AddCommand(moderatorNewsCmd)

	rootCmd.AddCommand(adminCmd, moderatorCmd)
}

func runAdminUsers(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, adminUsersPath) {
			return exitDenied
		}

		users, err := rt.client.AdminUsers(ctx)
		if err != nil {
			printError(w, err)
			return exitError
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(users))
		} else {
			fmt.Fprintln(w, formatUsersHuman(users))
		}
		return exitOK
	})
}

func runModeratorNewsList(ctx context.Context, w io.Writer) int {
	return runNewsQuery(ctx, w, moderatorNewsPath, func(rt *runtime) ([]client.News, error) {
		return rt.client.ModeratorNews(ctx)
	})
}

func runModeratorNewsAdd(ctx context.Context, w io.Writer, input client.NewsInput) int {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Content) == "" {
		fmt.Fprintln(w, "Error: --title and --content are required")
		return exitError
	}

	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, moderatorNewsPath) {
			return exitDenied
		}

		created, err := rt.client.ModeratorAddNews(ctx, input)
		if err != nil {
			printError(w, err)
			return exitError
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(created))
		} else {
			fmt.Fprintf(w, "Published article %d: %s\n", created.ID, created.Title)
		}
		return exitOK
	})
}

// runAdminDelete guards path then deletes the entity named by idArg
func runAdminDelete(ctx context.Context, w io.Writer, path, idArg string, del func(*runtime, int64) (string, error)) int {
	id, err := parseID(idArg)
	if err != nil {
		printError(w, err)
		return exitError
	}

	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, path) {
			return exitDenied
		}

		msg, err := del(rt, id)
		if err != nil {
			printError(w, err)
			return exitError
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(map[string]interface{}{"id": id, "deleted": true, "message": msg}))
			return exitOK
		}
		if msg == "" {
			msg = fmt.Sprintf("Deleted %d", id)
		}
		fmt.Fprintln(w, msg)
		return exitOK
	})
}

// formatUsersHuman formats the user list as a table
func formatUsersHuman(users []session.Session) string {
	if len(users) == 0 {
		return "No users found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-6s %-18s %-10s %s\n", "ID", "USERNAME", "ROLE", "EMAIL")
	for _, u := range users {
		fmt.Fprintf(&sb, "%-6d %-18s %-10s %s\n", u.ID, truncate(u.Username, 18), u.Role, u.Email)
	}
	fmt.Fprintf(&sb, "\n%d user(s)", len(users))
	return sb.String()
}
