// ABOUTME: News commands: list, show and search
// ABOUTME: Public routes shared with the moderator and admin listings

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carportal/carportal-cli/internal/client"
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Read portal news",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runNewsList(ctx, w)
	}),
}

var newsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all articles",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runNewsList(ctx, w)
	}),
}

var newsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one article",
	Args:  cobra.ExactArgs(1),
	Run: runCommand(func(ctx context.Context, w io.Writer, args []string) int {
		return runNewsShow(ctx, w, args[0])
	}),
}

var newsSearchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search articles by keyword",
	Args:  cobra.ExactArgs(1),
	Run: runCommand(func(ctx context.Context, w io.Writer, args []string) int {
		return runNewsSearch(ctx, w, args[0])
	}),
}

func init() {
	newsCmd.AddCommand(newsListCmd, newsShowCmd, newsSearchCmd)
	rootCmd.AddCommand(newsCmd)
}

func runNewsList(ctx context.Context, w io.Writer) int {
	return runNewsQuery(ctx, w, "/news", func(rt *runtime) ([]client.News, error) {
		return rt.client.NewsList(ctx)
	})
}

func runNewsSearch(ctx context.Context, w io.Writer, keyword string) int {
	return runNewsQuery(ctx, w, "/news", func(rt *runtime) ([]client.News, error) {
		return rt.client.SearchNews(ctx, keyword)
	})
}

func runNewsShow(ctx context.Context, w io.Writer, idArg string) int {
	id, err := parseID(idArg)
	if err != nil {
		printError(w, err)
		return exitError
	}

	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, fmt.Sprintf("/news/%d", id)) {
			return exitDenied
		}

		item, err := rt.client.NewsItem(ctx, id)
		if err != nil {
			printError(w, err)
			return exitError
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(item))
		} else {
			fmt.Fprintln(w, formatArticleHuman(item))
		}
		return exitOK
	})
}

// runNewsQuery guards path, runs fetch and prints the resulting list
func runNewsQuery(ctx context.Context, w io.Writer, path string, fetch func(*runtime) ([]client.News, error)) int {
	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, path) {
			return exitDenied
		}

		news, err := fetch(rt)
		if err != nil {
			printError(w, err)
			return exitError
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(news))
		} else {
			fmt.Fprintln(w, formatNewsHuman(news))
		}
		return exitOK
	})
}

// formatNewsHuman formats an article list as a table
func formatNewsHuman(news []client.News) string {
	if len(news) == 0 {
		return "No news found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-6s %-20s %-14s %s\n", "ID", "DATE", "AUTHOR", "TITLE")
	for _, n := range news {
		fmt.Fprintf(&sb, "%-6d %-20s %-14s %s\n", n.ID, truncate(n.Date, 20), truncate(n.Author, 14), n.Title)
	}
	fmt.Fprintf(&sb, "\n%d article(s)", len(news))
	return sb.String()
}

// formatArticleHuman formats one article for reading
func formatArticleHuman(n *client.News) string {
	return fmt.Sprintf("%s\n%s, %s\n\n%s", n.Title, n.Author, n.Date, n.Content)
}
