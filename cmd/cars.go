// ABOUTME: Car catalog commands: list, show, brand and price range
// ABOUTME: Public routes; no sign-in needed

package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carportal/carportal-cli/internal/client"
)

var carsCmd = &cobra.Command{
	Use:   "cars",
	Short: "Browse the car catalog",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runCarsList(ctx, w)
	}),
}

var carsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cars",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runCarsList(ctx, w)
	}),
}

var carsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one car",
	Args:  cobra.ExactArgs(1),
	Run: runCommand(func(ctx context.Context, w io.Writer, args []string) int {
		return runCarsShow(ctx, w, args[0])
	}),
}

var carsBrandCmd = &cobra.Command{
	Use:   "brand <brand>",
	Short: "List cars of one brand",
	Args:  cobra.ExactArgs(1),
	Run: runCommand(func(ctx context.Context, w io.Writer, args []string) int {
		return runCarsBrand(ctx, w, args[0])
	}),
}

var carsPriceCmd = &cobra.Command{
	Use:   "price <min> <max>",
	Short: "List cars within a price range",
	Args:  cobra.ExactArgs(2),
	Run: runCommand(func(ctx context.Context, w io.Writer, args []string) int {
		return runCarsPrice(ctx, w, args[0], args[1])
	}),
}

func init() {
	carsCmd.AddCommand(carsListCmd, carsShowCmd, carsBrandCmd, carsPriceCmd)
	rootCmd.AddCommand(carsCmd)
}

func runCarsList(ctx context.Context, w io.Writer) int {
	return runCarQuery(ctx, w, "/cars", func(rt *runtime) ([]client.Car, error) {
		return rt.client.Catalog(ctx)
	})
}

func runCarsBrand(ctx context.Context, w io.Writer, brand string) int {
	return runCarQuery(ctx, w, "/cars", func(rt *runtime) ([]client.Car, error) {
		return rt.client.CarsByBrand(ctx, brand)
	})
}

func runCarsPrice(ctx context.Context, w io.Writer, minArg, maxArg string) int {
	minPrice, err := strconv.ParseFloat(minArg, 64)
	if err != nil {
		fmt.Fprintf(w, "Error: invalid minimum price %q\n", minArg)
		return exitError
	}
	maxPrice, err := strconv.ParseFloat(maxArg, 64)
	if err != nil {
		fmt.Fprintf(w, "Error: invalid maximum price %q\n", maxArg)
		return exitError
	}
	if minPrice > maxPrice {
		fmt.Fprintln(w, "Error: minimum price is greater than maximum price")
		return exitError
	}

	return runCarQuery(ctx, w, "/cars", func(rt *runtime) ([]client.Car, error) {
		return rt.client.CarsByPrice(ctx, minPrice, maxPrice)
	})
}

func runCarsShow(ctx context.Context, w io.Writer, idArg string) int {
	id, err := parseID(idArg)
	if err != nil {
		printError(w, err)
		return exitError
	}

	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, fmt.Sprintf("/cars/%d", id)) {
			return exitDenied
		}

		car, err := rt.client.Car(ctx, id)
		if err != nil {
			printError(w, err)
			return exitError
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(car))
		} else {
			fmt.Fprintln(w, formatCarHuman(car))
		}
		return exitOK
	})
}

// runCarQuery guards path, runs fetch and prints the resulting list
func runCarQuery(ctx context.Context, w io.Writer, path string, fetch func(*runtime) ([]client.Car, error)) int {
	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, path) {
			return exitDenied
		}

		cars, err := fetch(rt)
		if err != nil {
			printError(w, err)
			return exitError
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(cars))
		} else {
			fmt.Fprintln(w, formatCarsHuman(cars))
		}
		return exitOK
	})
}

// formatCarsHuman formats a car list as a table
func formatCarsHuman(cars []client.Car) string {
	if len(cars) == 0 {
		return "No cars found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-6s %-14s %-18s %-6s %12s  %s\n", "ID", "BRAND", "MODEL", "YEAR", "PRICE", "STATUS")
	for _, c := range cars {
		fmt.Fprintf(&sb, "%-6d %-14s %-18s %-6d %12.2f  %s\n",
			c.ID, truncate(c.Brand, 14), truncate(c.Model, 18), c.Year, c.Price, availability(c.Available))
	}
	fmt.Fprintf(&sb, "\n%d car(s)", len(cars))
	return sb.String()
}

// formatCarHuman formats one car for human readability
func formatCarHuman(c *client.Car) string {
	out := fmt.Sprintf(`Car #%d:      %s %s
Year:         %d
Price:        %.2f
Status:       %s`, c.ID, c.Brand, c.Model, c.Year, c.Price, availability(c.Available))
	if c.SellerName != "" {
		out += "\nSeller:       " + c.SellerName
	}
	if c.ImageURL != "" {
		out += "\nImage:        " + c.ImageURL
	}
	if c.Description != "" {
		out += "\n\n" + c.Description
	}
	return out
}

func availability(available bool) string {
	if available {
		return "available"
	}
	return "sold"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
