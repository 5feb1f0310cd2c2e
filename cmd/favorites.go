// ABOUTME: Favorites commands: list, add, remove and check
// ABOUTME: Guarded by the authenticated /favorites route

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

const favoritesPath = "/favorites"

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Manage your favorite cars",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runFavoritesList(ctx, w)
	}),
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorite cars",
	Args:  cobra.NoArgs,
	Run: runCommand(func(ctx context.Context, w io.Writer, _ []string) int {
		return runFavoritesList(ctx, w)
	}),
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add <car-id>",
	Short: "Add a car to favorites",
	Args:  cobra.ExactArgs(1),
	Run: runCommand(func(ctx context.Context, w io.Writer, args []string) int {
		return runFavoritesChange(ctx, w, args[0], true)
	}),
}

var favoritesRemoveCmd = &cobra.Command{
	Use:   "remove <car-id>",
	Short: "Remove a car from favorites",
	Args:  cobra.ExactArgs(1),
	Run: runCommand(func(ctx context.Context, w io.Writer, args []string) int {
		return runFavoritesChange(ctx, w, args[0], false)
	}),
}

var favoritesCheckCmd = &cobra.Command{
	Use:   "check <car-id>",
	Short: "Check whether a car is a favorite",
	Args:  cobra.ExactArgs(1),
	Run: runCommand(func(ctx context.Context, w io.Writer, args []string) int {
		return runFavoritesCheck(ctx, w, args[0])
	}),
}

func init() {
	favoritesCmd.AddCommand(favoritesListCmd, favoritesAddCmd, favoritesRemoveCmd, favoritesCheckCmd)
	rootCmd.AddCommand(favoritesCmd)
}

func runFavoritesList(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, favoritesPath) {
			return exitDenied
		}

		cars, err := rt.client.Favorites(ctx)
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

func runFavoritesChange(ctx context.Context, w io.Writer, idArg string, add bool) int {
	id, err := parseID(idArg)
	if err != nil {
		printError(w, err)
		return exitError
	}

	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, favoritesPath) {
			return exitDenied
		}

		var msg string
		if add {
			msg, err = rt.client.AddFavorite(ctx, id)
		} else {
			msg, err = rt.client.RemoveFavorite(ctx, id)
		}
		if err != nil {
			printError(w, err)
			return exitError
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(map[string]interface{}{"car_id": id, "favorite": add, "message": msg}))
			return exitOK
		}
		if msg == "" {
			if add {
				msg = fmt.Sprintf("Car %d added to favorites", id)
			} else {
				msg = fmt.Sprintf("Car %d removed from favorites", id)
			}
		}
		fmt.Fprintln(w, msg)
		return exitOK
	})
}

func runFavoritesCheck(ctx context.Context, w io.Writer, idArg string) int {
	id, err := parseID(idArg)
	if err != nil {
		printError(w, err)
		return exitError
	}

	return withRuntime(ctx, w, runtimeOptions{}, func(rt *runtime) int {
		if !rt.enter(w, favoritesPath) {
			return exitDenied
		}

		fav, err := rt.client.IsFavorite(ctx, id)
		if err != nil {
			printError(w, err)
			return exitError
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(map[string]interface{}{"car_id": id, "favorite": fav}))
		} else if fav {
			fmt.Fprintf(w, "Car %d is in your favorites\n", id)
		} else {
			fmt.Fprintf(w, "Car %d is not in your favorites\n", id)
		}
		return exitOK
	})
}
