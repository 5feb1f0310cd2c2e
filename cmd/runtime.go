// ABOUTME: Per-invocation wiring of config, logging, storage, client, store and router
// ABOUTME: Shared output helpers for exit codes, errors, JSON and guard denials

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/carportal/carportal-cli/internal/client"
	"github.com/carportal/carportal-cli/internal/config"
	"github.com/carportal/carportal-cli/internal/guard"
	"github.com/carportal/carportal-cli/internal/logger"
	"github.com/carportal/carportal-cli/internal/session"
)

// runtime is everything a command needs to talk to the portal
type runtime struct {
	cfg    *config.Config
	client *client.Client
	store  *session.Store
	router *guard.Router

	closeLog func() error
}

type runtimeOptions struct {
	// start is the initial router location (default "/")
	start string
	// debugLog sends logs to <config-dir>/debug.log instead of stderr
	debugLog bool
	// background starts reconciliation without waiting for it
	background bool
}

// newRuntime builds the client stack and reconciles the persisted session
// with the backend. The store is wired as the refresh coordinator's session
// handler and the router as its navigator.
func newRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	var closeLog func() error
	if opts.debugLog {
		closeLog, err = logger.InitDebugLog(cfg.ConfigDir, cfg.LogLevel)
	} else {
		closeLog, err = logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	}
	if err != nil {
		return nil, err
	}

	storage := session.NewFileStorage(cfg.ConfigDir)
	jar, err := client.NewPersistentJar(storage)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("loading cookie jar: %w", err)
	}

	c := client.New(cfg.APIURL,
		client.WithTimeout(cfg.Timeout),
		client.WithJar(jar),
		client.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	)
	store := session.New(c, storage)
	c.SetSessionHandler(store)

	start := opts.start
	if start == "" {
		start = guard.HomePath
	}
	router := guard.NewRouter(store, start)
	c.SetNavigator(router)

	rt := &runtime{cfg: cfg, client: c, store: store, router: router, closeLog: closeLog}

	if opts.background {
		store.Start(ctx)
		return rt, nil
	}
	if err := store.Init(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close dumps client metrics at debug level and closes the log file
func (rt *runtime) Close() {
	rt.dumpMetrics()
	if rt.closeLog != nil {
		if err := rt.closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: closing log: %v\n", err)
		}
	}
}

func (rt *runtime) dumpMetrics() {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	families, err := rt.client.Metrics().Registry().Gather()
	if err != nil {
		slog.Debug("Failed to gather client metrics", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := []any{"name", mf.GetName(), "value", m.GetCounter().GetValue()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			slog.Debug("Client metric", attrs...)
		}
	}
}

// enter runs the guard for path. On denial it prints where the user was
// sent and returns false.
func (rt *runtime) enter(w io.Writer, path string) bool {
	d := rt.router.Visit(path)
	if d.Allowed() {
		return true
	}
	printDenied(w, path, d)
	return false
}

// withRuntime creates a runtime, runs fn, and maps a setup failure to exit 2
func withRuntime(ctx context.Context, w io.Writer, opts runtimeOptions, fn func(*runtime) int) int {
	rt, err := newRuntime(ctx, opts)
	if err != nil {
		printError(w, err)
		return exitError
	}
	defer rt.Close()
	return fn(rt)
}

// runCommand adapts a run function to cobra, exiting with its code
func runCommand(run func(ctx context.Context, w io.Writer, args []string) int) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := run(ctx, os.Stdout, args)
		if exitCode != exitOK {
			cancel()
			os.Exit(exitCode)
		}
	}
}

// printError writes err in the CLI's error format
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if errors.Is(err, client.ErrUnauthorized) {
		fmt.Fprintln(w, "Your session has expired. Run 'carportal login' to sign in again.")
	}
}

// printDenied reports a guard redirect
func printDenied(w io.Writer, path string, d guard.Decision) {
	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(map[string]interface{}{
			"path":    path,
			"allowed": false,
			"outcome": d.Outcome.String(),
			"to":      d.To,
			"from":    d.From,
		}))
		return
	}
	fmt.Fprintf(w, "Access denied to %s: %s\n", path, d)
	if d.To == guard.LoginPath {
		fmt.Fprintln(w, "Run 'carportal login' to sign in.")
	}
}

// formatJSON renders v as indented JSON
func formatJSON(v interface{}) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data)
}
