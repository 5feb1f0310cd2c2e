// ABOUTME: Root command for the carportal CLI
// ABOUTME: Handles global flags and configuration

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/carportal/carportal-cli/internal/config"
)

var (
	apiURL     string
	configDir  string
	jsonOutput bool
)

// Exit codes shared by all commands
const (
	exitOK     = 0
	exitDenied = 1
	exitError  = 2
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "carportal",
	Short: "CLI for the Car Portal",
	Long: `carportal is a command-line client for the Car Portal backend.

It keeps your session between runs, refreshes it transparently when the
backend reports it expired, and applies the same access rules as the web
front end.

Environment Variables:
  CARPORTAL_API_URL     Backend API URL (default: http://localhost:8080)
  CARPORTAL_TIMEOUT     Request timeout (default: 15s)
  CARPORTAL_CONFIG_DIR  Session and cookie storage (default: ~/.config/carportal)
  CARPORTAL_RATE_LIMIT  Max requests per second, 0 disables (default: 0)
  CARPORTAL_RATE_BURST  Rate limiter burst (default: 5)
  LOG_LEVEL             debug, info, warn, error (default: warn)
  LOG_FORMAT            text, json (default: text)
  LOG_FILE              Write logs to a file instead of stderr`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides CARPORTAL_API_URL)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory for session state (overrides CARPORTAL_CONFIG_DIR)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// LoadConfig resolves configuration with command-line flags taking priority
func LoadConfig() (*config.Config, error) {
	return config.Load(config.Overrides{APIURL: apiURL, ConfigDir: configDir})
}

// GetAPIURL returns the API URL from flag, env, config file, or default (in priority order)
func GetAPIURL() string {
	cfg, err := LoadConfig()
	if err != nil {
		if apiURL != "" {
			return apiURL
		}
		return config.DefaultAPIURL
	}
	return cfg.APIURL
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}
