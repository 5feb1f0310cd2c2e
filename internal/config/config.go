// ABOUTME: Configuration loader for the carportal CLI
// ABOUTME: Merges flags, environment, .env and config.yaml over defaults

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/carportal/carportal-cli/internal/session"
)

// Defaults
const (
	DefaultAPIURL    = "http://localhost:8080"
	DefaultTimeout   = 15 * time.Second
	DefaultRateBurst = 5
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"

	// FileName is the optional YAML file inside the config directory
	FileName = "config.yaml"
)

// Environment variable names
const (
	EnvAPIURL    = "CARPORTAL_API_URL"
	EnvTimeout   = "CARPORTAL_TIMEOUT"
	EnvConfigDir = "CARPORTAL_CONFIG_DIR"
	EnvRateLimit = "CARPORTAL_RATE_LIMIT"
	EnvRateBurst = "CARPORTAL_RATE_BURST"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvLogFile   = "LOG_FILE"
)

// Config holds the resolved CLI settings
type Config struct {
	// Backend
	APIURL  string
	Timeout time.Duration

	// Local state: session slot, cookie jar, debug log
	ConfigDir string

	// Client-side throttling
	RateLimit float64 // requests per second, 0 disables
	RateBurst int

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string // empty means stderr
}

// Overrides holds values given on the command line. They win over every
// other source.
type Overrides struct {
	APIURL    string
	ConfigDir string
	// DotEnv is the .env path to read; empty means ./.env
	DotEnv string
}

// fileConfig is the shape of config.yaml
type fileConfig struct {
	APIURL    string   `yaml:"api_url"`
	Timeout   string   `yaml:"timeout"`
	RateLimit *float64 `yaml:"rate_limit"`
	RateBurst *int     `yaml:"rate_burst"`
	Log       struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`
}

// Load resolves the configuration. Precedence is flag, environment,
// .env file, config.yaml, then defaults.
func Load(flags Overrides) (*Config, error) {
	if err := loadDotEnv(flags.DotEnv); err != nil {
		return nil, err
	}

	configDir := flags.ConfigDir
	if configDir == "" {
		configDir = getEnv(EnvConfigDir, session.DefaultConfigDir())
	}

	file, err := loadFile(configDir)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIURL:    getEnv(EnvAPIURL, orDefault(file.APIURL, DefaultAPIURL)),
		Timeout:   getEnvDuration(EnvTimeout, fileDuration(file.Timeout, DefaultTimeout)),
		ConfigDir: configDir,
		RateLimit: getEnvFloat(EnvRateLimit, derefFloat(file.RateLimit, 0)),
		RateBurst: getEnvInt(EnvRateBurst, derefInt(file.RateBurst, DefaultRateBurst)),
		LogLevel:  getEnv(EnvLogLevel, orDefault(file.Log.Level, DefaultLogLevel)),
		LogFormat: getEnv(EnvLogFormat, orDefault(file.Log.Format, DefaultLogFormat)),
		LogFile:   getEnv(EnvLogFile, file.Log.File),
	}
	if flags.APIURL != "" {
		cfg.APIURL = flags.APIURL
	}
	cfg.APIURL = strings.TrimRight(ensureScheme(cfg.APIURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved values
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", EnvAPIURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", EnvAPIURL, c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", EnvTimeout, c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%s must not be negative, got %v", EnvRateLimit, c.RateLimit)
	}
	if c.RateBurst < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", EnvRateBurst, c.RateBurst)
	}
	if c.ConfigDir == "" {
		return fmt.Errorf("cannot determine config directory; set %s", EnvConfigDir)
	}
	return nil
}

// loadDotEnv reads a .env file into the process environment without
// overriding variables that are already set.
func loadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

func loadFile(dir string) (*fileConfig, error) {
	var file fileConfig
	if dir == "" {
		return &file, nil
	}

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &file, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(expandEnvVars(string(data)))
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &file, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func fileDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func orDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

func derefFloat(p *float64, defaultValue float64) float64 {
	if p == nil {
		return defaultValue
	}
	return *p
}

func derefInt(p *int, defaultValue int) int {
	if p == nil {
		return defaultValue
	}
	return *p
}

// ensureScheme adds https:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "https://" + url
	}
	return url
}
