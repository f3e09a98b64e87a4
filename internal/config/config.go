package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// QueryMode selects where bars come from.
type QueryMode string

const (
	QueryFile QueryMode = "file" // intradayDetail CSV files in DataDir
	QueryAPI  QueryMode = "api"  // Alpaca market data
)

// Config is the process configuration, read from the environment (and .env if present).
type Config struct {
	DataDir   string `envconfig:"TRADER_DATA_DIR" default:"data"`
	OutputDir string `envconfig:"TRADER_OUTPUT_DIR" default:"output"`
	StateFile string `envconfig:"TRADER_STATE_FILE" default:"trader_state.json"`
	DBPath    string `envconfig:"TRADER_DB_PATH"` // empty disables the trade database

	LogFile       string `envconfig:"TRADER_LOG_FILE" default:"intraday_trader.log"`
	LogLevel      string `envconfig:"TRADER_LOG_LEVEL" default:"info"`
	MaxLogSizeMB  int64  `envconfig:"MAX_LOG_SIZE_MB" default:"10"`
	MaxLogBackups int    `envconfig:"MAX_LOG_BACKUPS" default:"3"`

	QueryMode QueryMode `envconfig:"TRADER_QUERY_MODE" default:"file"`

	APIKeyID     string `envconfig:"APCA_API_KEY_ID"`
	APISecretKey string `envconfig:"APCA_API_SECRET_KEY"`
	APIBaseURL   string `envconfig:"APCA_API_BASE_URL" default:"https://paper-api.alpaca.markets"`
	DataFeed     string `envconfig:"APCA_DATA_FEED" default:"iex"`
}

// secretVars are masked whenever configuration is printed.
var secretVars = map[string]bool{
	"APCA_API_KEY_ID":     true,
	"APCA_API_SECRET_KEY": true,
}

// Load initializes the configuration.
// It tries to read a .env file, then fills Config from the process environment.
func Load() (*Config, error) {
	// Load .env variables into the process environment
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.QueryMode {
	case QueryFile:
		if c.DataDir == "" {
			return fmt.Errorf("TRADER_DATA_DIR is required in %s query mode", c.QueryMode)
		}
	case QueryAPI:
		// Credentials are only needed when we actually talk to Alpaca.
		var missing []string
		if c.APIKeyID == "" {
			missing = append(missing, "APCA_API_KEY_ID")
		}
		if c.APISecretKey == "" {
			missing = append(missing, "APCA_API_SECRET_KEY")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required environment variables for api query mode: %v", missing)
		}
	default:
		return fmt.Errorf("unknown TRADER_QUERY_MODE %q (want %q or %q)", c.QueryMode, QueryFile, QueryAPI)
	}
	if c.MaxLogSizeMB <= 0 {
		return fmt.Errorf("MAX_LOG_SIZE_MB must be positive, got %d", c.MaxLogSizeMB)
	}
	return nil
}

// Mask shows only the last 4 characters of a secret.
func Mask(val string) string {
	if len(val) > 4 {
		return "***" + val[len(val)-4:]
	}
	return "***"
}

// PrintEnvFile logs the variables defined in the .env file, masking secrets.
func PrintEnvFile(filenames ...string) {
	envMap, err := godotenv.Read(filenames...)
	if err != nil {
		return
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	log.Info("--- .env File Variables ---")
	for _, key := range keys {
		val := envMap[key]
		if secretVars[key] {
			val = Mask(val)
		}
		log.Infof("%s=%s", key, val)
	}
	log.Info("---------------------------")
}

// Fields renders the effective configuration for logging, with secrets masked.
func (c *Config) Fields() log.Fields {
	f := log.Fields{
		"data_dir":   c.DataDir,
		"output_dir": c.OutputDir,
		"state_file": c.StateFile,
		"db_path":    c.DBPath,
		"log_file":   c.LogFile,
		"log_level":  c.LogLevel,
		"query_mode": c.QueryMode,
	}
	if c.QueryMode == QueryAPI {
		f["api_key"] = Mask(c.APIKeyID)
		f["api_secret"] = Mask(c.APISecretKey)
		f["api_base_url"] = c.APIBaseURL
		f["data_feed"] = c.DataFeed
	}
	return f
}

// EnsureDirs creates the output directory.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}
