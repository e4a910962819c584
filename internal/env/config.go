package env

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/luma/pktgen/model"
)

// Config is the generator configuration. Values come from an optional TOML
// file first; environment variables fill what the file leaves unset and
// command line flags override both.
type Config struct {
	Verbose       bool   `env:"PKTGEN_VERBOSE" toml:"verbose"`
	GenStats      bool   `env:"PKTGEN_GEN_STATS" toml:"gen_stats"`
	LogMacro      string `env:"PKTGEN_LOG_MACRO" toml:"log_macro"`
	NoLogs        bool   `env:"PKTGEN_NO_LOGS" toml:"no_logs"`
	NoFoldBool    bool   `env:"PKTGEN_NO_FOLD_BOOL" toml:"no_fold_bool"`
	LazyOverwrite bool   `env:"PKTGEN_LAZY_OVERWRITE" toml:"lazy_overwrite"`
	DebugHTTP     bool   `env:"PKTGEN_DEBUG_HTTP" toml:"debug_http"`

	// Capabilities offered by the serve command.
	Capabilities string `env:"PKTGEN_CAPABILITIES" toml:"capabilities"`

	// Constants resolve symbolic array sizes, e.g. MAX_LEN_NAME.
	Constants map[string]int `env:"PKTGEN_CONSTANTS" toml:"constants"`
}

// LoadConfig reads .env.local, the TOML file at path when path is not empty
// and the environment.
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	config := Config{}

	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("Failed to load .env.local: %w", err)
		}
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, &config); err != nil {
			return nil, fmt.Errorf("Failed to read config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, err
	}

	if config.Constants == nil {
		config.Constants = map[string]int{}
	}

	return &config, nil
}

// Model returns the immutable generation configuration.
func (c *Config) Model() model.Config {
	cfg := model.DefaultConfig()

	cfg.Verbose = c.Verbose
	cfg.GenStats = c.GenStats
	cfg.FoldBool = !c.NoFoldBool

	switch {
	case c.NoLogs:
		cfg.LogMacro = ""
	case c.LogMacro != "":
		cfg.LogMacro = c.LogMacro
	}

	for name, value := range c.Constants {
		cfg.Constants[name] = value
	}

	return cfg
}
