// Package config loads application configuration from file and
// environment and owns the global logger setup.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Dataset    DatasetConfig    `yaml:"dataset" mapstructure:"dataset"`
	Resolver   ResolverConfig   `yaml:"resolver" mapstructure:"resolver"`
	Calculator CalculatorConfig `yaml:"calculator" mapstructure:"calculator"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DatasetConfig configures dataset loading.
type DatasetConfig struct {
	Source      string `yaml:"source" mapstructure:"source"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// ResolverConfig configures semantic field resolution.
type ResolverConfig struct {
	// CandidatesFile optionally points to a YAML file overriding the
	// built-in role→candidate-key table.
	CandidatesFile string `yaml:"candidates_file" mapstructure:"candidates_file"`
}

// CalculatorConfig configures the affordability calculator.
type CalculatorConfig struct {
	Categories []string `yaml:"categories" mapstructure:"categories"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP service. Slots maps logical output
// fields to the presentation slots the host page renders them into, so
// frontends stay decoupled from the page layout.
type ServerConfig struct {
	Port        int               `yaml:"port" mapstructure:"port"`
	CORSOrigins []string          `yaml:"cors_origins" mapstructure:"cors_origins"`
	Slots       map[string]string `yaml:"slots" mapstructure:"slots"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("USI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataset.user_agent", "usi-cli/1.0")
	v.SetDefault("dataset.timeout_secs", 30)
	v.SetDefault("dataset.max_retries", 3)
	v.SetDefault("calculator.categories", []string{
		"Housing", "Food", "Utilities", "Public Transport", "Car", "Clothing", "Discretionary",
	})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "usi.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.slots", map[string]string{
		"map":       "usi-map",
		"summary":   "tier-summary",
		"chart":     "breakdown-chart",
		"remaining": "remaining-value",
	})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
