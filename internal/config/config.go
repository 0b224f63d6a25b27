package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/assessor-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Periods   PeriodsConfig   `yaml:"periods" mapstructure:"periods"`
	Directory DirectoryConfig `yaml:"directory" mapstructure:"directory"`
	Schema    SchemaConfig    `yaml:"schema" mapstructure:"schema"`
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
}

// PeriodsConfig configures the default reporting window.
type PeriodsConfig struct {
	Count         int      `yaml:"count" mapstructure:"count"`
	Exclude       []string `yaml:"exclude" mapstructure:"exclude"`
	ReferenceDate string   `yaml:"reference_date" mapstructure:"reference_date"` // YYYY-MM-DD, empty = today
}

// DirectoryConfig configures the advisor roster.
type DirectoryConfig struct {
	Path         string `yaml:"path" mapstructure:"path"` // empty = built-in roster
	UnknownLabel string `yaml:"unknown_label" mapstructure:"unknown_label"`
}

// SchemaConfig overrides spreadsheet column labels by field key.
type SchemaConfig struct {
	Columns map[string]string `yaml:"columns" mapstructure:"columns"`
}

// InputConfig configures where monthly spreadsheets are read from.
type InputConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// ExportConfig configures export files.
type ExportConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int `yaml:"port" mapstructure:"port"`
	CacheTTLMinutes int `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	MaxUploadMB     int `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`

	// UploadsPerMinute caps POST /analyses across all clients. 0 disables it.
	UploadsPerMinute int `yaml:"uploads_per_minute" mapstructure:"uploads_per_minute"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// schemaKeys are the column override keys bound to the environment.
var schemaKeys = []string{
	"advisor", "client", "sex", "birth_date",
	"bovespa", "futuros", "rf_bancarios", "rf_privados", "rf_publicos", "receita_mes",
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ASSESSOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("periods.count", 6)
	v.SetDefault("periods.exclude", []string{"April"})
	v.SetDefault("periods.reference_date", "")
	v.SetDefault("directory.path", "")
	v.SetDefault("directory.unknown_label", model.UnknownAdvisor)
	for _, k := range schemaKeys {
		v.SetDefault("schema.columns."+k, "")
	}
	v.SetDefault("input.dir", ".")
	v.SetDefault("input.concurrency", 4)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.format", "xlsx")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cache_ttl_minutes", 30)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.uploads_per_minute", 60)

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

// Validate checks the settings a command mode depends on. Mode is one of
// "analyze" or "serve"; serve also checks the server block.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Periods.Count < 0 {
		problems = append(problems, "periods.count must be >= 0")
	}
	if _, err := model.ParseMonths(c.Periods.Exclude); err != nil {
		problems = append(problems, "periods.exclude: "+err.Error())
	}
	if _, err := c.ReferenceTime(time.Now()); err != nil {
		problems = append(problems, "periods.reference_date must be YYYY-MM-DD")
	}
	switch strings.ToLower(c.Export.Format) {
	case "xlsx", "csv":
	default:
		problems = append(problems, "export.format must be xlsx or csv")
	}
	if c.Input.Concurrency < 1 || c.Input.Concurrency > 32 {
		problems = append(problems, "input.concurrency must be between 1 and 32")
	}

	switch mode {
	case "analyze":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.CacheTTLMinutes <= 0 {
			problems = append(problems, "server.cache_ttl_minutes must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			problems = append(problems, "server.max_upload_mb must be > 0")
		}
		if c.Server.UploadsPerMinute < 0 {
			problems = append(problems, "server.uploads_per_minute must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ReferenceTime returns the configured reference date, or now when unset.
func (c *Config) ReferenceTime(now time.Time) (time.Time, error) {
	if c.Periods.ReferenceDate == "" {
		return now, nil
	}
	t, err := time.Parse("2006-01-02", c.Periods.ReferenceDate)
	if err != nil {
		return time.Time{}, eris.Wrap(err, "config: parse reference date")
	}
	return t, nil
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
