package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/edaboard/internal/analysis"
	"github.com/KaramelBytes/edaboard/internal/dataset"
	"github.com/KaramelBytes/edaboard/internal/utils"
)

// EnvPrefix prefixes every environment override, e.g. EDABOARD_LISTEN_ADDR.
const EnvPrefix = "EDABOARD"

// Global configuration structure.
type Global struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr" validate:"required"`

	// Analysis thresholds
	MaxCategoricalUnique int `mapstructure:"max_categorical_unique" yaml:"max_categorical_unique" validate:"gte=1"`
	HistogramBins        int `mapstructure:"histogram_bins" yaml:"histogram_bins" validate:"gte=1,ltefield=MaxHistogramBins"`
	MaxHistogramBins     int `mapstructure:"max_histogram_bins" yaml:"max_histogram_bins" validate:"gte=1"`

	// Upload parsing
	MaxUploadMB int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb" validate:"gte=1"`
	NullTokens  []string `mapstructure:"null_tokens" yaml:"null_tokens"`
	Delimiter   string   `mapstructure:"delimiter" yaml:"delimiter"`

	// Sessions
	SessionTTLMin   int `mapstructure:"session_ttl_min" yaml:"session_ttl_min" validate:"gte=0"`
	SessionSweepSec int `mapstructure:"session_sweep_sec" yaml:"session_sweep_sec" validate:"gte=0"`

	// Upload throttling
	UploadRatePerSec float64 `mapstructure:"upload_rate_per_sec" yaml:"upload_rate_per_sec" validate:"gte=0"`
	UploadBurst      int     `mapstructure:"upload_burst" yaml:"upload_burst" validate:"gte=1"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=json text"`

	ChartWidth  int `mapstructure:"chart_width" yaml:"chart_width" validate:"gte=200"`
	ChartHeight int `mapstructure:"chart_height" yaml:"chart_height" validate:"gte=150"`
}

// DefaultPath returns ~/.edaboard/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".edaboard", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.edaboard/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8501")
	v.SetDefault("max_categorical_unique", 25)
	v.SetDefault("histogram_bins", 50)
	v.SetDefault("max_histogram_bins", 500)
	v.SetDefault("max_upload_mb", 200)
	v.SetDefault("null_tokens", dataset.DefaultNullTokens)
	v.SetDefault("delimiter", ",")
	v.SetDefault("session_ttl_min", 60)
	v.SetDefault("session_sweep_sec", 60)
	v.SetDefault("upload_rate_per_sec", 2.0)
	v.SetDefault("upload_burst", 5)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("chart_width", 900)
	v.SetDefault("chart_height", 500)
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".edaboard"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ranges and enumerations.
func (c *Global) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := ParseDelimiter(c.Delimiter); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseDelimiter accepts a single character or the names "tab", "comma", "semicolon"
// and "pipe". Empty means comma.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", ",", "comma":
		return ',', nil
	case "\t", `\t`, "tab":
		return '\t', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, fmt.Errorf("unsupported delimiter %q", s)
	}
	return r[0], nil
}

// DatasetOptions converts the upload settings for the loader.
func (c *Global) DatasetOptions() dataset.Options {
	d, _ := ParseDelimiter(c.Delimiter)
	opt := dataset.DefaultOptions()
	opt.Delimiter = d
	if c.NullTokens != nil {
		opt.NullTokens = append([]string(nil), c.NullTokens...)
	}
	opt.MaxBytes = int64(c.MaxUploadMB) << 20
	return opt
}

// AnalysisOptions converts the thresholds for the analysis package.
func (c *Global) AnalysisOptions() analysis.Options {
	opt := analysis.DefaultOptions()
	opt.MaxCategoricalUnique = c.MaxCategoricalUnique
	opt.HistogramBins = c.HistogramBins
	return opt
}

// SessionTTL is the idle time after which a session is dropped.
func (c *Global) SessionTTL() time.Duration { return time.Duration(c.SessionTTLMin) * time.Minute }

// SweepInterval is how often idle sessions are swept.
func (c *Global) SweepInterval() time.Duration {
	return time.Duration(c.SessionSweepSec) * time.Second
}
