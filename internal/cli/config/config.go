package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/rulelint/internal/lint/report"
	"github.com/conduit-lang/rulelint/internal/lint/source"
)

// FileName is the configuration file looked up in the project root
const FileName = ".rulelint.yml"

// EnvPrefix prefixes every environment override, e.g. RULELINT_PARALLELISM
const EnvPrefix = "RULELINT"

// DefaultMatchTimeout bounds a single regex evaluation
const DefaultMatchTimeout = 5 * time.Second

// Config represents the rulelint configuration
type Config struct {
	Rules        []string      `mapstructure:"rules" yaml:"rules"`
	Paths        []string      `mapstructure:"paths" yaml:"paths"`
	Exclude      []string      `mapstructure:"exclude" yaml:"exclude"`
	Parallelism  int           `mapstructure:"parallelism" yaml:"parallelism"`
	MatchTimeout time.Duration `mapstructure:"match_timeout" yaml:"match_timeout"`
	Output       string        `mapstructure:"output" yaml:"output"`
	ReportFile   string        `mapstructure:"report_file" yaml:"report_file,omitempty"`
	NoColor      bool          `mapstructure:"no_color" yaml:"no_color,omitempty"`

	// Dir is the directory relative paths are resolved against: the
	// directory of the loaded file, or the search directory without one
	Dir string `mapstructure:"-" yaml:"-"`
	// File is the configuration file that was read, "" when defaults apply
	File string `mapstructure:"-" yaml:"-"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Rules:        []string{"rules.yml"},
		Paths:        []string{"."},
		Exclude:      append([]string(nil), source.DefaultExcludes...),
		MatchTimeout: DefaultMatchTimeout,
		Output:       string(report.FormatText),
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	d := Default()

	// Set defaults
	v.SetDefault("rules", d.Rules)
	v.SetDefault("paths", d.Paths)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("parallelism", 0)
	v.SetDefault("match_timeout", d.MatchTimeout)
	v.SetDefault("output", d.Output)
	v.SetDefault("report_file", "")
	v.SetDefault("no_color", false)

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// Load loads .rulelint.yml (or .rulelint.yaml) from dir. A missing file is
// not an error: defaults and environment overrides apply.
func Load(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName(strings.TrimSuffix(FileName, ".yml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return decode(v, dir)
}

// LoadFile loads an explicit configuration file
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(v, filepath.Dir(path))
}

func decode(v *viper.Viper, dir string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Dir = dir
	cfg.File = v.ConfigFileUsed()
	if cfg.File != "" {
		cfg.Dir = filepath.Dir(cfg.File)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := report.ParseFormat(c.Output); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative, got: %d", c.Parallelism)
	}
	if c.MatchTimeout <= 0 {
		return fmt.Errorf("match_timeout must be positive, got: %s", c.MatchTimeout)
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("rules must name at least one rule file")
	}
	return nil
}

// Resolve returns p relative to the configuration directory unless it is
// already absolute
func (c *Config) Resolve(p string) string {
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// RuleFiles returns the rule files resolved against the configuration
// directory, in declaration order
func (c *Config) RuleFiles() []string {
	out := make([]string, len(c.Rules))
	for i, p := range c.Rules {
		out[i] = c.Resolve(p)
	}
	return out
}

// Save writes the configuration as YAML to path
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// FindProjectRoot walks up from dir looking for .rulelint.yml
func FindProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		for _, name := range []string{FileName, ".rulelint.yaml"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, nil
			}
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found", FileName)
		}
		dir = parent
	}
}
