// Package config loads service settings from a YAML file, .env files and
// TREADS_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. TREADS_MCP_URL.
const EnvPrefix = "TREADS"

// LegacyMCPURLEnv is honoured when mcp.url is not set any other way.
const LegacyMCPURLEnv = "NANOBOT_MCP_URL"

// Config is the full service configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	MCP    MCPConfig    `mapstructure:"mcp" yaml:"mcp"`
	Render RenderConfig `mapstructure:"render" yaml:"render"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// ServerConfig controls the HTTP listener used by treads serve.
type ServerConfig struct {
	Address      string        `mapstructure:"address" yaml:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// MCPConfig points at the MCP server that stores ui:// templates and agent
// tools. Timeout bounds each template lookup; CacheTTL of zero disables the
// lookup cache.
type MCPConfig struct {
	URL      string        `mapstructure:"url" yaml:"url"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// RenderConfig controls post-processing of rendered fragments.
type RenderConfig struct {
	Sanitize bool `mapstructure:"sanitize" yaml:"sanitize"`
}

// LogConfig selects the zap level and encoder ("json" or "console").
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Address:      "127.0.0.1:8000",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MCP: MCPConfig{
			URL:      "http://localhost:8099/mcp",
			Timeout:  5 * time.Second,
			CacheTTL: 30 * time.Second,
		},
		Render: RenderConfig{Sanitize: true},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	file     string
	envFiles []string
	v        *viper.Viper
}

// WithFile reads configuration from path instead of searching for
// treads.yaml.
func WithFile(path string) Option {
	return func(l *loader) {
		l.file = strings.TrimSpace(path)
	}
}

// WithEnvFiles overrides the .env files loaded before reading the
// environment. Missing files are skipped.
func WithEnvFiles(paths ...string) Option {
	return func(l *loader) {
		l.envFiles = paths
	}
}

// WithViper loads from v, typically one with command flags bound to it.
func WithViper(v *viper.Viper) Option {
	return func(l *loader) {
		if v != nil {
			l.v = v
		}
	}
}

// Load resolves the configuration. Precedence from lowest to highest:
// defaults, config file, .env files, environment variables, bound flags.
func Load(options ...Option) (Config, error) {
	l := &loader{envFiles: []string{".env"}}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(l)
	}
	if l.v == nil {
		l.v = viper.New()
	}
	v := l.v

	for _, path := range l.envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return Config{}, fmt.Errorf("config: load env file %s: %w", path, err)
		}
	}

	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if legacy := strings.TrimSpace(os.Getenv(LegacyMCPURLEnv)); legacy != "" && os.Getenv(EnvPrefix+"_MCP_URL") == "" {
		v.SetDefault("mcp.url", legacy)
	}

	if l.file != "" {
		v.SetConfigFile(l.file)
	} else {
		v.SetConfigName("treads")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.treads")
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("mcp.url", d.MCP.URL)
	v.SetDefault("mcp.timeout", d.MCP.Timeout)
	v.SetDefault("mcp.cache_ttl", d.MCP.CacheTTL)
	v.SetDefault("render.sanitize", d.Render.Sanitize)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Address) == "" {
		return errors.New("config: server.address is required")
	}
	if strings.TrimSpace(c.MCP.URL) == "" {
		return errors.New("config: mcp.url is required")
	}
	if u, err := url.Parse(c.MCP.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: mcp.url %q must be an absolute URL", c.MCP.URL)
	}
	durations := map[string]time.Duration{
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
		"mcp.timeout":          c.MCP.Timeout,
		"mcp.cache_ttl":        c.MCP.CacheTTL,
	}
	for _, key := range []string{"server.read_timeout", "server.write_timeout", "mcp.timeout", "mcp.cache_ttl"} {
		if durations[key] < 0 {
			return fmt.Errorf("config: %s must not be negative", key)
		}
	}
	return nil
}

// YAML renders the configuration as YAML.
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: marshal yaml: %w", err)
	}
	return out, nil
}
