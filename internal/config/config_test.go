package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TREADS_MCP_URL", "TREADS_LOG_LEVEL", "TREADS_SERVER_ADDRESS", "TREADS_MCP_CACHE_TTL",
		LegacyMCPURLEnv,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileEnvAndLegacy(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "treads.yaml")
	content := "server:\n  address: 0.0.0.0:9000\nmcp:\n  timeout: 2s\n  cache_ttl: 0s\nrender:\n  sanitize: false\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TREADS_LOG_LEVEL", "debug")
	t.Setenv(LegacyMCPURLEnv, "http://nanobot:8080/mcp")

	cfg, err := Load(WithFile(file), WithEnvFiles())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Address != "0.0.0.0:9000" {
		t.Fatalf("expected file address, got %q", cfg.Server.Address)
	}
	if cfg.MCP.Timeout != 2*time.Second || cfg.MCP.CacheTTL != 0 {
		t.Fatalf("unexpected mcp durations %+v", cfg.MCP)
	}
	if cfg.Render.Sanitize {
		t.Fatalf("expected sanitize disabled from file")
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected env log level, got %q", cfg.Log.Level)
	}
	if cfg.MCP.URL != "http://nanobot:8080/mcp" {
		t.Fatalf("expected legacy mcp url, got %q", cfg.MCP.URL)
	}

	t.Setenv("TREADS_MCP_URL", "http://primary:1/mcp")
	cfg, err = Load(WithFile(file), WithEnvFiles())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MCP.URL != "http://primary:1/mcp" {
		t.Fatalf("expected prefixed env to win over legacy, got %q", cfg.MCP.URL)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("TREADS_SERVER_ADDRESS=127.0.0.1:7777\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Chdir(dir)

	cfg, err := Load(WithEnvFiles(envFile))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != "127.0.0.1:7777" {
		t.Fatalf("expected address from .env, got %q", cfg.Server.Address)
	}
}

func TestLoad_BoundViper(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	v := viper.New()
	v.Set("mcp.url", "http://flag:1/mcp")

	cfg, err := Load(WithViper(v), WithEnvFiles())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MCP.URL != "http://flag:1/mcp" {
		t.Fatalf("expected flag value, got %q", cfg.MCP.URL)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(WithFile(filepath.Join(t.TempDir(), "nope.yaml")), WithEnvFiles()); err == nil {
		t.Fatalf("expected error for missing explicit file")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty url":        func(c *Config) { c.MCP.URL = "" },
		"relative url":     func(c *Config) { c.MCP.URL = "localhost/mcp" },
		"empty address":    func(c *Config) { c.Server.Address = " " },
		"negative timeout": func(c *Config) { c.MCP.Timeout = -time.Second },
		"negative ttl":     func(c *Config) { c.MCP.CacheTTL = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestYAML(t *testing.T) {
	out, err := Defaults().YAML()
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(string(out), "url: http://localhost:8099/mcp") {
		t.Fatalf("unexpected yaml:\n%s", out)
	}

	var decoded map[string]any
	if err := yaml.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("yaml output should parse: %v", err)
	}
	if _, ok := decoded["render"]; !ok {
		t.Fatalf("expected render section in %v", decoded)
	}
}
