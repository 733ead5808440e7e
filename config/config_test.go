package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rentacar/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	t.Setenv(EnvEnvironment, "")
	path := filepath.Join(t.TempDir(), "conf", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress == "" || cfg.DataDir == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.AdminKeystorePath != filepath.Join(filepath.Dir(path), "admin.keystore") {
		t.Fatalf("unexpected keystore path %s", cfg.AdminKeystorePath)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not persisted: %v", err)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.PaymentAsset != cfg.PaymentAsset || again.ListenAddress != cfg.ListenAddress {
		t.Fatalf("reload mismatch: %+v vs %+v", again, cfg)
	}
}

func TestLoadParsesSettings(t *testing.T) {
	t.Setenv(EnvEnvironment, "")
	var raw [20]byte
	raw[0] = 0x42
	owner := crypto.FormatAccount(raw)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `ListenAddress = "127.0.0.1:9000"
DataDir = "/var/lib/rentacar"
EventLogDSN = "postgres://rentacar@db/events"
Environment = "staging"
LogFile = "/var/log/rentacar.log"

[rate_limit]
RequestsPerMinute = 120
Burst = 10

[telemetry]
Endpoint = "collector:4318"
Traces = true

[[allocations]]
Address = "` + owner + `"
Amount = "5000"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:9000" || cfg.Environment != "staging" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.RateLimit.RequestsPerMinute != 120 || cfg.RateLimit.Burst != 10 {
		t.Fatalf("rate limit not parsed: %+v", cfg.RateLimit)
	}
	if !cfg.Telemetry.Traces || cfg.Telemetry.Metrics {
		t.Fatalf("telemetry not parsed: %+v", cfg.Telemetry)
	}
	if cfg.EventLogPath() != "postgres://rentacar@db/events" {
		t.Fatalf("event log dsn = %s", cfg.EventLogPath())
	}
	if len(cfg.Allocations) != 1 {
		t.Fatalf("allocations = %d", len(cfg.Allocations))
	}
	addr, amount, err := cfg.Allocations[0].Parse()
	if err != nil || addr != raw || amount.Int64() != 5000 {
		t.Fatalf("allocation parse: %v %v %v", addr, amount, err)
	}
	if cfg.PaymentAsset != DefaultPaymentAsset() {
		t.Fatalf("payment asset default not applied")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("ValidatorKey = \"abc\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "ValidatorKey") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv(EnvEnvironment, "prod")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "prod" {
		t.Fatalf("environment = %s", cfg.Environment)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.applyDefaults("config.toml")
		return cfg
	}
	var raw [20]byte
	raw[5] = 1
	cases := map[string]func(*Config){
		"account as asset": func(c *Config) { c.PaymentAsset = crypto.FormatAccount(raw) },
		"garbage asset":    func(c *Config) { c.PaymentAsset = "nope" },
		"no listen":        func(c *Config) { c.ListenAddress = " " },
		"zero burst":       func(c *Config) { c.RateLimit.Burst = 0 },
		"negative allocation": func(c *Config) {
			c.Allocations = []Allocation{{Address: crypto.FormatAccount(raw), Amount: "-1"}}
		},
		"duplicate allocation": func(c *Config) {
			addr := crypto.FormatAccount(raw)
			c.Allocations = []Allocation{{Address: addr, Amount: "1"}, {Address: addr, Amount: "2"}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
