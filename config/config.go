package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rentacar/crypto"

	"github.com/BurntSushi/toml"
)

// EnvEnvironment overrides the Environment field when set.
const EnvEnvironment = "RENTACAR_ENV"

type Config struct {
	ListenAddress     string       `toml:"ListenAddress"`
	DataDir           string       `toml:"DataDir"`
	EventLogDSN       string       `toml:"EventLogDSN"`
	AdminKeystorePath string       `toml:"AdminKeystorePath"`
	PaymentAsset      string       `toml:"PaymentAsset"`
	Environment       string       `toml:"Environment"`
	LogFile           string       `toml:"LogFile"`
	RateLimit         RateLimit    `toml:"rate_limit"`
	Telemetry         Telemetry    `toml:"telemetry"`
	Allocations       []Allocation `toml:"allocations"`
}

// Load reads the configuration at path, writing a default file first when
// none exists. Missing optional fields are filled in and persisted back.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
	}

	changed := cfg.applyDefaults(path)
	if env := strings.TrimSpace(os.Getenv(EnvEnvironment)); env != "" {
		cfg.Environment = env
	}
	if changed {
		if err := persist(path, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// applyDefaults fills unset fields and reports whether anything changed.
func (cfg *Config) applyDefaults(path string) bool {
	changed := false
	set := func(field *string, value string) {
		if strings.TrimSpace(*field) == "" {
			*field = value
			changed = true
		}
	}
	set(&cfg.ListenAddress, ":8545")
	set(&cfg.DataDir, "./rentacar-data")
	set(&cfg.AdminKeystorePath, defaultKeystorePath(path))
	set(&cfg.PaymentAsset, DefaultPaymentAsset())
	set(&cfg.Environment, "local")
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 600
		changed = true
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 50
		changed = true
	}
	return changed
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults(path)
	if env := strings.TrimSpace(os.Getenv(EnvEnvironment)); env != "" {
		cfg.Environment = env
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." {
		dir = ""
	}
	return filepath.Join(dir, "admin.keystore")
}

// DefaultPaymentAsset is the asset identifier used when none is configured.
func DefaultPaymentAsset() string {
	var raw [20]byte
	copy(raw[:], crypto.Digest([]byte("rentacar/asset/native"))[12:])
	return crypto.FormatAsset(raw)
}

// EventLogPath returns the sqlite DSN for the event log, defaulting to a file
// inside the data directory.
func (cfg *Config) EventLogPath() string {
	if dsn := strings.TrimSpace(cfg.EventLogDSN); dsn != "" {
		return dsn
	}
	return filepath.Join(cfg.DataDir, "events.db")
}
