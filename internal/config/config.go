// Package config resolves runtime settings in three layers: built-in
// defaults, an optional YAML file, then environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath              string `yaml:"db_path"`
	ListenAddr          string `yaml:"listen_addr"`
	ReferenceTZ         string `yaml:"reference_tz"`
	TickSeconds         int    `yaml:"tick_seconds"`
	DefaultReminderTime string `yaml:"default_reminder_time"`
	OfferTimeoutSeconds int    `yaml:"offer_timeout_seconds"`
	UpcomingLimit       int    `yaml:"upcoming_limit"`
	NameCacheSize       int    `yaml:"name_cache_size"`
	DirectoryURL        string `yaml:"directory_url"`
	DirectoryToken      string `yaml:"directory_token"`
	GatewayURL          string `yaml:"gateway_url"`
	GatewayToken        string `yaml:"gateway_token"`
}

func Default() Config {
	return Config{
		DBPath:              "./taskping.db",
		ListenAddr:          "127.0.0.1:60001",
		ReferenceTZ:         "UTC",
		TickSeconds:         60,
		DefaultReminderTime: "08:00",
		OfferTimeoutSeconds: 180,
		UpcomingLimit:       5,
		NameCacheSize:       256,
	}
}

func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

func (c Config) OfferTimeout() time.Duration {
	return time.Duration(c.OfferTimeoutSeconds) * time.Second
}

// Load resolves the configuration. A missing file at path is fine; a
// present but unreadable or invalid one is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// run on defaults and environment
		case err != nil:
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.DBPath, "DB_PATH")
	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.ReferenceTZ, "REFERENCE_TZ")
	setString(&cfg.DefaultReminderTime, "DEFAULT_REMINDER_TIME")
	setString(&cfg.DirectoryURL, "DIRECTORY_URL")
	setString(&cfg.DirectoryToken, "DIRECTORY_TOKEN")
	setString(&cfg.GatewayURL, "GATEWAY_URL")
	setString(&cfg.GatewayToken, "GATEWAY_TOKEN")

	for _, v := range []struct {
		dst *int
		key string
	}{
		{&cfg.TickSeconds, "TICK_SECONDS"},
		{&cfg.OfferTimeoutSeconds, "OFFER_TIMEOUT_SECONDS"},
		{&cfg.UpcomingLimit, "UPCOMING_LIMIT"},
		{&cfg.NameCacheSize, "NAME_CACHE_SIZE"},
	} {
		if err := setInt(v.dst, v.key); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	*dst = n
	return nil
}
