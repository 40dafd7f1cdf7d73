// Package daemon wires the Aura ledger daemon: configuration, storage,
// remote sync, notifications, the catalog watcher and the HTTP API.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/aura-network/aura/internal/app/achievement"
	"github.com/aura-network/aura/internal/app/productivity"
	"github.com/aura-network/aura/internal/app/shop"
	"github.com/aura-network/aura/internal/domain"
)

// Config is the daemon configuration, read from ~/.aura/config.toml and
// then overridden from AURA_* environment variables.
type Config struct {
	API      APIConfig           `toml:"api"`
	Storage  StorageConfig       `toml:"storage"`
	Remote   RemoteConfig        `toml:"remote"`
	Calendar CalendarConfig      `toml:"calendar"`
	Rewards  productivity.Config `toml:"rewards" envPrefix:"AURA_REWARDS_"`
	Catalog  CatalogConfig       `toml:"catalog"`
	Metrics  MetricsConfig       `toml:"metrics"`
	Log      LogConfig           `toml:"log"`

	Achievements []domain.AchievementDefinition `toml:"achievements"`
	Shop         ShopConfig                     `toml:"shop"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host           string `toml:"host" env:"AURA_API_HOST"`
	Port           int    `toml:"port" env:"AURA_API_PORT"`
	RequestTimeout string `toml:"request_timeout" env:"AURA_API_REQUEST_TIMEOUT"`
}

// Addr returns host:port.
func (c APIConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// StorageConfig locates the local SQLite database.
type StorageConfig struct {
	Dir string `toml:"dir" env:"AURA_STORAGE_DIR"`
}

// RemoteConfig selects the remote record store.
type RemoteConfig struct {
	Driver   string `toml:"driver" env:"AURA_REMOTE_DRIVER"` // "memory" or "postgres"
	DSN      string `toml:"dsn" env:"AURA_REMOTE_DSN"`
	MaxConns int32  `toml:"max_conns" env:"AURA_REMOTE_MAX_CONNS"`
}

// CalendarConfig sets the timezone that defines "today".
type CalendarConfig struct {
	Timezone string `toml:"timezone" env:"AURA_TIMEZONE"` // IANA name; empty = system local
}

// CatalogConfig points at an optional achievement catalog file that is
// hot-reloaded on change. When empty the [[achievements]] entries of the
// main config (or the built-in catalog) are used.
type CatalogConfig struct {
	AchievementsFile string `toml:"achievements_file" env:"AURA_ACHIEVEMENTS_FILE"`
	Debounce         string `toml:"debounce" env:"AURA_CATALOG_DEBOUNCE"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled" env:"AURA_METRICS_ENABLED"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `toml:"level" env:"AURA_LOG_LEVEL"` // debug, info, warn, error
}

// ShopConfig overrides the shop catalog.
type ShopConfig struct {
	Items []domain.ShopItem `toml:"items"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           7420,
			RequestTimeout: "30s",
		},
		Storage: StorageConfig{Dir: AuraHome()},
		Remote: RemoteConfig{
			Driver:   "memory",
			MaxConns: 8,
		},
		Rewards: productivity.DefaultConfig(),
		Catalog: CatalogConfig{Debounce: "250ms"},
		Metrics: MetricsConfig{Enabled: true},
		Log:     LogConfig{Level: "info"},
	}
}

// AuraHome returns the Aura home directory: $AURA_HOME or ~/.aura.
func AuraHome() string {
	if h := os.Getenv("AURA_HOME"); h != "" {
		return h
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".aura")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(AuraHome(), "config.toml")
}

// LoadConfig reads the config file at path (a missing file yields the
// defaults), applies environment overrides and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if _, err := c.requestTimeout(); err != nil {
		return err
	}
	if _, err := c.catalogDebounce(); err != nil {
		return err
	}
	switch c.Remote.Driver {
	case "memory":
	case "postgres":
		if c.Remote.DSN == "" {
			return errors.New("remote.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown remote.driver %q", c.Remote.Driver)
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("calendar.timezone: %w", err)
	}
	if c.Rewards.TaskPoints < 0 || c.Rewards.FocusPointsPerMinute < 0 {
		return errors.New("rewards must not be negative")
	}
	if len(c.Achievements) > 0 {
		if err := achievement.Validate(c.Achievements); err != nil {
			return fmt.Errorf("achievements: %w", err)
		}
	}
	if len(c.Shop.Items) > 0 {
		if err := shop.Validate(c.Shop.Items); err != nil {
			return fmt.Errorf("shop: %w", err)
		}
	}
	return nil
}

func (c Config) requestTimeout() (time.Duration, error) {
	return parseDuration("api.request_timeout", c.API.RequestTimeout, 30*time.Second)
}

func (c Config) catalogDebounce() (time.Duration, error) {
	return parseDuration("catalog.debounce", c.Catalog.Debounce, 250*time.Millisecond)
}

func parseDuration(name, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

// achievementDefinitions returns the configured catalog, or the built-in one.
func (c Config) achievementDefinitions() []domain.AchievementDefinition {
	if len(c.Achievements) > 0 {
		return c.Achievements
	}
	return achievement.DefaultDefinitions()
}

// shopItems returns the configured shop catalog, or the built-in one.
func (c Config) shopItems() []domain.ShopItem {
	if len(c.Shop.Items) > 0 {
		return c.Shop.Items
	}
	return shop.DefaultCatalog()
}
