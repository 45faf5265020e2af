// ABOUTME: Application configuration from defaults, a TOML file, .env and KION_ env vars
// ABOUTME: Storage paths default to XDG data directories
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	AppDir    = "kion"
	EnvPrefix = "KION"
	// EnvConfig overrides the config file location.
	EnvConfig = "KION_CONFIG"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Storage StorageConfig `mapstructure:"storage"`
	UI      UIConfig      `mapstructure:"ui"`
	Web     WebConfig     `mapstructure:"web"`
	Log     LogConfig     `mapstructure:"log"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
}

type StorageConfig struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Watch   bool        `mapstructure:"watch"`
	Charm   CharmConfig `mapstructure:"charm"`
	Mongo   MongoConfig `mapstructure:"mongo"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type CharmConfig struct {
	Host     string `mapstructure:"host"`
	AutoSync bool   `mapstructure:"auto_sync"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

type UIConfig struct {
	LoadDelay time.Duration `mapstructure:"load_delay"`
	Theme     string        `mapstructure:"theme"` // initial theme while none is stored
}

type WebConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

var defaults = map[string]any{
	"app.name":                 "KionCRM",
	"storage.backend":          "sqlite",
	"storage.path":             "",
	"storage.watch":            false,
	"storage.charm.host":       "charm.2389.dev",
	"storage.charm.auto_sync":  true,
	"storage.mongo.uri":        "",
	"storage.mongo.database":   "kion",
	"storage.mongo.collection": "kv",
	"storage.redis.url":        "",
	"storage.redis.prefix":     "kion:",
	"ui.load_delay":            "300ms",
	"ui.theme":                 "",
	"web.addr":                 "127.0.0.1:8420",
	"log.level":                "info",
}

// Keys lists every recognised configuration key.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Path returns the config file location: explicit, then $KION_CONFIG, then XDG.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(xdg.ConfigHome, AppDir, "config.toml")
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigType("toml")
	v.SetConfigFile(path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration. A missing config file is not an error.
func Load(explicitPath string) (Config, error) {
	// .env in the working directory feeds the env overrides.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := newViper(Path(explicitPath))
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

// Set writes one key to the config file, creating it if needed.
func Set(explicitPath, key, value string) error {
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	path := Path(explicitPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return fmt.Errorf("read config: %w", err)
	}
	v.Set(key, value)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// StoragePath resolves the storage location for the configured backend.
func (c Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	base := filepath.Join(xdg.DataHome, AppDir)
	switch c.Storage.Backend {
	case "file":
		return filepath.Join(base, "store")
	case "badger":
		return filepath.Join(base, "badger")
	case "pebble":
		return filepath.Join(base, "pebble")
	}
	return filepath.Join(base, "kion.db")
}

// Flatten returns every key with its effective value, for display.
func (c Config) Flatten() map[string]string {
	return map[string]string{
		"app.name":                 c.App.Name,
		"storage.backend":          c.Storage.Backend,
		"storage.path":             c.StoragePath(),
		"storage.watch":            fmt.Sprint(c.Storage.Watch),
		"storage.charm.host":       c.Storage.Charm.Host,
		"storage.charm.auto_sync":  fmt.Sprint(c.Storage.Charm.AutoSync),
		"storage.mongo.uri":        redact(c.Storage.Mongo.URI),
		"storage.mongo.database":   c.Storage.Mongo.Database,
		"storage.mongo.collection": c.Storage.Mongo.Collection,
		"storage.redis.url":        redact(c.Storage.Redis.URL),
		"storage.redis.prefix":     c.Storage.Redis.Prefix,
		"ui.load_delay":            c.UI.LoadDelay.String(),
		"ui.theme":                 c.UI.Theme,
		"web.addr":                 c.Web.Addr,
		"log.level":                c.Log.Level,
	}
}

func redact(uri string) string {
	if uri == "" {
		return ""
	}
	if at := strings.LastIndex(uri, "@"); at >= 0 {
		if scheme := strings.Index(uri, "://"); scheme >= 0 && scheme < at {
			return uri[:scheme+3] + "***" + uri[at:]
		}
	}
	return uri
}
