package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Digest schedules a periodic analytics summary for a delivery target.
type Digest struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Target   string `json:"target"`
	Enabled  bool   `json:"enabled"`
}

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	IDFormat string `json:"id_format"`
	Store    struct {
		Backend    string `json:"backend"`
		SQLitePath string `json:"sqlite_path"`
	} `json:"store"`
	Redis struct {
		URL    string `json:"url"`
		Prefix string `json:"prefix"`
	} `json:"redis"`
	Analytics struct {
		Timezone string `json:"timezone"`
	} `json:"analytics"`
	Media struct {
		MaxBytes int64 `json:"max_bytes"`
	} `json:"media"`
	HTTP struct {
		Enabled bool   `json:"enabled"`
		Listen  string `json:"listen"`
	} `json:"http"`
	Telegram struct {
		Token string `json:"token"`
	} `json:"telegram"`
	Digests []Digest `json:"digests"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".theo"),
		LogLevel: "info",
		IDFormat: "timestamp",
	}
	cfg.Store.Backend = "file"
	cfg.Redis.Prefix = "theo:"
	cfg.Analytics.Timezone = "UTC"
	cfg.Media.MaxBytes = 5 << 20
	cfg.HTTP.Listen = "127.0.0.1:8420"
	cfg.Digests = []Digest{{
		Name:     "weekly",
		Schedule: "0 9 * * MON",
		Target:   "log:",
		Enabled:  false,
	}}
	return cfg
}

// Load reads the config at path, writing defaults if the file does not
// exist. A .env file next to the config (and one in the working directory)
// is loaded first; environment variables take precedence over the file.
func Load(path string) (*Config, error) {
	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env")

	cfg := Default()

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// loadDotEnv loads each existing file; variables already set are kept.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "warning: load %s: %v\n", p, err)
		}
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("THEO_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("THEO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("THEO_STORE"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("THEO_TIMEZONE"); v != "" {
		cfg.Analytics.Timezone = v
	}
	if v := os.Getenv("THEO_HTTP_LISTEN"); v != "" {
		cfg.HTTP.Listen = v
	}
	if v := os.Getenv("THEO_HTTP_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.HTTP.Enabled = b
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
}

// Location resolves the analytics timezone. Empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Analytics.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Analytics.Timezone)
	if err != nil {
		return nil, fmt.Errorf("analytics timezone: %w", err)
	}
	return loc, nil
}

// Save writes cfg to path atomically.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts cfg into a nested map keyed by JSON field names.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListValues returns every setting as a flat dot-keyed map, optionally with
// secrets masked.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue reads one dot-separated key from the config file at path,
// creating the file with defaults if it does not exist yet. A key naming a
// branch such as "digests" or "digests.0" returns the whole subtree.
func GetValue(path, key string) (any, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(path, Default()); err != nil {
			return nil, err
		}
	}
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	v, ok := lookup(m, key)
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

func lookup(node any, key string) (any, bool) {
	for _, part := range strings.Split(key, ".") {
		switch n := node.(type) {
		case map[string]any:
			child, ok := n[part]
			if !ok {
				return nil, false
			}
			node = child
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(n) {
				return nil, false
			}
			node = n[i]
		default:
			return nil, false
		}
	}
	return node, true
}

// SetValue updates one dot-separated key in the config file at path. The raw
// value is parsed as JSON when possible (numbers, booleans, lists, objects)
// and kept as text when the current value is a string. A branch key replaces
// the whole subtree, so "digests" accepts a JSON list.
//
// The updated config must pass Validate for key and everything below it; the
// file is left untouched otherwise. Problems with other settings already in
// the file do not block the update.
func SetValue(path, key, raw string) error {
	cfg, err := readFile(path)
	if err != nil {
		return err
	}
	flat, err := ListValues(cfg, false)
	if err != nil {
		return err
	}
	current, leaf := flat[key]
	below := SortedKeys(flat, key)
	if !leaf && len(below) == 0 {
		return fmt.Errorf("unknown config key: %s", key)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	if _, isString := current.(string); leaf && isString {
		value = raw
	}
	for _, k := range below {
		delete(flat, k)
	}
	flat[key] = value

	data, err := json.Marshal(Unflatten(flat))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	updated := &Config{}
	if err := json.Unmarshal(data, updated); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := errorsUnder(updated.Validate(), key); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return Save(path, updated)
}

// readFile loads the file without defaults or environment overrides.
func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
