package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.json")
}

func writeTestConfig(t *testing.T, path string, cfg *Config) {
	t.Helper()
	require.NoError(t, Save(path, cfg), "write test config")
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"THEO_DATA_DIR", "THEO_LOG_LEVEL", "THEO_STORE", "REDIS_URL",
		"THEO_TIMEZONE", "THEO_HTTP_LISTEN", "THEO_HTTP_ENABLED", "TELEGRAM_BOT_TOKEN"} {
		t.Setenv(k, "")
	}
}

func TestLoad_WritesDefaults(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, "UTC", cfg.Analytics.Timezone)
	assert.FileExists(t, path)
	assert.NoError(t, cfg.Validate(), "defaults are valid")
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)

	original := Default()
	original.DataDir = "/tmp/theo-data"
	original.LogLevel = "debug"
	original.IDFormat = "uuid"
	original.Store.Backend = "sqlite"
	original.Redis.URL = "redis://localhost:6379/1"
	original.Analytics.Timezone = "America/New_York"
	original.HTTP.Enabled = true
	original.Telegram.Token = "bot-token-456"
	original.Digests = []Digest{{Name: "daily", Schedule: "0 9 * * *", Target: "telegram:42", Enabled: true}}

	require.NoError(t, Save(path, original))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	require.NoError(t, Save(path, &Config{LogLevel: "info"}))
	assert.NoFileExists(t, path+".tmp")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]any
	assert.NoError(t, json.Unmarshal(data, &m), "saved file is JSON")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := tempConfigPath(t)
	writeTestConfig(t, path, Default())

	t.Setenv("THEO_STORE", "redis")
	t.Setenv("REDIS_URL", "redis://env:6379/0")
	t.Setenv("THEO_TIMEZONE", "Asia/Tokyo")
	t.Setenv("THEO_HTTP_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis://env:6379/0", cfg.Redis.URL)
	assert.Equal(t, "Asia/Tokyo", cfg.Analytics.Timezone)
	assert.True(t, cfg.HTTP.Enabled)
}

func TestLoad_DotEnvNextToConfig(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("TELEGRAM_BOT_TOKEN")
	path := tempConfigPath(t)
	writeTestConfig(t, path, Default())
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte("TELEGRAM_BOT_TOKEN=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TELEGRAM_BOT_TOKEN") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Telegram.Token)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := tempConfigPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	cfg := &Config{}
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	cfg.Analytics.Timezone = "Not/AZone"
	_, err = cfg.Location()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "etcd"
	cfg.IDFormat = "snowflake"
	cfg.LogLevel = "LOUD"
	cfg.Analytics.Timezone = "Not/AZone"
	cfg.HTTP.Enabled = true
	cfg.HTTP.Listen = ""
	cfg.Digests = []Digest{
		{Name: "ok", Schedule: "@weekly", Target: "log:", Enabled: true},
		{Name: "bad", Schedule: "61 * * * *", Enabled: true},
	}

	err := cfg.Validate()
	require.Error(t, err)

	var keys []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var fe *FieldError
		require.ErrorAs(t, e, &fe)
		keys = append(keys, fe.Key)
	}
	assert.Equal(t, []string{
		"store.backend", "id_format", "log_level", "analytics.timezone", "http.listen",
		"digests.1.schedule", "digests.1.target",
	}, keys)
}

func TestValidate_EmptyMeansDefault(t *testing.T) {
	cfg := &Config{}
	cfg.LogLevel = "WARN"
	assert.NoError(t, cfg.Validate())
}

func TestListValues_WithMask(t *testing.T) {
	cfg := &Config{LogLevel: "info"}
	cfg.Redis.URL = "redis://secret@host:6379"
	cfg.Telegram.Token = "bot-token-abcd"
	cfg.Digests = []Digest{{Name: "weekly", Target: "telegram:42"}}

	flat, err := ListValues(cfg, true)
	require.NoError(t, err)
	assert.Equal(t, "****abcd", flat["telegram.token"])
	assert.Equal(t, "****6379", flat["redis.url"])
	assert.Equal(t, "info", flat["log_level"])
	assert.Equal(t, "telegram:42", flat["digests.0.target"])

	unmasked, err := ListValues(cfg, false)
	require.NoError(t, err)
	assert.Equal(t, "bot-token-abcd", unmasked["telegram.token"])
}

func TestGetValue_ExistingKey(t *testing.T) {
	path := tempConfigPath(t)
	cfg := &Config{LogLevel: "debug"}
	cfg.Media.MaxBytes = 1024
	cfg.Store.Backend = "sqlite"
	writeTestConfig(t, path, cfg)

	v, err := GetValue(path, "store.backend")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", v)

	v, err = GetValue(path, "media.max_bytes")
	require.NoError(t, err)
	assert.Equal(t, float64(1024), v, "JSON numbers are float64")
}

func TestGetValue_Branches(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Default())

	v, err := GetValue(path, "digests.0.schedule")
	require.NoError(t, err)
	assert.Equal(t, "0 9 * * MON", v)

	v, err = GetValue(path, "digests.0")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name": "weekly", "schedule": "0 9 * * MON", "target": "log:", "enabled": false,
	}, v)

	_, err = GetValue(path, "digests.1")
	assert.EqualError(t, err, "unknown config key: digests.1")
	_, err = GetValue(path, "log_level.x")
	assert.Error(t, err)
}

func TestGetValue_UnknownKey(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, &Config{LogLevel: "info"})

	_, err := GetValue(path, "nonexistent.key")
	assert.EqualError(t, err, "unknown config key: nonexistent.key")
}

func TestGetValue_NonexistentFileUsesDefaults(t *testing.T) {
	path := tempConfigPath(t)

	v, err := GetValue(path, "log_level")
	require.NoError(t, err)
	assert.Equal(t, "info", v)
}

func TestSetValue(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Default())

	require.NoError(t, SetValue(path, "analytics.timezone", "Europe/Paris"))
	require.NoError(t, SetValue(path, "http.enabled", "true"))
	require.NoError(t, SetValue(path, "media.max_bytes", "2048"))
	require.NoError(t, SetValue(path, "store.backend", "sqlite"))

	cfg, err := readFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", cfg.Analytics.Timezone)
	assert.True(t, cfg.HTTP.Enabled)
	assert.EqualValues(t, 2048, cfg.Media.MaxBytes)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, Default().Digests, cfg.Digests, "unrelated values preserved")
}

func TestSetValue_DigestFields(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Default())

	require.NoError(t, SetValue(path, "digests.0.enabled", "true"))
	require.NoError(t, SetValue(path, "digests.0.target", "telegram:42"))
	require.NoError(t, SetValue(path, "digests", `[
		{"name":"weekly","schedule":"0 9 * * MON","target":"telegram:42","enabled":true},
		{"name":"nightly","schedule":"@daily","target":"log:","enabled":true}
	]`))

	cfg, err := readFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Digest{
		{Name: "weekly", Schedule: "0 9 * * MON", Target: "telegram:42", Enabled: true},
		{Name: "nightly", Schedule: "@daily", Target: "log:", Enabled: true},
	}, cfg.Digests)

	require.NoError(t, SetValue(path, "digests", "[]"))
	cfg, err = readFile(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Digests)
}

func TestSetValue_StringFieldKeepsNumericText(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Default())

	require.NoError(t, SetValue(path, "redis.prefix", "42"))
	v, err := GetValue(path, "redis.prefix")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestSetValue_Rejections(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Default())
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.EqualError(t, SetValue(path, "custom.setting", "value"), "unknown config key: custom.setting")
	assert.Error(t, SetValue(path, "media.max_bytes", "lots"), "type mismatch")
	assert.ErrorContains(t, SetValue(path, "store.backend", "etcd"), "store.backend")
	assert.ErrorContains(t, SetValue(path, "analytics.timezone", "Mars/Olympus"), "analytics.timezone")
	assert.ErrorContains(t, SetValue(path, "digests.0.schedule", "every tuesday"), "digests.0.schedule")
	assert.ErrorContains(t, SetValue(path, "digests", `[{"name":"x","schedule":"@daily","enabled":true}]`), "digests.0.target")
	assert.Error(t, SetValue(path, "digests", "weekly"))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "rejected sets leave the file untouched")

	missing := filepath.Join(t.TempDir(), "does-not-exist", "config.json")
	assert.Error(t, SetValue(missing, "log_level", "debug"))
}

func TestSetValue_UnrelatedProblemsDoNotBlock(t *testing.T) {
	path := tempConfigPath(t)
	cfg := Default()
	cfg.Analytics.Timezone = "Not/AZone"
	writeTestConfig(t, path, cfg)

	require.NoError(t, SetValue(path, "log_level", "debug"))
	require.NoError(t, SetValue(path, "analytics.timezone", "Europe/Dublin"))

	loaded, err := readFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.LogLevel)
	assert.NoError(t, loaded.Validate())
}
