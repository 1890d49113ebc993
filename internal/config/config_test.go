package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	dir := t.TempDir()
	v := viper.New()
	v.Set("CONFIG_DIR", dir)

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "https://api.themoviedb.org/3", cfg.TMDBBaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, 2, cfg.SearchMinLength)
	assert.Equal(t, 30*time.Second, cfg.ReminderCheckInterval)
	assert.Equal(t, int64(5*1024*1024), cfg.StorageQuotaBytes)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, filepath.Join(dir, "reelpicks.db"), cfg.DatabaseFile)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Error(t, cfg.ValidateServe())
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	v.Set("CONFIG_DIR", t.TempDir())
	v.Set("TMDB_API_KEY", "secret")
	v.Set("SEARCH_DEBOUNCE_MS", 250)
	v.Set("REMINDER_CHECK_INTERVAL", "1m")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.SearchDebounce)
	assert.Equal(t, time.Minute, cfg.ReminderCheckInterval)
	assert.NoError(t, cfg.ValidateServe())
}

func TestRejectsBadValues(t *testing.T) {
	v := viper.New()
	v.Set("CONFIG_DIR", t.TempDir())
	v.Set("SEARCH_MIN_LENGTH", 0)
	_, err := fromViper(v)
	assert.Error(t, err)

	v = viper.New()
	v.Set("CONFIG_DIR", t.TempDir())
	v.Set("REMINDER_CHECK_INTERVAL", "10ms")
	_, err = fromViper(v)
	assert.Error(t, err)

	v = viper.New()
	v.Set("CONFIG_DIR", t.TempDir())
	v.Set("LOG_FORMAT", "xml")
	_, err = fromViper(v)
	assert.Error(t, err)
}
