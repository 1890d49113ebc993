package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T, quota int64) map[string]Backend {
	t.Helper()
	bolt, err := OpenBolt(filepath.Join(t.TempDir(), "test.db"), quota)
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(quota),
		"bolt":   bolt,
	}
}

func TestBackendRoundTrip(t *testing.T) {
	for name, b := range backends(t, 0) {
		t.Run(name, func(t *testing.T) {
			_, err := b.GetItem("missing")
			assert.True(t, errors.Is(err, ErrNotFound))

			require.NoError(t, b.SetItem("a", []byte(`[1,2]`)))
			require.NoError(t, b.SetItem("b", []byte(`true`)))
			require.NoError(t, b.SetItem("a", []byte(`[3]`)))

			v, err := b.GetItem("a")
			require.NoError(t, err)
			assert.Equal(t, `[3]`, string(v))

			keys, err := b.Keys()
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"a", "b"}, keys)

			require.NoError(t, b.RemoveItem("a"))
			require.NoError(t, b.RemoveItem("a"))
			_, err = b.GetItem("a")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestBackendQuota(t *testing.T) {
	for name, b := range backends(t, 20) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.SetItem("k", []byte("0123456789")))
			// Overwriting the same key only counts the new value.
			require.NoError(t, b.SetItem("k", []byte("9876543210")))

			err := b.SetItem("other", []byte("0123456789"))
			assert.True(t, errors.Is(err, ErrQuotaExceeded))

			v, err := b.GetItem("k")
			require.NoError(t, err)
			assert.Equal(t, "9876543210", string(v))
		})
	}
}

func TestMemoryBackendFailWrites(t *testing.T) {
	m := NewMemoryBackend(0)
	m.FailWrites(true)
	assert.Error(t, m.SetItem("k", []byte("v")))
	m.FailWrites(false)
	assert.NoError(t, m.SetItem("k", []byte("v")))
}
