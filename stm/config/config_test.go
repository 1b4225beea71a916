package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	c := NewDefaultConfig()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 1<<20, c.LockTableSize())
	assert.False(t, c.ReadOnlyHints)
	assert.False(t, c.ReadLocked)
}

func TestValidateBits(t *testing.T) {
	c := NewDefaultConfig()
	c.LockTableBits = 0
	assert.Error(t, c.Validate())
	c.LockTableBits = 29
	assert.Error(t, c.Validate())
	c.LockTableBits = 1
	assert.NoError(t, c.Validate())
	assert.Equal(t, 2, c.LockTableSize())
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stm.toml")
	data := `
log-level = "debug"
lock-table-bits = 10
read-only-hints = true
metrics-addr = "127.0.0.1:9091"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	c, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 1<<10, c.LockTableSize())
	assert.True(t, c.ReadOnlyHints)
	assert.False(t, c.ReadLocked)
	assert.Equal(t, "127.0.0.1:9091", c.MetricsAddr)
}

func TestFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stm.toml")
	require.NoError(t, os.WriteFile(path, []byte("lock-table-bits = 99\n"), 0644))
	_, err := FromFile(path)
	assert.Error(t, err)

	_, err = FromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
