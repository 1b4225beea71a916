package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
)

// Config is the process-wide STM runtime configuration, read once at
// startup.
type Config struct {
	LogLevel string `toml:"log-level"`

	// LockTableBits sizes the versioned lock table at 1 << bits slots, so
	// hashes reduce to a slot with a single bitmask.
	LockTableBits uint `toml:"lock-table-bits"`

	// ReadOnlyHints enables the per-block read-only hint path: blocks that
	// have never written skip read-set maintenance until proven wrong.
	ReadOnlyHints bool `toml:"read-only-hints"`

	// ReadLocked makes reads treat any owned slot as a conflict, including
	// slots owned by the reading transaction itself.
	ReadLocked bool `toml:"read-locked"`

	// MetricsAddr is the listen address for the metrics/pprof HTTP server.
	// Empty disables it.
	MetricsAddr string `toml:"metrics-addr"`
}

func (c *Config) Validate() error {
	if c.LockTableBits < 1 || c.LockTableBits > 28 {
		return errors.Errorf("lock table bits must be between 1 and 28, got %d", c.LockTableBits)
	}
	return nil
}

// LockTableSize returns the number of lock table slots.
func (c *Config) LockTableSize() int {
	return 1 << c.LockTableBits
}

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:      getLogLevel(),
		LockTableBits: 20,
	}
}

// FromFile loads a config from a TOML file, starting from the defaults.
func FromFile(path string) (*Config, error) {
	c := NewDefaultConfig()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, errors.Trace(err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
