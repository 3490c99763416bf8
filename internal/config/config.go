// Package config loads the per-project agent-chat configuration stored in
// <root>/config.toml.
package config

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/agent-chat/internal/atomicfile"
	"github.com/Iron-Ham/agent-chat/internal/errors"
)

// FileName is the config file created inside the store root.
const FileName = "config.toml"

// EnvPrefix is the prefix of environment variables that override file values,
// e.g. AGENT_CHAT_LOCK_TTL_SECS or AGENT_CHAT_LOGGING_LEVEL.
const EnvPrefix = "AGENT_CHAT"

// Config represents the complete agent-chat configuration
type Config struct {
	// LockTTLSecs is how long a lock stays live after it is acquired.
	LockTTLSecs int `mapstructure:"lock_ttl_secs" toml:"lock_ttl_secs" comment:"Seconds a lock stays live after acquisition"`
	// FocusTTLSecs is how long a focus entry stays visible.
	FocusTTLSecs int `mapstructure:"focus_ttl_secs" toml:"focus_ttl_secs" comment:"Seconds a focus entry stays visible"`
	// FirstReadCount is how many messages a session sees on its first read.
	FirstReadCount int `mapstructure:"first_read_count" toml:"first_read_count" comment:"Messages shown on a session's first read"`

	Logging LoggingConfig `mapstructure:"logging" toml:"logging"`
}

// LoggingConfig controls debug.log output
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" toml:"level" comment:"debug, info, warn or error"`
	// MaxSizeMB rotates debug.log once it exceeds this size. 0 disables rotation.
	MaxSizeMB int `mapstructure:"max_size_mb" toml:"max_size_mb"`
	// MaxBackups is the number of rotated files kept.
	MaxBackups int `mapstructure:"max_backups" toml:"max_backups"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		LockTTLSecs:    300,
		FocusTTLSecs:   1800,
		FirstReadCount: 5,
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 2,
		},
	}
}

// LockTTL returns the lock lifetime as a duration.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSecs) * time.Second
}

// FocusTTL returns the focus lifetime as a duration.
func (c *Config) FocusTTL() time.Duration {
	return time.Duration(c.FocusTTLSecs) * time.Second
}

// setDefaults registers every default with v so that partial files and
// environment overrides resolve against them.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("lock_ttl_secs", defaults.LockTTLSecs)
	v.SetDefault("focus_ttl_secs", defaults.FocusTTLSecs)
	v.SetDefault("first_read_count", defaults.FirstReadCount)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads path into a Config and validates it. A missing file yields the
// defaults; environment variables with EnvPrefix override either.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// Marshal encodes c as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// WriteDefault writes the default configuration to path unless a file is
// already there. It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	data, err := Default().Marshal()
	if err != nil {
		return false, err
	}
	header := []byte("# agent-chat configuration\n\n")

	err = atomicfile.CreateExclusive(path, append(header, data...), 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
