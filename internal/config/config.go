// Package config loads mmapctl settings from an optional YAML file and
// MMAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Giulio2002/mman"
)

// Config is the process-wide configuration.
type Config struct {
	UserLow    uint64 `mapstructure:"user_low"`
	UserHigh   uint64 `mapstructure:"user_high"`
	MaxFiles   int    `mapstructure:"max_files"`
	TLBEntries int    `mapstructure:"tlb_entries"`
	LogLevel   string `mapstructure:"log_level"`
	Journal    string `mapstructure:"journal"`
}

const envPrefix = "MMAN"

func setDefaults(v *viper.Viper) {
	v.SetDefault("user_low", uint64(mman.DefaultLayout.UserLow))
	v.SetDefault("user_high", uint64(mman.DefaultLayout.UserHigh))
	v.SetDefault("max_files", 32)
	v.SetDefault("tlb_entries", 64)
	v.SetDefault("log_level", "info")
	v.SetDefault("journal", "")
}

// Load reads path, if not empty, and overlays the environment. A variable
// MMAN_MAX_FILES overrides max_files, and so on.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the user region is page aligned and non-empty and
// that the table sizes are positive.
func (c Config) Validate() error {
	var errs []error
	l := c.Layout()
	if !l.UserLow.IsPageAligned() || !l.UserHigh.IsPageAligned() {
		errs = append(errs, fmt.Errorf("user region [%s, %s) is not page aligned", l.UserLow, l.UserHigh))
	}
	if l.UserLow == 0 || l.UserHigh <= l.UserLow {
		errs = append(errs, fmt.Errorf("user region [%s, %s) is empty or starts at page zero", l.UserLow, l.UserHigh))
	}
	if c.MaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("max_files must be positive, have %d", c.MaxFiles))
	}
	if c.TLBEntries <= 0 {
		errs = append(errs, fmt.Errorf("tlb_entries must be positive, have %d", c.TLBEntries))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Layout returns the configured user region.
func (c Config) Layout() mman.Layout {
	return mman.Layout{UserLow: mman.Addr(c.UserLow), UserHigh: mman.Addr(c.UserHigh)}
}
