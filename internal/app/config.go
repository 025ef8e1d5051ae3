package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"veil/internal/domain"
	"veil/internal/services/session"
)

// TimeoutProperty overrides Config.SessionTimeout, in milliseconds, when
// present in the property store.
const TimeoutProperty = "net.veil.SESSION_STATUS_TIMEOUT"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home       string `toml:"home"`       // property directory, e.g. $HOME/.veil; empty keeps state in memory
	Account    string `toml:"account"`    // local account, e.g. xmpp:me@example
	Passphrase string `toml:"passphrase"` // seals the property file when set

	SessionTimeout            time.Duration `toml:"session_timeout"`
	RollbackOnDelegateFailure bool          `toml:"rollback_on_delegate_failure"`
	InjectedCacheSize         int           `toml:"injected_cache_size"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // text or json
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		SessionTimeout:    session.DefaultTimeout,
		InjectedCacheSize: session.DefaultInjectedCacheSize,
		LogLevel:          "warn",
		LogFormat:         "text",
	}
}

// LoadConfig reads a TOML file over the defaults. A missing file is not an
// error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// ConfigureLogging applies the log level and format to the standard logger.
func ConfigureLogging(cfg Config) error {
	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)

	switch cfg.LogFormat {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("log format %q: want text or json", cfg.LogFormat)
	}
	return nil
}

// sessionConfig turns cfg into engine settings, letting the property store
// override the timeout.
func sessionConfig(cfg Config, props domain.PropertyStore) session.Config {
	sc := session.Config{
		Timeout:                   cfg.SessionTimeout,
		RollbackOnDelegateFailure: cfg.RollbackOnDelegateFailure,
		InjectedCacheSize:         cfg.InjectedCacheSize,
	}
	if ms := props.GetInt(TimeoutProperty, -1); ms > 0 {
		sc.Timeout = time.Duration(ms) * time.Millisecond
	}
	return sc
}
