package session

import "time"

const (
	// DefaultTimeout bounds how long a session may stay LOADING.
	DefaultTimeout = 30 * time.Second
	// DefaultInjectedCacheSize is the number of injected message UIDs remembered.
	DefaultInjectedCacheSize = 1024
)

// Config tunes the engine.
type Config struct {
	// Timeout after which a LOADING session becomes TIMED_OUT.
	Timeout time.Duration
	// RollbackOnDelegateFailure restores the previous status when the
	// transform engine rejects a start or end request. When false the
	// new status is kept.
	RollbackOnDelegateFailure bool
	// InjectedCacheSize bounds the injected message UID cache.
	InjectedCacheSize int
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Timeout:           DefaultTimeout,
		InjectedCacheSize: DefaultInjectedCacheSize,
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.InjectedCacheSize <= 0 {
		c.InjectedCacheSize = DefaultInjectedCacheSize
	}
	return c
}
