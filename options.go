package devindex

import "time"

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	dataDir        string
	maxOpenIndexes int
	timeout        time.Duration
}

// WithDataDir keeps tenant indexes on disk under dir instead of in memory.
func WithDataDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dataDir = dir
	})
}

// WithMaxOpenIndexes bounds how many on-disk tenant indexes stay open at once.
// Default: 64.
func WithMaxOpenIndexes(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxOpenIndexes = n
	})
}

// WithTimeout bounds every index call. Default: no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}
