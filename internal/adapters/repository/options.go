package repository

import "github.com/okian/hoopfuse/pkg/logger"

type storeConfig struct {
	log          logger.Logger
	maxOpenConns int
}

// Option applies a configuration option to a store.
type Option func(*storeConfig)

// WithLogger sets the logger used by the store.
func WithLogger(l logger.Logger) Option {
	return func(c *storeConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMaxOpenConns caps the connection pool of the SQLite store.
func WithMaxOpenConns(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.maxOpenConns = n
		}
	}
}

func newStoreConfig(opts []Option) storeConfig {
	c := storeConfig{maxOpenConns: 1}
	for _, opt := range opts {
		opt(&c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("repository")
	}
	return c
}
