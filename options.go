package chunkpipe

import "github.com/rs/zerolog"

const defaultChunkCapacity = 16

type config struct {
	logger        zerolog.Logger
	copyOnWrite   bool
	chunkCapacity int
}

// Option configures a Pipe.
type Option func(*config)

// WithLogger sets the logger used for lifecycle and rejection events.
// Events are logged at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithCopyOnWrite makes every write copy its range before queueing it, so
// callers may reuse their buffers as soon as Write returns.
func WithCopyOnWrite() Option {
	return func(c *config) {
		c.copyOnWrite = true
	}
}

// WithChunkCapacity sets how many pending writes the pipe can track before
// its chunk ring grows. Values <= 0 select the default.
func WithChunkCapacity(n int) Option {
	return func(c *config) {
		c.chunkCapacity = n
	}
}

func newConfig(opts []Option) config {
	c := config{
		logger:        zerolog.Nop(),
		chunkCapacity: defaultChunkCapacity,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.chunkCapacity <= 0 {
		c.chunkCapacity = defaultChunkCapacity
	}
	return c
}
