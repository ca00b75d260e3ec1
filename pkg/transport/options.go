package transport

import (
	"context"
	"log/slog"
	"net/http"
)

// Option configures the HTTP handler.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	ctx          context.Context
	token        string
	middleware   func(http.Handler) http.Handler
	logger       *slog.Logger
	maxBodyBytes int64
}

// DefaultMaxBodyBytes bounds the size of a job creation request.
const DefaultMaxBodyBytes = 32 << 20

// WithToken sets the shared secret continuation requests must carry in
// X-Dispatch-Token. Without a token the continuation endpoint is open.
func WithToken(token string) Option {
	return optionFunc(func(c *config) {
		c.token = token
	})
}

// WithMiddleware wraps the handler with middleware (auth, logging, etc.).
func WithMiddleware(mw func(http.Handler) http.Handler) Option {
	return optionFunc(func(c *config) {
		c.middleware = mw
	})
}

// WithContext provides the lifecycle context for invocations started by the
// continuation endpoint. When cancelled, running invocations stop between items.
// If not provided, context.Background() is used.
func WithContext(ctx context.Context) Option {
	return optionFunc(func(c *config) {
		c.ctx = ctx
	})
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *config) {
		c.logger = l
	})
}

// WithMaxBodyBytes bounds job creation request bodies. Default: 32MiB
func WithMaxBodyBytes(n int64) Option {
	return optionFunc(func(c *config) {
		c.maxBodyBytes = n
	})
}
