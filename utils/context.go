package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout is the default timeout for document store operations
	DefaultTimeout = 10 * time.Second

	// ShortTimeout is for quick operations (health checks, cache lookups)
	ShortTimeout = 2 * time.Second
)

// WithTimeout creates a context with default timeout
func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

// WithShortTimeout creates a context with short timeout for quick operations
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}
