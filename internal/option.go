package internal

import "github.com/saveward/saveward/internal/engine"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	flusher engine.Flusher
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithFlusher overrides the flush hook built from the configuration.
// Host integrations use this to wire their own save mechanism.
func WithFlusher(f engine.Flusher) Option {
	return func(a *application) {
		a.flusher = f
	}
}
