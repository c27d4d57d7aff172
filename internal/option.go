package internal

import (
	"log/slog"

	"github.com/kittclouds/galaxy/internal/store"
)

// Option is a functional option for configuring the application.
type Option func(*App)

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *App) {
		a.config = cfg
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithStore uses an already opened store instead of the configured path.
// The application does not close it.
func WithStore(s store.Storer) Option {
	return func(a *App) {
		a.store = s
		a.borrowed = true
	}
}
