// Package config loads service configuration from the process environment.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Option adjusts how environment variables are resolved.
type Option func(*env.Options)

// WithPrefix prepends prefix to every env tag, e.g. "CAREPATHS_".
func WithPrefix(prefix string) Option {
	return func(o *env.Options) {
		o.Prefix = prefix
	}
}

// WithEnvironment replaces the process environment with values. Tests use it
// to avoid mutating global state.
func WithEnvironment(values map[string]string) Option {
	return func(o *env.Options) {
		o.Environment = values
	}
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any, opts ...Option) error {
	options := env.Options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if err := env.ParseWithOptions(target, options); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
