// Package cmd holds the startup plumbing shared by carepaths binaries.
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/louisbranch/carepaths/internal/platform/config"
	"github.com/louisbranch/carepaths/internal/platform/logging"
	"github.com/louisbranch/carepaths/internal/platform/otel"
	"github.com/louisbranch/carepaths/internal/platform/timeouts"
)

// setupTelemetry is replaced in tests.
var setupTelemetry = otel.Setup

// ServiceCarepaths names the carepaths CLI in telemetry.
const ServiceCarepaths = "carepaths"

// RunOptions controls shared entrypoint behavior.
type RunOptions struct {
	// ShutdownTimeout bounds telemetry flushing after run returns.
	ShutdownTimeout time.Duration
}

// ParseConfig loads environment values into cfg.
func ParseConfig[T any](cfg *T, opts ...config.Option) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg, opts...)
}

// SignalContext returns a context canceled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// RunWithTelemetry configures tracing and runs run.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	return RunWithTelemetryAndOptions(ctx, service, RunOptions{}, run)
}

// RunWithTelemetryAndOptions configures tracing, runs run and flushes traces
// before returning. Flush failures are logged through the context logger.
func RunWithTelemetryAndOptions(ctx context.Context, service string, options RunOptions, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	if run == nil {
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := setupTelemetry(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		timeout := options.ShutdownTimeout
		if timeout <= 0 {
			timeout = timeouts.TelemetryFlush
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("service", service).Msg("otel shutdown")
		}
	}()
	return run(ctx)
}
