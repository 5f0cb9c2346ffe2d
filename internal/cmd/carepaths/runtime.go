package carepaths

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/louisbranch/carepaths/internal/platform/timeouts"
	"github.com/louisbranch/carepaths/internal/services/care/domain/command"
	"github.com/louisbranch/carepaths/internal/services/care/domain/engine"
	"github.com/louisbranch/carepaths/internal/services/care/domain/event"
	"github.com/louisbranch/carepaths/internal/services/care/domain/patient"
	"github.com/louisbranch/carepaths/internal/services/care/observability/metrics"
	"github.com/louisbranch/carepaths/internal/services/care/storage"
	boltstore "github.com/louisbranch/carepaths/internal/services/care/storage/bbolt"
	"github.com/louisbranch/carepaths/internal/services/care/storage/memory"
	sqlitestore "github.com/louisbranch/carepaths/internal/services/care/storage/sqlite"
)

// runtime owns the stores and servers behind one CLI invocation.
type runtime struct {
	handler *engine.Handler
	metrics *metrics.Metrics
	server  *http.Server
	closers []func() error
	logger  zerolog.Logger
}

func openRuntime(ctx context.Context, cfg Config, logger zerolog.Logger) (rt *runtime, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	commands := command.NewRegistry()
	if err := patient.RegisterCommands(commands); err != nil {
		return nil, fmt.Errorf("register commands: %w", err)
	}
	events := event.NewRegistry()
	if err := patient.RegisterEvents(events); err != nil {
		return nil, fmt.Errorf("register events: %w", err)
	}

	rt = &runtime{metrics: metrics.New(), logger: logger}
	defer func() {
		if err != nil {
			_ = rt.close()
		}
	}()

	var (
		eventLog  storage.EventLog
		snapshots storage.SnapshotStore
	)
	switch cfg.Store {
	case StoreMemory:
		store := memory.New()
		eventLog, snapshots = store, store
	case StoreSQLite:
		if cfg.usesEvents() {
			if err := ensureDir(cfg.EventsDB); err != nil {
				return nil, err
			}
			store, err := sqlitestore.Open(ctx, cfg.EventsDB, sqlitestore.WithEventRegistry(events))
			if err != nil {
				return nil, fmt.Errorf("open events store: %w", err)
			}
			rt.closers = append(rt.closers, store.Close)
			eventLog = store
		}
		if cfg.usesSnapshots() {
			if err := ensureDir(cfg.SnapshotsDB); err != nil {
				return nil, err
			}
			store, err := boltstore.Open(cfg.SnapshotsDB)
			if err != nil {
				return nil, fmt.Errorf("open snapshots store: %w", err)
			}
			rt.closers = append(rt.closers, store.Close)
			snapshots = store
		}
	}
	if !cfg.usesEvents() {
		eventLog = nil
	}
	if !cfg.usesSnapshots() {
		snapshots = nil
	}

	rt.handler = &engine.Handler{
		Commands:  commands,
		Events:    events,
		Log:       eventLog,
		Snapshots: snapshots,
		Logger:    logger,
		Metrics:   rt.metrics,
	}

	if cfg.MetricsAddr != "" {
		if err := rt.serveMetrics(cfg.MetricsAddr); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

// serveMetrics exposes the metrics registry until close.
func (rt *runtime) serveMetrics(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.metrics.Handler())
	rt.server = &http.Server{Handler: mux, ReadHeaderTimeout: timeouts.ReadHeader}
	go func() {
		if err := rt.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error().Err(err).Msg("metrics server")
		}
	}()
	rt.logger.Info().Str("addr", listener.Addr().String()).Msg("serving metrics")
	return nil
}

func (rt *runtime) close() error {
	var errs []error
	if rt.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		errs = append(errs, rt.server.Shutdown(ctx))
		cancel()
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	return errors.Join(errs...)
}

func ensureDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}
