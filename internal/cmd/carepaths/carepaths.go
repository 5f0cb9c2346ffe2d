package carepaths

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	entrypoint "github.com/louisbranch/carepaths/internal/platform/cmd"
	apperrors "github.com/louisbranch/carepaths/internal/platform/errors"
	"github.com/louisbranch/carepaths/internal/platform/logging"
)

// Main runs the command line under telemetry and returns the process exit
// status. The env-configured logger rides on the context so telemetry
// shutdown failures are reported too.
func Main(ctx context.Context, cfg Config, args []string, stdout, stderr io.Writer) int {
	ctx = logging.WithContext(ctx, newLogger(stderr, cfg))
	err := entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCarepaths, func(ctx context.Context) error {
		return Run(ctx, cfg, args, stdout, stderr)
	})
	if err != nil {
		fmt.Fprintf(stderr, "carepaths: %v\n", err)
	}
	return ReportError(ctx, err)
}

// ReportError logs err with its code and metadata through the context logger
// and returns the exit status for it.
func ReportError(ctx context.Context, err error) int {
	if err == nil {
		return 0
	}
	code := apperrors.CodeOf(err)
	evt := logging.FromContext(ctx).Error().Err(err)
	if code != apperrors.CodeUnknown {
		evt = evt.Str("code", string(code))
	}
	for key, value := range apperrors.MetadataOf(err) {
		evt = evt.Str(key, value)
	}
	evt.Msg("command line failed")
	return code.ExitStatus()
}

// Run executes the carepaths command line with args, writing results to
// stdout and logs to stderr.
func Run(ctx context.Context, cfg Config, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand(&cfg, stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. Persistent flags default to cfg and
// write back into it before any subcommand runs.
func NewRootCommand(cfg *Config, stdout, stderr io.Writer) *cobra.Command {
	app := &cli{cfg: cfg, stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "carepaths",
		Short:         "Manage patient care paths, professionals and sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return cfg.Validate()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.Store, "store", cfg.Store, "storage backend (memory or sqlite)")
	flags.StringVar(&cfg.EventsDB, "events-db", cfg.EventsDB, "event log database path")
	flags.StringVar(&cfg.SnapshotsDB, "snapshots-db", cfg.SnapshotsDB, "snapshot database path")
	flags.StringVar(&cfg.Mode, "mode", cfg.Mode, "persistence mode (events, snapshots or both)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console or json)")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve prometheus metrics on this address")

	root.AddCommand(
		app.applyCommand(),
		app.showCommand(),
		app.historyCommand(),
		app.listCommand(),
		app.purgeCommand(),
	)
	return root
}

type cli struct {
	cfg    *Config
	stdout io.Writer
	stderr io.Writer
}

func newLogger(w io.Writer, cfg Config) zerolog.Logger {
	return logging.New(w, logging.Options{
		Level:   cfg.LogLevel,
		Format:  logging.Format(cfg.LogFormat),
		Service: entrypoint.ServiceCarepaths,
	})
}

// withRuntime opens the configured stores, runs fn and closes them.
func (c *cli) withRuntime(ctx context.Context, fn func(context.Context, *runtime) error) (err error) {
	logger := newLogger(c.stderr, *c.cfg)
	ctx = logging.WithContext(ctx, logger)
	rt, err := openRuntime(ctx, *c.cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, rt)
}
