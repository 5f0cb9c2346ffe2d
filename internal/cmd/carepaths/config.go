// Package carepaths wires the carepaths command line tool.
package carepaths

import (
	"fmt"
	"strings"

	entrypoint "github.com/louisbranch/carepaths/internal/platform/cmd"
	"github.com/louisbranch/carepaths/internal/platform/config"
	"github.com/louisbranch/carepaths/internal/platform/logging"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Persistence modes.
const (
	ModeEvents    = "events"
	ModeSnapshots = "snapshots"
	ModeBoth      = "both"
)

// Config holds carepaths settings. Command line flags override these.
type Config struct {
	Store       string `env:"CAREPATHS_STORE"         envDefault:"sqlite"`
	EventsDB    string `env:"CAREPATHS_EVENTS_DB"     envDefault:"data/carepaths-events.db"`
	SnapshotsDB string `env:"CAREPATHS_SNAPSHOTS_DB"  envDefault:"data/carepaths-snapshots.db"`
	Mode        string `env:"CAREPATHS_MODE"          envDefault:"both"`
	LogLevel    string `env:"CAREPATHS_LOG_LEVEL"     envDefault:"info"`
	LogFormat   string `env:"CAREPATHS_LOG_FORMAT"    envDefault:"console"`
	MetricsAddr string `env:"CAREPATHS_METRICS_ADDR"`
}

// ParseConfig reads Config from the environment.
func ParseConfig(opts ...config.Option) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg, opts...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings and required paths.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.usesEvents() && strings.TrimSpace(c.EventsDB) == "" {
			return fmt.Errorf("events db path is required")
		}
		if c.usesSnapshots() && strings.TrimSpace(c.SnapshotsDB) == "" {
			return fmt.Errorf("snapshots db path is required")
		}
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreMemory, StoreSQLite)
	}
	switch c.Mode {
	case ModeEvents, ModeSnapshots, ModeBoth:
	default:
		return fmt.Errorf("unknown mode %q (want %s, %s or %s)", c.Mode, ModeEvents, ModeSnapshots, ModeBoth)
	}
	switch logging.Format(c.LogFormat) {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func (c Config) usesEvents() bool {
	return c.Mode == ModeEvents || c.Mode == ModeBoth
}

func (c Config) usesSnapshots() bool {
	return c.Mode == ModeSnapshots || c.Mode == ModeBoth
}
