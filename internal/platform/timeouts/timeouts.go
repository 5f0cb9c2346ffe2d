// Package timeouts holds the shutdown and server timeouts shared by
// carepaths commands.
package timeouts

import "time"

// ReadHeader limits how long the metrics server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown bounds graceful shutdown of the metrics server.
const Shutdown = 2 * time.Second

// TelemetryFlush bounds flushing buffered spans on exit.
const TelemetryFlush = 5 * time.Second
