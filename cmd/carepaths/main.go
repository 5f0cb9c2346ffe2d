// Command carepaths runs care path commands against a patient store.
package main

import (
	"context"
	"os"

	"github.com/louisbranch/carepaths/internal/cmd/carepaths"
	entrypoint "github.com/louisbranch/carepaths/internal/platform/cmd"
	"github.com/louisbranch/carepaths/internal/platform/config"
)

func main() {
	cfg, err := carepaths.ParseConfig()
	if err != nil {
		config.Exitf("carepaths: %v", err)
	}

	ctx, stop := entrypoint.SignalContext(context.Background())
	status := carepaths.Main(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(status)
}
