package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"spectra/cmd"
	applog "spectra/internal/log"
	"spectra/pkg/build"
)

// main resolves build information, wires SIGINT/SIGTERM to the command
// context and runs the CLI. Long-running commands (serve) stop when the
// context is cancelled; one-shot commands finish on their own.
func main() {
	build.Initialize()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()

	if err != nil {
		applog.Errorf("%v", err)
		os.Exit(1)
	}
}
