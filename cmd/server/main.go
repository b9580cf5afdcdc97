// Command server runs the voxnote processing pipeline: it loads
// configuration, runs database migrations, and starts the worker pools
// that move uploaded audio through transcription and summarization.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer app.shutdown()

	app.start(ctx)
	slog.Info("pipeline running, waiting for shutdown signal")

	<-ctx.Done()
	slog.Info("shutdown signal received, draining workers")
	return nil
}
