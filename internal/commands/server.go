package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"evalgo.org/gridmapper/internal/api"
	"evalgo.org/gridmapper/internal/scheduler"
	"evalgo.org/gridmapper/internal/storage"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the HTTP API server.

POST /api/generate-map accepts a contest log and returns download links for
the generated maps. Maps go to the configured storage backend (S3 or the
local filesystem, which the server then serves under /maps/).`,
	RunE: runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	rt, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	server := api.New(cfg, rt.generator, rt.store, rt.tables, rt.log)

	// Expired links make old maps unreachable; the filesystem backend
	// deletes them. S3 buckets use lifecycle rules instead.
	if fs, ok := rt.store.(*storage.FileStore); ok && cfg.Storage.Retention > 0 {
		sched := scheduler.New(fs, cfg.Storage.Retention, cfg.Storage.PruneInterval, rt.log)
		sched.Start(ctx)
		defer sched.Stop()
	}

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		rt.log.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return nil

	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}
