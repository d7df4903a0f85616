package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cheapskatecoder/draconic/config"
	"github.com/cheapskatecoder/draconic/db"
	"github.com/cheapskatecoder/draconic/errors"
	"github.com/cheapskatecoder/draconic/handlers"
	"github.com/cheapskatecoder/draconic/logger"
	"github.com/cheapskatecoder/draconic/queue"
	"github.com/cheapskatecoder/draconic/server"
	"github.com/cheapskatecoder/draconic/sym"
)

// ServeCmd runs the Scheduler's admission loops and its HTTP/WebSocket
// API until interrupted, mirroring the teacher's ServerCmd lifecycle
// (start in a goroutine, wait on a signal channel, shut down gracefully
// with a second Ctrl+C forcing immediate exit).
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: sym.PulseOpen + " Run the scheduler and its HTTP/WebSocket API",
	Long: sym.PulseOpen + ` serve — start the admission loops and the HTTP/WebSocket API.

Examples:
  draconic serve
  draconic serve --listen :9000`,
	RunE: runServe,
}

var serveListenAddr string

func init() {
	ServeCmd.Flags().StringVar(&serveListenAddr, "listen", "", "override server.listen_addr from config")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	listenAddr := cfg.Server.ListenAddr
	if serveListenAddr != "" {
		listenAddr = serveListenAddr
	}

	database, err := db.Open(cfg.Database.Path, logger.Logger)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	if err := db.Migrate(database, logger.Logger); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	store := queue.NewStore(database)
	registry := queue.NewHandlerRegistry()
	registry.Register("shell", handlers.Shell)

	sched := queue.NewScheduler(queue.Config{
		CPUCapacity:    cfg.Capacity.CPUUnits,
		MemCapacityMB:  cfg.Capacity.MemoryMB,
		MaxConcurrent:  cfg.Executor.MaxConcurrent,
		AdmissionLoops: 1,
		Defaults: queue.DefaultsConfig{
			MaxAttempts:       cfg.Defaults.MaxAttempts,
			BackoffMultiplier: cfg.Defaults.BackoffMultiplier,
			TimeoutSeconds:    cfg.Defaults.TimeoutSeconds,
		},
		RetryPolicy: queue.RetryPolicy{
			BaseDelay: time.Duration(cfg.Retry.BaseDelaySeconds) * time.Second,
			MinDelay:  time.Duration(cfg.Retry.MinDelaySeconds) * time.Second,
			MaxDelay:  time.Duration(cfg.Retry.MaxDelaySeconds) * time.Second,
		},
	}, store, registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	srv := server.New(sched, logger.Logger.Named("server"), cfg.Server.AllowedOrigins)

	pterm.Info.Printf("%s draconic listening on %s (db: %s)\n", sym.Pulse, listenAddr, cfg.Database.Path)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe(listenAddr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return errors.Wrap(err, "server failed")
	case <-sigChan:
		pterm.Info.Println(sym.PulseClose + " shutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan error, 1)
		go func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			shutdownDone <- srv.Shutdown(shutdownCtx)
		}()

		select {
		case err := <-shutdownDone:
			cancel()
			sched.Stop()
			if err != nil {
				return fmt.Errorf("shutdown error: %w", err)
			}
			pterm.Success.Println("draconic stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("force shutdown - exiting immediately")
			os.Exit(1)
			return nil
		}
	}
}
