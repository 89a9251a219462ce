package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wardenhq/warden/internal/api"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/resolver"
	sig "github.com/wardenhq/warden/internal/signal"
	"github.com/wardenhq/warden/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the long-lived gateway service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(os.Getenv("LOG_LEVEL"), os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	decisions := store.NewDecisionStore(db)
	sessions := store.NewSessionStore(db)
	sentinels := sig.NewFileChannel(cfg.SentinelDir)

	svc := resolver.New(resolver.Options{
		MaxWait:   cfg.MaxWait,
		Retention: cfg.Retention,
		Signals:   sentinels,
		Audit:     decisions,
		Logger:    logger,
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	svc.StartSweeper(ctx, cfg.SweepInterval)

	router := api.NewRouter(svc, db, decisions, sessions, sentinels, cfg.APIKey, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
		// No WriteTimeout: the long-poll route legitimately holds a response
		// open up to WARDEN_MAX_WAIT.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("warden gateway starting", "addr", addr, "maxWait", cfg.MaxWait.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
