package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lernbuddy.de/lernbuddy/internal/analytics"
	"lernbuddy.de/lernbuddy/internal/api"
	"lernbuddy.de/lernbuddy/internal/config"
	"lernbuddy.de/lernbuddy/internal/core"
	"lernbuddy.de/lernbuddy/internal/logger"
	"lernbuddy.de/lernbuddy/internal/store"
)

func main() {
	listFeedback := flag.Int("feedback", 0, "Print the N most recent feedback entries as JSON and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	dbStore, err := store.NewSQLiteStore(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to initialize database", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer dbStore.Close()

	if *listFeedback > 0 {
		if err := printFeedback(dbStore, *listFeedback); err != nil {
			slog.Error("Failed to list feedback", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	generator, closeGenerator, err := core.NewGenerator(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize model gateway", "provider", cfg.ModelProvider, "error", err)
		os.Exit(1)
	}
	defer closeGenerator()

	tutor := core.NewTutorService(generator)
	sink := analytics.NewSink(dbStore)

	apiHandler := api.NewAPIHandler(tutor, sink, dbStore, dbStore)
	router := api.NewRouter(apiHandler, cfg.AllowedOrigins)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // model calls with images are slow
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "addr", serverAddr, "provider", cfg.ModelProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen", "addr", serverAddr, "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	sink.Wait()

	slog.Info("Server exiting gracefully")
}

func printFeedback(db *store.SQLiteStore, limit int) error {
	rows, err := db.ListFeedback(context.Background(), limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
