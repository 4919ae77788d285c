package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"webindex/pkg/config"
	"webindex/pkg/index"
	"webindex/pkg/log"
	"webindex/pkg/storage"
)

const version = "1.0.0"

func main() {
	fs := flag.NewFlagSet("indexer", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	logLevel := fs.String("loglevel", "", "Log level override (debug, info, warn, error)")
	showVersion := fs.Bool("version", false, "Show version info")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: webindex-indexer [options]\n\nDrains the pending-page queue left by a deferred-indexing crawl.\nThe crawler must not hold the database open at the same time.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}
	if *showVersion {
		fmt.Printf("webindex-indexer %s\n", version)
		return
	}

	os.Exit(run(*configFile, *logLevel))
}

func run(configFile, logLevelOverride string) int {
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}

	level := cfg.LogLevel
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	logger, err := log.NewLogger(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		return 1
	}
	logEntry := logger.WithField("component", "indexer")

	store, err := storage.NewBadgerStore(cfg.Storage.StateDir, logEntry)
	if err != nil {
		logger.Errorf("Failed to open storage: %v", err)
		return 1
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := index.NewService(store, cfg.Indexer.PollInterval, logEntry)
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("Indexer failed: %v", err)
		return 1
	}
	logger.Info("Indexer stopped")
	return 0
}
