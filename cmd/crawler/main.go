package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"webindex/pkg/config"
	"webindex/pkg/crawl"
	"webindex/pkg/fetch"
	"webindex/pkg/log"
	"webindex/pkg/storage"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "crawl":
		runCrawl(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("webindex-crawler %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`webindex-crawler - Polite web crawler feeding the word index

Usage:
  webindex-crawler <command> [options]

Commands:
  crawl     Seed the frontier and crawl until it starves
  validate  Validate configuration file
  version   Show version info

Run 'webindex-crawler <command> -h' for command-specific help.`)
}

// runCrawl handles the crawl subcommand
func runCrawl(args []string) {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	logLevel := fs.String("loglevel", "", "Log level override (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: webindex-crawler crawl [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(executeCrawl(*configFile, *logLevel))
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: webindex-crawler validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate loads and validates the config, reporting the outcome to
// the provided writers.
func doValidate(configPath string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "OK: %s is valid\n", configPath)
	fmt.Fprintf(stdout, "  workers: %d, max depth: %d, seeds: %d, backend: %s\n",
		cfg.Crawler.Workers, cfg.Crawler.MaxDepth, len(cfg.Crawler.SeedURLs), cfg.Storage.Backend)
	return 0
}

func executeCrawl(configFile, logLevelOverride string) int {
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
	logEntry := logger.WithField("component", "crawl")

	store, err := openStore(cfg.Storage, logEntry)
	if err != nil {
		logger.Errorf("Failed to open storage: %v", err)
		return 1
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig = <-sigChan:
			logger.Warnf("Received second signal %v, forcing exit", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("Graceful shutdown period exceeded, forcing exit")
			os.Exit(1)
		}
	}()

	httpClient := fetch.NewClient(cfg.HTTPClient, logger)
	fetcher, err := fetch.NewHTTPFetcher(httpClient, cfg.Crawler, logEntry)
	if err != nil {
		logger.Errorf("Failed to initialize fetcher: %v", err)
		return 1
	}
	robots := fetch.NewHTTPRobotsProvider(httpClient, cfg.Crawler.UserAgent, logEntry)

	scheduler := crawl.NewScheduler(cfg.Crawler, store, fetcher, robots, logEntry)
	if err := scheduler.Seed(); err != nil {
		logger.Errorf("Failed to seed frontier: %v", err)
		return 1
	}

	scheduler.Run(ctx)

	if ctx.Err() != nil {
		logger.Warn("Crawl cancelled")
		return 0
	}
	logger.Info("Crawl completed")
	return 0
}

// openStore creates the configured storage backend.
func openStore(cfg config.StorageConfig, logEntry *logrus.Entry) (storage.Store, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewBadgerStore(cfg.StateDir, logEntry)
	}
}
