// Package main is the hikeplanner CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/hikeplanner/internal/config"
	"github.com/hyperjump/hikeplanner/internal/keyword"
	"github.com/hyperjump/hikeplanner/internal/server"
	"github.com/hyperjump/hikeplanner/internal/storage"
	"github.com/hyperjump/hikeplanner/internal/trails"
	"github.com/hyperjump/hikeplanner/internal/watcher"
	"github.com/hyperjump/hikeplanner/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/hikeplanner/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "explain":
		runExplain()
	case "import":
		runImport()
	case "seed":
		runSeed()
	case "reindex":
		runReindex()
	case "status":
		runStatus()
	case "dirs":
		runDirs()
	case "version", "--version", "-v":
		fmt.Printf("hikeplanner version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (queries, imports, directory changes)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = cfg.Debug || *debug
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug),
		zap.String("driver", cfg.Storage.Driver),
		zap.String("search_backend", cfg.Search.Backend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	svc := components.Service
	exts := cfg.Import.Extensions
	watchSvc := watcher.NewWatcher(
		cfg.Import.Directories,
		exts,
		cfg.Import.RecursiveOrDefault(),
		func(ctx context.Context, path string) error {
			report, err := svc.ImportFile(ctx, path, exts)
			if err != nil {
				return err
			}
			logger.Info("trail file imported", zap.String("path", report.Path),
				zap.Int("imported", report.Imported), zap.Int("removed", report.Removed), zap.Int("skipped", len(report.Skipped)))
			return nil
		},
		func(ctx context.Context, path string) error {
			n, err := svc.RemoveSource(ctx, path)
			if err == nil && n > 0 {
				logger.Info("trail file removed", zap.String("path", path), zap.Int("trails", n))
			}
			return err
		},
		watcher.WithLogger(logger),
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	go watchSvc.SyncExistingFiles()

	srv := server.NewServer(svc, cfg, logger, server.WithWatch(watchSvc, resolvedConfigPath))
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	watchSvc.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// Components holds initialized services.
type Components struct {
	Store   storage.Store
	Index   *keyword.TrailIndex
	Service *trails.Service
}

// Close releases the store and the index.
func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func openStore(ctx context.Context, cfg *config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return storage.NewPostgresStore(ctx, cfg.PostgresDSN)
	default:
		return storage.NewSQLiteStore(cfg.DatabasePath)
	}
}

// initializeComponents opens the configured store and, when the search backend is bleve
// or forceIndex is set, the Bleve index.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, forceIndex bool) (*Components, error) {
	store, err := openStore(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Store: store}

	opts := []trails.Option{trails.WithLogger(logger)}
	if forceIndex || cfg.Search.Backend == config.BackendBleve {
		idx, err := keyword.NewTrailIndex(cfg.Storage.BleveIndexPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize search index: %w", err)
		}
		c.Index = idx
		opts = append(opts, trails.WithIndex(idx))
		logger.Debug("search index opened", zap.String("path", cfg.Storage.BleveIndexPath))
	}
	c.Service = trails.NewService(store, &cfg.Search, opts...)
	return c, nil
}

// setup loads config, creates the logger and opens the components for one-shot commands.
func setup(configPath string, forceIndex bool) (*config.Config, *zap.Logger, *Components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(context.Background(), cfg, logger, forceIndex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, components
}

func printUsage() {
	fmt.Println(`hikeplanner - Trail search and planning service

Usage:
  hikeplanner server [flags]              Start the HTTP server and import watcher
  hikeplanner search [flags] [query]      Search trails
  hikeplanner explain [flags] [query]     Show the queries a search would run
  hikeplanner import [flags] <path>       Import a trail file or directory
  hikeplanner seed [flags]                Generate random trails
  hikeplanner reindex [flags]             Rebuild the search index from the store
  hikeplanner status [flags]              Show store and index status
  hikeplanner dirs <add|remove|list>      Manage watched import directories
  hikeplanner version                     Show version
  hikeplanner help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/hikeplanner/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --server string        Server URL (default: http://localhost:8080). Use --server "" for direct store access.
  --difficulty string    Comma-separated difficulty levels (beginner,intermediate,advanced,expert)
  --type string          Comma-separated trail types (loop,out-and-back,point-to-point,shuttle)
  --features string      Comma-separated features (scenicViews,waterFeatures,wildlife,...)
  --amenities string     Comma-separated amenities (parking,restrooms,camping,drinkingWater)
  --region, --park       Exact location filters
  --min-distance, --max-distance, --min-rating float
  --month int            Month (1-12) the trail must be accessible in
  --max-risk int         Highest acceptable risk level (1-5)
  --no-permit            Only trails without a permit requirement
  --sort string          rating, distance, difficulty, popularity, elevation, name or created
  --order string         asc or desc
  --limit, --offset int  Paging
  --output string        text or json

Explain Flags:
  --dialect string   cosmos, sqlite or postgres (default: cosmos)

Seed Flags:
  --count int          Number of trails (default from config, or 50)
  --random-seed int    Seed for reproducible data (default from config; 0 = time based)

Examples:
  hikeplanner server
  hikeplanner search --difficulty beginner --max-distance 8 waterfall
  hikeplanner search --region colorado --sort distance --order asc --output json
  hikeplanner explain --dialect postgres --month 7 lake
  hikeplanner import ./trails/
  hikeplanner seed --count 200 --random-seed 42
  hikeplanner dirs add /path/to/trail/files`)
}
