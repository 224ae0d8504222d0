package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/hikeplanner/internal/cli"
	"github.com/hyperjump/hikeplanner/internal/config"
	"github.com/hyperjump/hikeplanner/internal/seed"
	"github.com/hyperjump/hikeplanner/internal/storage"
	"github.com/hyperjump/hikeplanner/internal/trails"
)

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: hikeplanner import [flags] <file-or-directory>")
		os.Exit(1)
	}
	format := parseOutput(*outputFormat)
	path := fs.Arg(0)
	cfg, _, components := setup(*configPath, false)
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	var reports []*trails.ImportReport
	if info.IsDir() {
		reports, err = components.Service.ImportDirectory(ctx, path, cfg.Import.Extensions)
	} else {
		// An explicitly named file is imported whatever the configured extensions.
		var report *trails.ImportReport
		report, err = components.Service.ImportFile(ctx, path, nil)
		if report != nil {
			reports = append(reports, report)
		}
	}
	if werr := cli.WriteImportReports(os.Stdout, reports, format); werr != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", werr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
}

// seedValue picks the random seed: the flag, then config, then the clock.
func seedValue(flagValue, configValue int64) int64 {
	if flagValue != 0 {
		return flagValue
	}
	if configValue != 0 {
		return configValue
	}
	return time.Now().UnixNano()
}

func runSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	count := fs.Int("count", 0, "number of trails (default from config)")
	randomSeed := fs.Int64("random-seed", 0, "seed for reproducible data (default from config)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, components := setup(*configPath, false)
	defer components.Close()

	n := *count
	if n <= 0 {
		n = cfg.Seed.Count
	}
	s := seedValue(*randomSeed, cfg.Seed.RandomSeed)
	loaded, err := components.Service.Load(context.Background(), seed.NewGenerator(s).Trails(n))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Seeding failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %d trails (random seed %d)\n", loaded, s)
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	_, _, components := setup(*configPath, true)
	defer components.Close()

	n, err := components.Service.Reindex(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reindex failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d trails\n", n)
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	SearchBackend  string `json:"search_backend"`
	DefaultLimit   int    `json:"default_limit,omitempty"`
	MaxLimit       int    `json:"max_limit,omitempty"`
	DefaultSort    string `json:"default_sort,omitempty"`
	DefaultOrder   string `json:"default_order,omitempty"`
	BleveIndexPath string `json:"bleve_index_path,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Trails         int64                 `json:"trails"`
	ActiveTrails   int64                 `json:"active_trails"`
	Driver         string                `json:"driver"`
	IndexedTrails  *uint64               `json:"indexed_trails,omitempty"`
	DiskUsageBytes *int64                `json:"disk_usage_bytes,omitempty"`
	Config         *statusConfigResponse `json:"config,omitempty"`
}

func localStatus(ctx context.Context, cfg *config.Config, components *Components) (*statusResponse, error) {
	stats, err := components.Service.Stats(ctx)
	if err != nil {
		return nil, err
	}
	status := &statusResponse{
		Trails:       stats.Trails,
		ActiveTrails: stats.ActiveTrails,
		Driver:       stats.Driver,
		Config: &statusConfigResponse{
			SearchBackend:  cfg.Search.Backend,
			DefaultLimit:   cfg.Search.DefaultLimit,
			MaxLimit:       cfg.Search.MaxLimit,
			DefaultSort:    cfg.Search.DefaultSort,
			DefaultOrder:   cfg.Search.DefaultOrder,
			BleveIndexPath: cfg.Storage.BleveIndexPath,
		},
	}
	if n, ok, err := components.Service.IndexedTrails(); err == nil && ok {
		status.IndexedTrails = &n
	}
	dbPath := ""
	if cfg.Storage.Driver == config.DriverSQLite {
		dbPath = cfg.Storage.DatabasePath
	}
	if diskBytes, err := storage.DiskUsage(dbPath, cfg.Storage.BleveIndexPath); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func writeStatus(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "trails:             %d   # stored trails\n", status.Trails)
	fmt.Fprintf(w, "active_trails:      %d   # trails visible to searches\n", status.ActiveTrails)
	fmt.Fprintf(w, "driver:             %s\n", status.Driver)
	if status.IndexedTrails != nil {
		fmt.Fprintf(w, "indexed_trails:     %d   # documents in the search index\n", *status.IndexedTrails)
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + index on disk\n", *status.DiskUsageBytes)
	}
	if c := status.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "search_backend:     %s\n", c.SearchBackend)
		if c.DefaultLimit > 0 {
			fmt.Fprintf(w, "default_limit:      %d\n", c.DefaultLimit)
		}
		if c.MaxLimit > 0 {
			fmt.Fprintf(w, "max_limit:          %d\n", c.MaxLimit)
		}
		if c.DefaultSort != "" {
			fmt.Fprintf(w, "default_sort:       %s %s\n", c.DefaultSort, c.DefaultOrder)
		}
		if c.BleveIndexPath != "" {
			fmt.Fprintf(w, "bleve_index_path:   %s\n", c.BleveIndexPath)
		}
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct store access)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use the store directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := parseOutput(*outputFormat)
	var status *statusResponse
	var err error
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
	} else {
		cfg, _, components := setup(*configPath, false)
		defer components.Close()
		status, err = localStatus(context.Background(), cfg, components)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}

	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	writeStatus(os.Stdout, status)
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runDirs() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: hikeplanner dirs <add|remove|list> [path]")
		fmt.Println("  hikeplanner dirs add <path>     Watch a directory for trail files")
		fmt.Println("  hikeplanner dirs remove <path>  Stop watching a directory")
		fmt.Println("  hikeplanner dirs list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("dirs", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	noSync := fs.Bool("no-sync", false, "do not import files already in the directory (add only)")
	_ = fs.Parse(os.Args[3:])

	var err error
	switch sub {
	case "add", "remove":
		if fs.NArg() < 1 {
			fmt.Printf("Usage: hikeplanner dirs %s <path>\n", sub)
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if sub == "add" {
			if err = addDirectory(*serverURL, path, !*noSync); err == nil {
				fmt.Printf("Added: %s\n", path)
			}
		} else if err = removeDirectory(*serverURL, path); err == nil {
			fmt.Printf("Removed: %s\n", path)
		}
	case "list":
		var dirs []string
		dirs, err = listDirectories(*serverURL)
		for _, d := range dirs {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown dirs subcommand: %s\n", sub)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", sub, err)
		os.Exit(1)
	}
}

func addDirectory(serverURL, path string, syncExisting bool) error {
	body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": syncExisting})
	resp, err := http.Post(directoriesURL(serverURL, ""), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return serverError(resp)
	}
	return nil
}

func removeDirectory(serverURL, path string) error {
	req, err := http.NewRequest(http.MethodDelete, directoriesURL(serverURL, path), nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return serverError(resp)
	}
	return nil
}

func listDirectories(serverURL string) ([]string, error) {
	resp, err := http.Get(directoriesURL(serverURL, ""))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Directories, nil
}
