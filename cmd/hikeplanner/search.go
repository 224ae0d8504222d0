package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/hyperjump/hikeplanner/internal/cli"
	"github.com/hyperjump/hikeplanner/internal/models"
	"github.com/hyperjump/hikeplanner/internal/trails"
)

// searchFlags are the filter flags shared by search and explain.
type searchFlags struct {
	difficulty  string
	trailType   string
	features    string
	amenities   string
	region      string
	park        string
	minDistance float64
	maxDistance float64
	minRating   float64
	month       int
	maxRisk     int
	noPermit    bool
	sortBy      string
	sortOrder   string
	limit       int
	offset      int
}

func (f *searchFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.difficulty, "difficulty", "", "comma-separated difficulty levels")
	fs.StringVar(&f.trailType, "type", "", "comma-separated trail types")
	fs.StringVar(&f.features, "features", "", "comma-separated required features")
	fs.StringVar(&f.amenities, "amenities", "", "comma-separated required amenities")
	fs.StringVar(&f.region, "region", "", "region")
	fs.StringVar(&f.park, "park", "", "park")
	fs.Float64Var(&f.minDistance, "min-distance", 0, "minimum distance in km")
	fs.Float64Var(&f.maxDistance, "max-distance", 0, "maximum distance in km")
	fs.Float64Var(&f.minRating, "min-rating", 0, "minimum average rating")
	fs.IntVar(&f.month, "month", 0, "month (1-12) the trail must be accessible in")
	fs.IntVar(&f.maxRisk, "max-risk", 0, "highest acceptable risk level (1-5)")
	fs.BoolVar(&f.noPermit, "no-permit", false, "only trails without a permit requirement")
	fs.StringVar(&f.sortBy, "sort", "", "sort field (default from config)")
	fs.StringVar(&f.sortOrder, "order", "", "asc or desc (default from config)")
	fs.IntVar(&f.limit, "limit", 0, "number of results (default from config)")
	fs.IntVar(&f.offset, "offset", 0, "number of results to skip")
}

// request builds a search request. Zero-valued flags add no constraint.
func (f *searchFlags) request(queryStr string) *models.SearchRequest {
	req := &models.SearchRequest{
		Query:     queryStr,
		SortBy:    models.SortField(f.sortBy),
		SortOrder: models.SortOrder(f.sortOrder),
	}
	if f.limit > 0 {
		req.Limit = &f.limit
	}
	if f.offset > 0 {
		req.Offset = &f.offset
	}
	filters := &models.FilterSet{
		Features:         splitList(f.features),
		Amenities:        splitList(f.amenities),
		Region:           f.region,
		Park:             f.park,
		SeasonalMonth:    f.month,
		MaxRiskLevel:     f.maxRisk,
		NoPermitRequired: f.noPermit,
	}
	for _, d := range splitList(f.difficulty) {
		filters.Difficulty = append(filters.Difficulty, models.Difficulty(d))
	}
	for _, t := range splitList(f.trailType) {
		filters.TrailType = append(filters.TrailType, models.TrailType(t))
	}
	if f.minDistance > 0 || f.maxDistance > 0 {
		filters.Distance = &models.Range{Min: positive(f.minDistance), Max: positive(f.maxDistance)}
	}
	if f.minRating > 0 {
		filters.Rating = &models.Range{Min: positive(f.minRating)}
	}
	req.Filters = filters
	return req
}

func positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func parseOutput(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct store access)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use the store directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	var sf searchFlags
	sf.register(fs)
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	format := parseOutput(*outputFormat)
	req := sf.request(buildSearchQuery(fs.Args()))

	var result *models.SearchResult
	var err error
	if *serverURL != "" {
		// The server holds the Bleve index lock, so go through its API when it is running.
		result, err = searchViaHTTP(*serverURL, req)
	} else {
		_, _, components := setup(*configPath, false)
		defer components.Close()
		result, err = components.Service.Search(context.Background(), req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, req *models.SearchRequest) (*models.SearchResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/trails/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	var result models.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func runExplain() {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for search defaults)")
	dialect := fs.String("dialect", "", "query dialect: cosmos, sqlite or postgres")
	outputFormat := fs.String("output", "text", "output format: text or json")
	var sf searchFlags
	sf.register(fs)
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	format := parseOutput(*outputFormat)
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	// Explaining renders queries only; no store is opened.
	svc := trails.NewService(nil, &cfg.Search)
	e, err := svc.Explain(sf.request(buildSearchQuery(fs.Args())), *dialect)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Explain failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteExplanation(os.Stdout, e, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// serverError turns a non-2xx response into an error carrying the API error message.
func serverError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

func directoriesURL(serverURL, path string) string {
	u := serverURL + "/api/v1/import/directories"
	if path != "" {
		u += "?path=" + url.QueryEscape(path)
	}
	return u
}
