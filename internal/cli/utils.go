// Package cli formats trail search results and reports for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/hikeplanner/internal/models"
	"github.com/hyperjump/hikeplanner/internal/trails"
	"github.com/hyperjump/hikeplanner/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json"; anything else is an error.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

const descriptionWidth = 160

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes one page of search results to w in the given format.
func WriteSearchResults(w io.Writer, result *models.SearchResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	if result.Total == 0 {
		fmt.Fprintln(w, "\nNo trails found.")
		return nil
	}
	fmt.Fprintf(w, "\nFound %d trails (showing %d-%d)\n\n", result.Total, result.Offset+1, result.Offset+len(result.Trails))
	for i, t := range result.Trails {
		writeTrail(w, result.Offset+i+1, t)
	}
	if result.HasMore {
		fmt.Fprintf(w, "More results: --offset %d\n", result.Offset+len(result.Trails))
	}
	return nil
}

// WriteTrails writes a plain trail listing.
func WriteTrails(w io.Writer, list []*models.Trail, format OutputFormat) error {
	if format == OutputJSON {
		if list == nil {
			list = []*models.Trail{}
		}
		return writeJSON(w, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "\nNo trails found.")
		return nil
	}
	fmt.Fprintln(w)
	for i, t := range list {
		writeTrail(w, i+1, t)
	}
	return nil
}

func writeTrail(w io.Writer, rank int, t *models.Trail) {
	c := t.Characteristics
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "%d. %s", rank, t.Name)
	if !t.IsActive {
		fmt.Fprint(w, " (inactive)")
	}
	fmt.Fprintln(w)
	where := t.Location.Region
	if t.Location.Park != "" {
		where = t.Location.Park + ", " + where
	}
	fmt.Fprintf(w, "   %s | id %s\n", where, t.ID)
	fmt.Fprintf(w, "   %s · %.1f km · %.0f m gain · %s · risk %d\n",
		c.Difficulty, c.Distance, c.ElevationGain, c.TrailType, t.Safety.RiskLevel)
	fmt.Fprintf(w, "   Rating %.2f (%d ratings)\n", t.Ratings.Average, t.Ratings.Count)
	if t.Description != "" {
		fmt.Fprintf(w, "\n   %s\n", utils.Truncate(t.Description, descriptionWidth))
	}
	fmt.Fprintln(w)
}

// WriteExplanation writes the rendered queries of a search.
func WriteExplanation(w io.Writer, e *trails.Explanation, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, e)
	}
	fmt.Fprintf(w, "Dialect: %s\n\n%s\n", e.Dialect, e.Query.Text)
	for _, p := range e.Query.Parameters {
		fmt.Fprintf(w, "  %s = %v\n", p.Name, p.Value)
	}
	fmt.Fprintf(w, "\nCount:\n%s\n", e.CountQuery.Text)
	for _, issue := range e.Issues {
		fmt.Fprintf(w, "warning: %s\n", issue)
	}
	return nil
}

// WriteImportReports writes the outcome of importing one or more files.
func WriteImportReports(w io.Writer, reports []*trails.ImportReport, format OutputFormat) error {
	if format == OutputJSON {
		if reports == nil {
			reports = []*trails.ImportReport{}
		}
		return writeJSON(w, reports)
	}
	imported, removed, skipped := 0, 0, 0
	for _, r := range reports {
		fmt.Fprintf(w, "%s: %d imported, %d removed", r.Path, r.Imported, r.Removed)
		if len(r.Skipped) > 0 {
			fmt.Fprintf(w, ", %d skipped", len(r.Skipped))
		}
		fmt.Fprintln(w)
		for _, s := range r.Skipped {
			fmt.Fprintf(w, "  skipped %s\n", s)
		}
		imported += r.Imported
		removed += r.Removed
		skipped += len(r.Skipped)
	}
	fmt.Fprintf(w, "\n%d files, %d trails imported, %d removed, %d skipped\n", len(reports), imported, removed, skipped)
	return nil
}
