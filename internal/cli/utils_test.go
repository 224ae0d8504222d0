package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/hikeplanner/internal/models"
	"github.com/hyperjump/hikeplanner/internal/query"
	"github.com/hyperjump/hikeplanner/internal/trails"
)

func sampleResult() *models.SearchResult {
	return &models.SearchResult{
		Trails: []*models.Trail{
			{
				ID:          "mist",
				Name:        "Mist Trail",
				Description: strings.Repeat("Granite steps beside Vernal Fall. ", 10),
				Location:    models.TrailLocation{Region: "california", Park: "Yosemite"},
				Characteristics: models.TrailCharacteristics{
					Difficulty: models.DifficultyIntermediate, Distance: 4.8, ElevationGain: 300,
					TrailType: models.TrailTypeOutAndBack,
				},
				Safety:   models.TrailSafety{RiskLevel: 2},
				Ratings:  models.TrailRatings{Average: 4.7, Count: 120},
				IsActive: true,
			},
		},
		Total:   3,
		HasMore: true,
		Limit:   1,
		Offset:  0,
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResult(), OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResult
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Total != 3 || len(decoded.Trails) != 1 || decoded.Trails[0].ID != "mist" {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResult(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 3 trails (showing 1-1)", "1. Mist Trail", "Yosemite, california", "4.8 km", "Rating 4.70 (120 ratings)", "...", "--offset 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	_ = WriteSearchResults(&buf, &models.SearchResult{}, OutputText)
	if !strings.Contains(buf.String(), "No trails found") {
		t.Errorf("empty result: %q", buf.String())
	}
}

func TestWriteTrails(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTrails(&buf, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON listing: %q", buf.String())
	}
	buf.Reset()
	closed := sampleResult().Trails[0]
	closed.IsActive = false
	_ = WriteTrails(&buf, []*models.Trail{closed}, OutputText)
	if !strings.Contains(buf.String(), "Mist Trail (inactive)") {
		t.Errorf("inactive marker missing:\n%s", buf.String())
	}
}

func TestWriteExplanation(t *testing.T) {
	e := &trails.Explanation{
		Dialect: "cosmos",
		Query: query.Descriptor{
			Text:       "SELECT * FROM c WHERE c.isActive = true AND c.location.region = @region",
			Parameters: []query.Parameter{{Name: "@region", Value: "utah"}},
		},
		CountQuery: query.Descriptor{Text: "SELECT VALUE COUNT(1) FROM c WHERE c.isActive = true"},
		Issues:     []string{"invalid seasonalMonth: 14"},
	}
	var buf bytes.Buffer
	if err := WriteExplanation(&buf, e, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Dialect: cosmos", "@region = utah", "COUNT(1)", "warning: invalid seasonalMonth"} {
		if !strings.Contains(out, want) {
			t.Errorf("explanation missing %q:\n%s", want, out)
		}
	}
}

func TestWriteImportReports(t *testing.T) {
	reports := []*trails.ImportReport{
		{Path: "/data/rockies.json", Imported: 2, Removed: 1, Skipped: []string{"trail 3 (x): invalid name"}},
		{Path: "/data/zion.yaml", Imported: 1},
	}
	var buf bytes.Buffer
	if err := WriteImportReports(&buf, reports, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "2 files, 3 trails imported, 1 removed, 1 skipped") {
		t.Errorf("summary missing:\n%s", out)
	}
	if !strings.Contains(out, "skipped trail 3 (x)") {
		t.Errorf("skip detail missing:\n%s", out)
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
