package trails

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/hikeplanner/internal/config"
	"github.com/hyperjump/hikeplanner/internal/keyword"
	"github.com/hyperjump/hikeplanner/internal/models"
	"github.com/hyperjump/hikeplanner/internal/seed"
	"github.com/hyperjump/hikeplanner/internal/storage"
)

func trail(id, name, region, park string, d models.Difficulty, distance float64, avg float64, count int) *models.Trail {
	return &models.Trail{
		ID:           id,
		PartitionKey: region,
		Name:         name,
		Location:     models.TrailLocation{Region: region, Park: park},
		Characteristics: models.TrailCharacteristics{
			Difficulty: d,
			Distance:   distance,
			Duration:   models.DurationRange{Min: distance / 4, Max: distance / 2},
			TrailType:  models.TrailTypeLoop,
		},
		Safety:   models.TrailSafety{RiskLevel: 2},
		Ratings:  models.TrailRatings{Average: avg, Count: count},
		IsActive: true,
	}
}

func fixtures() []*models.Trail {
	mist := trail("mist", "Mist Trail", "california", "Yosemite", models.DifficultyIntermediate, 4.8, 4.7, 120)
	mist.Features = models.TrailFeatures{WaterFeatures: true, Wildlife: []string{"deer"}}
	dome := trail("dome", "Half Dome", "california", "Yosemite", models.DifficultyExpert, 22.5, 4.9, 300)
	dome.Features.ScenicViews = true
	lake := trail("lake", "Lake Loop", "colorado", "Rocky Mountain", models.DifficultyBeginner, 3.2, 4.1, 8)
	lake.Features.WaterFeatures = true
	bear := trail("bear", "Bear Peak", "colorado", "", models.DifficultyAdvanced, 9, 3.8, 3)
	easy := trail("easy", "Easy Meadow", "colorado", "Rocky Mountain", models.DifficultyBeginner, 12, 4.5, 20)
	closed := trail("closed", "Closed Ridge", "utah", "", models.DifficultyBeginner, 2, 5, 50)
	closed.IsActive = false
	return []*models.Trail{mist, dome, lake, bear, easy, closed}
}

type fixture struct {
	svc   *Service
	store *storage.SQLiteStore
	index *keyword.TrailIndex
}

func newFixture(t *testing.T, backend string) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "trails.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	index, err := keyword.NewTrailIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = index.Close() })

	ctx := context.Background()
	trails := fixtures()
	for _, tr := range trails {
		if err := store.Create(ctx, tr); err != nil {
			t.Fatal(err)
		}
	}
	if err := index.IndexBatch(ctx, trails); err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{Search: config.SearchConfig{Backend: backend}}
	config.ApplyDefaults(&cfg)
	svc := NewService(store, &cfg.Search, WithIndex(index), WithLogger(zap.NewNop()))
	return &fixture{svc: svc, store: store, index: index}
}

func names(trails []*models.Trail) []string {
	out := make([]string, len(trails))
	for i, tr := range trails {
		out[i] = tr.Name
	}
	return out
}

func intPtr(v int) *int { return &v }

func TestService_Search(t *testing.T) {
	tests := []struct {
		name      string
		req       *models.SearchRequest
		want      []string
		wantTotal int
		wantMore  bool
	}{
		{
			name:      "defaults sort by rating",
			req:       &models.SearchRequest{},
			want:      []string{"Half Dome", "Mist Trail", "Easy Meadow", "Lake Loop", "Bear Peak"},
			wantTotal: 5,
		},
		{
			name:      "nil request",
			req:       nil,
			want:      []string{"Half Dome", "Mist Trail", "Easy Meadow", "Lake Loop", "Bear Peak"},
			wantTotal: 5,
		},
		{
			name: "text and difficulty",
			req: &models.SearchRequest{Query: "rocky", Filters: &models.FilterSet{
				Difficulty: []models.Difficulty{models.DifficultyBeginner}}, SortBy: models.SortByName, SortOrder: models.SortAsc},
			want:      []string{"Easy Meadow", "Lake Loop"},
			wantTotal: 2,
		},
		{
			name:      "page with more",
			req:       &models.SearchRequest{SortBy: models.SortByName, SortOrder: "ASC", Limit: intPtr(2), Offset: intPtr(1)},
			want:      []string{"Easy Meadow", "Half Dome"},
			wantTotal: 5,
			wantMore:  true,
		},
		{
			name:      "last page",
			req:       &models.SearchRequest{SortBy: models.SortByName, SortOrder: models.SortAsc, Limit: intPtr(2), Offset: intPtr(4)},
			want:      []string{"Mist Trail"},
			wantTotal: 5,
		},
		{
			name: "features and region",
			req: &models.SearchRequest{Filters: &models.FilterSet{
				Features: []string{"water features"}, Region: "colorado"}},
			want:      []string{"Lake Loop"},
			wantTotal: 1,
		},
		{
			name: "invalid filter values are ignored",
			req: &models.SearchRequest{Filters: &models.FilterSet{
				SeasonalMonth: 13, MaxRiskLevel: 9, Amenities: []string{"hot tub"}}},
			want:      []string{"Half Dome", "Mist Trail", "Easy Meadow", "Lake Loop", "Bear Peak"},
			wantTotal: 5,
		},
	}
	for _, backend := range []string{config.BackendStore, config.BackendBleve} {
		f := newFixture(t, backend)
		for _, tt := range tests {
			t.Run(backend+"/"+tt.name, func(t *testing.T) {
				res, err := f.svc.Search(context.Background(), tt.req)
				if err != nil {
					t.Fatalf("Search: %v", err)
				}
				if !reflect.DeepEqual(names(res.Trails), tt.want) {
					t.Errorf("trails: got %v, want %v", names(res.Trails), tt.want)
				}
				if res.Total != tt.wantTotal {
					t.Errorf("total: got %d, want %d", res.Total, tt.wantTotal)
				}
				if res.HasMore != tt.wantMore {
					t.Errorf("hasMore: got %v, want %v", res.HasMore, tt.wantMore)
				}
			})
		}
	}
}

func TestService_SearchDoesNotModifyRequest(t *testing.T) {
	f := newFixture(t, config.BackendStore)
	req := &models.SearchRequest{}
	if _, err := f.svc.Search(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if req.Limit != nil || req.SortBy != "" {
		t.Errorf("request was modified: %+v", req)
	}
}

func TestService_SearchLimitCappedByConfig(t *testing.T) {
	f := newFixture(t, config.BackendStore)
	f.svc.config.MaxLimit = 2
	res, err := f.svc.Search(context.Background(), &models.SearchRequest{Limit: intPtr(50)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Limit != 2 || len(res.Trails) != 2 || !res.HasMore {
		t.Errorf("unexpected page: limit=%d trails=%d hasMore=%v", res.Limit, len(res.Trails), res.HasMore)
	}
}

func TestService_SearchRejectsUnknownEnums(t *testing.T) {
	f := newFixture(t, config.BackendStore)
	tests := []*models.SearchRequest{
		{SortBy: "steepness"},
		{SortOrder: "sideways"},
		{Filters: &models.FilterSet{Difficulty: []models.Difficulty{"impossible"}}},
		{Filters: &models.FilterSet{TrailType: []models.TrailType{"spiral"}}},
	}
	for _, req := range tests {
		_, err := f.svc.Search(context.Background(), req)
		var ve *models.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("Search(%+v): expected ValidationError, got %v", req, err)
		}
	}
}

func TestService_Explain(t *testing.T) {
	f := newFixture(t, config.BackendStore)
	req := &models.SearchRequest{Query: "dome", Filters: &models.FilterSet{SeasonalMonth: 14}}

	e, err := f.svc.Explain(req, "")
	if err != nil {
		t.Fatal(err)
	}
	if e.Dialect != "cosmos" {
		t.Errorf("dialect: got %s", e.Dialect)
	}
	want := "SELECT * FROM c WHERE c.isActive = true AND (CONTAINS(LOWER(c.name), LOWER(@searchTerm))"
	if !strings.HasPrefix(e.Query.Text, want) {
		t.Errorf("query: got %s", e.Query.Text)
	}
	if !strings.HasSuffix(e.Query.Text, "ORDER BY c.ratings.average DESC OFFSET 0 LIMIT 20") {
		t.Errorf("query should use configured defaults: %s", e.Query.Text)
	}
	if strings.Contains(e.CountQuery.Text, "ORDER BY") {
		t.Errorf("count query should not order: %s", e.CountQuery.Text)
	}
	if len(e.Issues) != 1 || !strings.Contains(e.Issues[0], "14") {
		t.Errorf("issues: got %v", e.Issues)
	}

	pg, err := f.svc.Explain(req, "postgres")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(pg.Query.Text, "$1") || !strings.HasSuffix(pg.Query.Text, "LIMIT 20 OFFSET 0") {
		t.Errorf("postgres query: %s", pg.Query.Text)
	}

	if _, err := f.svc.Explain(req, "oracle"); err == nil {
		t.Error("expected error for unknown dialect")
	}
}

func newTrailInput() *models.Trail {
	return &models.Trail{
		Name:     " Angels Landing ",
		Location: models.TrailLocation{Region: "utah", Park: "Zion"},
		Characteristics: models.TrailCharacteristics{
			Difficulty: models.DifficultyAdvanced, Distance: 8.7, TrailType: models.TrailTypeOutAndBack,
		},
		Safety:  models.TrailSafety{RiskLevel: 4, RequiresPermit: true},
		Ratings: models.TrailRatings{Average: 5, Count: 1000},
	}
}

func TestService_CRUD(t *testing.T) {
	for _, backend := range []string{config.BackendStore, config.BackendBleve} {
		t.Run(backend, func(t *testing.T) {
			f := newFixture(t, backend)
			ctx := context.Background()

			created, err := f.svc.Create(ctx, newTrailInput())
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if created.ID == "" || created.PartitionKey != "utah" || !created.IsActive {
				t.Errorf("unexpected created trail: %+v", created)
			}
			if created.Name != "Angels Landing" {
				t.Errorf("name should be trimmed: %q", created.Name)
			}
			if created.Ratings.Count != 0 || created.Ratings.Average != 0 {
				t.Errorf("new trails start unrated: %+v", created.Ratings)
			}

			res, err := f.svc.Search(ctx, &models.SearchRequest{Query: "angels"})
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Trails) != 1 || res.Trails[0].ID != created.ID {
				t.Errorf("created trail not searchable: %v", names(res.Trails))
			}

			edit := newTrailInput()
			edit.Description = "Chains section."
			edit.Ratings = models.TrailRatings{}
			updated, err := f.svc.Update(ctx, created.ID, "utah", edit)
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if updated.Description != "Chains section." || updated.CreatedAt.IsZero() {
				t.Errorf("unexpected update: %+v", updated)
			}
			got, err := f.svc.Get(ctx, created.ID, "utah")
			if err != nil {
				t.Fatal(err)
			}
			if got.Description != "Chains section." {
				t.Errorf("update not stored: %+v", got)
			}

			moved := newTrailInput()
			moved.Location.Region = "arizona"
			var ve *models.ValidationError
			if _, err := f.svc.Update(ctx, created.ID, "utah", moved); !errors.As(err, &ve) {
				t.Errorf("region change: expected ValidationError, got %v", err)
			}

			if err := f.svc.Delete(ctx, created.ID, "utah"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := f.svc.Get(ctx, created.ID, "utah"); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Get after delete: %v", err)
			}
			res, err = f.svc.Search(ctx, &models.SearchRequest{Query: "angels"})
			if err != nil {
				t.Fatal(err)
			}
			if res.Total != 0 {
				t.Errorf("deleted trail still searchable: %v", names(res.Trails))
			}
			if err := f.svc.Delete(ctx, created.ID, "utah"); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("second Delete: %v", err)
			}
		})
	}
}

func TestService_CreateValidates(t *testing.T) {
	f := newFixture(t, config.BackendStore)
	bad := newTrailInput()
	bad.Characteristics.Distance = 0
	var ve *models.ValidationError
	if _, err := f.svc.Create(context.Background(), bad); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestService_UpdateRating(t *testing.T) {
	f := newFixture(t, config.BackendStore)
	ctx := context.Background()

	got, err := f.svc.UpdateRating(ctx, "bear", "colorado", 5)
	if err != nil {
		t.Fatalf("UpdateRating: %v", err)
	}
	// (3.8*3 + 5) / 4 = 4.1
	if got.Ratings.Average != 4.1 || got.Ratings.Count != 4 {
		t.Errorf("ratings: got %+v", got.Ratings)
	}
	got, err = f.svc.UpdateRating(ctx, "bear", "colorado", 4)
	if err != nil {
		t.Fatal(err)
	}
	// (4.1*4 + 4) / 5 = 4.08
	if got.Ratings.Average != 4.08 || got.Ratings.Breakdown["5"] != 1 || got.Ratings.Breakdown["4"] != 1 {
		t.Errorf("ratings: got %+v", got.Ratings)
	}

	stored, err := f.svc.Get(ctx, "bear", "colorado")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Ratings.Count != 5 {
		t.Errorf("stored count: got %d", stored.Ratings.Count)
	}

	var ve *models.ValidationError
	if _, err := f.svc.UpdateRating(ctx, "bear", "colorado", 6); !errors.As(err, &ve) {
		t.Errorf("rating 6: expected ValidationError, got %v", err)
	}
	if _, err := f.svc.UpdateRating(ctx, "nope", "colorado", 3); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing trail: got %v", err)
	}
}

func TestService_DeactivateReactivate(t *testing.T) {
	for _, backend := range []string{config.BackendStore, config.BackendBleve} {
		t.Run(backend, func(t *testing.T) {
			f := newFixture(t, backend)
			ctx := context.Background()
			if _, err := f.svc.Deactivate(ctx, "dome", "california"); err != nil {
				t.Fatal(err)
			}
			res, err := f.svc.FindByRegion(ctx, "california", 0, 0)
			if err != nil {
				t.Fatal(err)
			}
			if want := []string{"Mist Trail"}; !reflect.DeepEqual(names(res.Trails), want) {
				t.Errorf("after deactivate: got %v", names(res.Trails))
			}
			if _, err := f.svc.Reactivate(ctx, "dome", "california"); err != nil {
				t.Fatal(err)
			}
			res, err = f.svc.FindByRegion(ctx, "california", 0, 0)
			if err != nil {
				t.Fatal(err)
			}
			if res.Total != 2 {
				t.Errorf("after reactivate: got %v", names(res.Trails))
			}
		})
	}
}

func TestService_Listings(t *testing.T) {
	f := newFixture(t, config.BackendStore)
	ctx := context.Background()

	top, err := f.svc.FindTopRated(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Half Dome", "Mist Trail", "Easy Meadow", "Lake Loop"}; !reflect.DeepEqual(names(top), want) {
		t.Errorf("FindTopRated: got %v, want %v", names(top), want)
	}
	top, err = f.svc.FindTopRated(ctx, "colorado", 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Easy Meadow"}; !reflect.DeepEqual(names(top), want) {
		t.Errorf("FindTopRated(colorado, 1): got %v", names(top))
	}

	byPark, err := f.svc.FindByPark(ctx, "Yosemite", 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Half Dome", "Mist Trail"}; !reflect.DeepEqual(names(byPark), want) {
		t.Errorf("FindByPark: got %v", names(byPark))
	}

	byDifficulty, err := f.svc.FindByDifficulty(ctx, models.DifficultyBeginner, 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Easy Meadow", "Lake Loop"}; !reflect.DeepEqual(names(byDifficulty), want) {
		t.Errorf("FindByDifficulty: got %v", names(byDifficulty))
	}

	rec, err := f.svc.FindRecommended(ctx, Recommendation{FitnessLevel: models.DifficultyBeginner, MaxDistance: 10})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"Lake Loop"}; !reflect.DeepEqual(names(rec), want) {
		t.Errorf("FindRecommended: got %v", names(rec))
	}

	var ve *models.ValidationError
	if _, err := f.svc.FindRecommended(ctx, Recommendation{FitnessLevel: "elite"}); !errors.As(err, &ve) {
		t.Errorf("unknown fitness level: got %v", err)
	}
	if _, err := f.svc.FindByRegion(ctx, "", 0, 10); !errors.As(err, &ve) {
		t.Errorf("empty region: got %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

const importedTrails = `[
  {"name": "Emerald Lake", "location": {"region": "colorado", "park": "Rocky Mountain"},
   "characteristics": {"difficulty": "beginner", "distance": 5.1, "trailType": "out-and-back"},
   "safety": {"riskLevel": 1}},
  {"name": "Sky Pond", "location": {"region": "colorado", "park": "Rocky Mountain"},
   "characteristics": {"difficulty": "advanced", "distance": 14.5, "trailType": "out-and-back"},
   "safety": {"riskLevel": 3}},
  {"name": "x", "location": {"region": "colorado"}}
]`

func TestService_ImportFile(t *testing.T) {
	for _, backend := range []string{config.BackendStore, config.BackendBleve} {
		t.Run(backend, func(t *testing.T) {
			f := newFixture(t, backend)
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "rocky.json")
			writeFile(t, path, importedTrails)

			report, err := f.svc.ImportFile(ctx, path, nil)
			if err != nil {
				t.Fatalf("ImportFile: %v", err)
			}
			if report.Imported != 2 || len(report.Skipped) != 1 || report.Removed != 0 {
				t.Errorf("unexpected report: %+v", report)
			}

			res, err := f.svc.Search(ctx, &models.SearchRequest{Filters: &models.FilterSet{Park: "Rocky Mountain"},
				SortBy: models.SortByName, SortOrder: models.SortAsc})
			if err != nil {
				t.Fatal(err)
			}
			if want := []string{"Easy Meadow", "Emerald Lake", "Lake Loop", "Sky Pond"}; !reflect.DeepEqual(names(res.Trails), want) {
				t.Errorf("after import: got %v", names(res.Trails))
			}

			// Re-importing is idempotent.
			if report, err = f.svc.ImportFile(ctx, path, nil); err != nil || report.Imported != 2 {
				t.Fatalf("re-import: %+v, %v", report, err)
			}
			stats, err := f.svc.Stats(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if stats.Trails != 8 {
				t.Errorf("re-import should not duplicate: %d trails", stats.Trails)
			}

			// Trails dropped from the file are removed.
			writeFile(t, path, `[{"name": "Emerald Lake", "location": {"region": "colorado"},
				"characteristics": {"difficulty": "beginner", "distance": 5.1, "trailType": "out-and-back"},
				"safety": {"riskLevel": 1}}]`)
			report, err = f.svc.ImportFile(ctx, path, nil)
			if err != nil {
				t.Fatal(err)
			}
			if report.Imported != 1 || report.Removed != 1 {
				t.Errorf("unexpected report after shrink: %+v", report)
			}

			n, err := f.svc.RemoveSource(ctx, path)
			if err != nil {
				t.Fatal(err)
			}
			if n != 1 {
				t.Errorf("RemoveSource: got %d", n)
			}
			res, err = f.svc.Search(ctx, &models.SearchRequest{Query: "emerald"})
			if err != nil {
				t.Fatal(err)
			}
			if res.Total != 0 {
				t.Errorf("removed source still searchable: %v", names(res.Trails))
			}
		})
	}
}

func TestService_ImportFileKeepsTrailsOwnedElsewhere(t *testing.T) {
	f := newFixture(t, config.BackendStore)
	ctx := context.Background()
	dir := t.TempDir()
	trailJSON := func(id, name, region string) string {
		return `{"id": "` + id + `", "name": "` + name + `", "location": {"region": "` + region + `"},
			"characteristics": {"difficulty": "beginner", "distance": 3, "trailType": "loop"},
			"safety": {"riskLevel": 1}}`
	}

	first := filepath.Join(dir, "first.json")
	writeFile(t, first, "["+trailJSON("mist", "Mist Copy", "california")+","+trailJSON("shared", "Shared Loop", "colorado")+"]")
	report, err := f.svc.ImportFile(ctx, first, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Imported != 1 || len(report.Skipped) != 1 || !strings.Contains(report.Skipped[0], `"mist"`) {
		t.Errorf("trail created outside imports should be skipped: %+v", report)
	}
	mist, err := f.svc.Get(ctx, "mist", "california")
	if err != nil {
		t.Fatal(err)
	}
	if mist.Name != "Mist Trail" || mist.Source != "" {
		t.Errorf("existing trail was overwritten: %+v", mist)
	}

	second := filepath.Join(dir, "second.json")
	writeFile(t, second, "["+trailJSON("shared", "Shared Loop Again", "colorado")+"]")
	report, err = f.svc.ImportFile(ctx, second, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Imported != 0 || len(report.Skipped) != 1 || !strings.Contains(report.Skipped[0], first) {
		t.Errorf("trail owned by another file should be skipped: %+v", report)
	}
	if n, err := f.svc.RemoveSource(ctx, second); err != nil || n != 0 {
		t.Errorf("RemoveSource(second) = %d, %v", n, err)
	}
	shared, err := f.svc.Get(ctx, "shared", "colorado")
	if err != nil {
		t.Fatal(err)
	}
	if shared.Name != "Shared Loop" || shared.Source != first {
		t.Errorf("shared trail should still belong to the first file: %+v", shared)
	}
	if n, err := f.svc.RemoveSource(ctx, first); err != nil || n != 1 {
		t.Errorf("RemoveSource(first) = %d, %v", n, err)
	}
}

func TestService_ImportFileErrors(t *testing.T) {
	f := newFixture(t, config.BackendStore)
	ctx := context.Background()
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.txt")
	writeFile(t, txt, "hello")
	if _, err := f.svc.ImportFile(ctx, txt, []string{".json"}); err == nil {
		t.Error("expected error for disallowed extension")
	}
	if _, err := f.svc.ImportFile(ctx, filepath.Join(dir, "missing.json"), nil); err == nil {
		t.Error("expected error for missing file")
	}
	broken := filepath.Join(dir, "broken.yaml")
	writeFile(t, broken, "name: [")
	if _, err := f.svc.ImportFile(ctx, broken, nil); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestService_ImportDirectory(t *testing.T) {
	f := newFixture(t, config.BackendStore)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "rocky.json"), importedTrails)
	writeFile(t, filepath.Join(dir, "nested", "zion.yaml"), `
- name: Angels Landing
  location: {region: utah, park: Zion}
  characteristics: {difficulty: advanced, distance: 8.7, trailType: out-and-back}
  safety: {riskLevel: 4, requiresPermit: true}
`)
	writeFile(t, filepath.Join(dir, "readme.md"), "# trails")

	reports, err := f.svc.ImportDirectory(context.Background(), dir, []string{".json", ".yaml"})
	if err != nil {
		t.Fatalf("ImportDirectory: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	total := 0
	for _, r := range reports {
		total += r.Imported
	}
	if total != 3 {
		t.Errorf("imported %d trails, want 3", total)
	}

	if _, err := f.svc.ImportDirectory(context.Background(), filepath.Join(dir, "readme.md"), nil); err == nil {
		t.Error("expected error for non-directory")
	}
}

func TestService_Reindex(t *testing.T) {
	f := newFixture(t, config.BackendBleve)
	ctx := context.Background()

	dir := t.TempDir()
	fresh, err := keyword.NewTrailIndex(filepath.Join(dir, "fresh"))
	if err != nil {
		t.Fatal(err)
	}
	defer fresh.Close()
	svc := NewService(f.store, f.svc.config, WithIndex(fresh))

	n, err := svc.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if n != 6 {
		t.Errorf("Reindex: got %d trails, want 6", n)
	}
	count, ok, err := svc.IndexedTrails()
	if err != nil || !ok || count != 6 {
		t.Errorf("IndexedTrails: %d %v %v", count, ok, err)
	}

	if _, err := NewService(f.store, nil).Reindex(ctx); err == nil {
		t.Error("expected error without index")
	}
}

func TestService_Load(t *testing.T) {
	f := newFixture(t, config.BackendBleve)
	ctx := context.Background()

	generated := seed.NewGenerator(11).Trails(25)
	n, err := f.svc.Load(ctx, generated)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n != 25 {
		t.Errorf("Load: got %d, want 25", n)
	}
	stats, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Trails != 31 {
		t.Errorf("stats: %d trails, want 31", stats.Trails)
	}
	indexed, _, err := f.svc.IndexedTrails()
	if err != nil || indexed != 31 {
		t.Errorf("indexed %d trails (err %v), want 31", indexed, err)
	}
	got, err := f.svc.Get(ctx, generated[0].ID, generated[0].Location.Region)
	if err != nil {
		t.Fatalf("Get seeded trail: %v", err)
	}
	if got.Ratings.Count != generated[0].Ratings.Count {
		t.Errorf("Load should keep ratings: %d vs %d", got.Ratings.Count, generated[0].Ratings.Count)
	}

	bad := seed.NewGenerator(12).Trails(2)
	bad[1].Safety.RiskLevel = 9
	if _, err := f.svc.Load(ctx, bad); err == nil {
		t.Error("expected validation error")
	}
	if _, err := f.svc.Get(ctx, bad[0].ID, bad[0].Location.Region); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("nothing should be written when a trail is invalid, got %v", err)
	}
}
