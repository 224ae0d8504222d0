// Package trails provides trail search, maintenance and import on top of a document store
// and an optional Bleve index.
package trails

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/hikeplanner/internal/config"
	"github.com/hyperjump/hikeplanner/internal/importer"
	"github.com/hyperjump/hikeplanner/internal/keyword"
	"github.com/hyperjump/hikeplanner/internal/models"
	"github.com/hyperjump/hikeplanner/internal/query"
	"github.com/hyperjump/hikeplanner/internal/storage"
)

// minTopRatedCount is the smallest rating count a trail needs to be listed as top rated.
const minTopRatedCount = 6

// Searcher executes query plans. Both the document stores and the Bleve index implement it.
type Searcher interface {
	Find(ctx context.Context, plan query.Plan) ([]*models.Trail, error)
	Count(ctx context.Context, plan query.Plan) (int, error)
}

// Service searches and maintains trails.
type Service struct {
	store  storage.Store
	index  *keyword.TrailIndex
	parser *importer.Parser
	config *config.SearchConfig
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Builder issues and import progress are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIndex keeps idx in sync with every write. Searches use it when the backend is bleve.
func WithIndex(idx *keyword.TrailIndex) Option {
	return func(s *Service) { s.index = idx }
}

// NewService creates a service over store. cfg may be nil, in which case defaults apply.
func NewService(store storage.Store, cfg *config.SearchConfig, opts ...Option) *Service {
	if cfg == nil {
		c := config.Config{}
		config.ApplyDefaults(&c)
		cfg = &c.Search
	}
	s := &Service{
		store:  store,
		parser: importer.NewParser(),
		config: cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) searcher() Searcher {
	if s.config.Backend == config.BackendBleve && s.index != nil {
		return s.index
	}
	return s.store
}

// prepare copies req, fills configured defaults, caps the limit and validates the result.
func (s *Service) prepare(req *models.SearchRequest) (*models.SearchRequest, error) {
	r := models.SearchRequest{}
	if req != nil {
		r = *req
	}
	if r.SortBy == "" {
		r.SortBy = models.SortField(s.config.DefaultSort)
	}
	if r.SortOrder == "" {
		r.SortOrder = models.SortOrder(s.config.DefaultOrder)
	}
	limit := r.LimitOr(s.config.DefaultLimit)
	if s.config.MaxLimit > 0 && limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}
	r.Limit = &limit
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Search runs a structured trail search and returns one page of results with the total
// number of matches.
func (s *Service) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResult, error) {
	r, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	b := query.FromRequest(r, s.config.DefaultLimit)
	if issues := b.Issues(); len(issues) > 0 {
		s.logger.Debug("search filters ignored", zap.Errors("issues", issues))
	}
	return s.run(ctx, b)
}

// run executes the data and count plans of b concurrently.
func (s *Service) run(ctx context.Context, b *query.Builder) (*models.SearchResult, error) {
	plan, countPlan := b.Plan(), b.CountPlan()
	searcher := s.searcher()

	var trails []*models.Trail
	var total int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trails, err = searcher.Find(gctx, plan)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = searcher.Count(gctx, countPlan)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if trails == nil {
		trails = []*models.Trail{}
	}

	res := &models.SearchResult{Trails: trails, Total: total}
	if plan.Page != nil {
		res.Offset, res.Limit = plan.Page.Offset, plan.Page.Limit
	}
	res.HasMore = res.Offset+len(trails) < total
	return res, nil
}

// find runs only the data plan of b.
func (s *Service) find(ctx context.Context, b *query.Builder) ([]*models.Trail, error) {
	trails, err := s.searcher().Find(ctx, b.Plan())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return trails, nil
}

func orDefault(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

// Explanation is the rendered form of a search, for debugging.
type Explanation struct {
	Dialect    string           `json:"dialect"`
	Query      query.Descriptor `json:"query"`
	CountQuery query.Descriptor `json:"countQuery"`
	Summary    query.Summary    `json:"summary"`
	Issues     []string         `json:"issues,omitempty"`
}

// Explain renders the queries a search would run in the named dialect without running them.
// An empty dialect selects the canonical document-store form.
func (s *Service) Explain(req *models.SearchRequest, dialect string) (*Explanation, error) {
	d, err := query.DialectByName(dialect)
	if err != nil {
		return nil, &models.ValidationError{Field: "dialect", Reason: err.Error()}
	}
	r, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	b := query.FromRequest(r, s.config.DefaultLimit)
	e := &Explanation{
		Dialect:    d.Name(),
		Query:      query.Render(b.Plan(), d),
		CountQuery: query.Render(b.CountPlan(), d),
		Summary:    b.Summary(),
	}
	for _, issue := range b.Issues() {
		e.Issues = append(e.Issues, issue.Error())
	}
	return e, nil
}

// Create stores a new trail. The trail gets a fresh ID, its region as partition key and
// starts active with no ratings.
func (s *Service) Create(ctx context.Context, t *models.Trail) (*models.Trail, error) {
	t.ID = uuid.NewString()
	t.Normalize()
	t.PartitionKey = t.Location.Region
	t.IsActive = true
	t.Ratings = models.TrailRatings{Breakdown: map[string]int{}}
	t.Source = ""
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	if err := s.indexTrail(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Debug("trail created", zap.String("id", t.ID), zap.String("region", t.PartitionKey))
	return t, nil
}

// Get returns a trail, active or not.
func (s *Service) Get(ctx context.Context, id, region string) (*models.Trail, error) {
	return s.store.Get(ctx, id, region)
}

// Update replaces the editable fields of a trail. Identity, ratings, activation, source
// and creation time are kept. The region cannot change because it is the partition key.
func (s *Service) Update(ctx context.Context, id, region string, t *models.Trail) (*models.Trail, error) {
	current, err := s.store.Get(ctx, id, region)
	if err != nil {
		return nil, err
	}
	t.Normalize()
	if t.Location.Region == "" {
		t.Location.Region = current.Location.Region
	}
	if t.Location.Region != current.Location.Region {
		return nil, &models.ValidationError{Field: "location.region", Reason: "cannot be changed"}
	}
	t.ID, t.PartitionKey = current.ID, current.PartitionKey
	t.Ratings = current.Ratings
	t.IsActive = current.IsActive
	t.Source = current.Source
	t.CreatedAt = current.CreatedAt
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return s.replace(ctx, t)
}

func (s *Service) replace(ctx context.Context, t *models.Trail) (*models.Trail, error) {
	if err := s.store.Replace(ctx, t); err != nil {
		return nil, err
	}
	if err := s.indexTrail(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a trail from the store and the index.
func (s *Service) Delete(ctx context.Context, id, region string) error {
	if err := s.store.Delete(ctx, id, region); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, id, region); err != nil {
			return fmt.Errorf("failed to delete trail from index: %w", err)
		}
	}
	s.logger.Debug("trail deleted", zap.String("id", id), zap.String("region", region))
	return nil
}

func (s *Service) indexTrail(ctx context.Context, t *models.Trail) error {
	if s.index == nil {
		return nil
	}
	if err := s.index.Index(ctx, t); err != nil {
		return fmt.Errorf("failed to index trail: %w", err)
	}
	return nil
}

// FindByRegion returns active trails of a region, best rated first.
func (s *Service) FindByRegion(ctx context.Context, region string, offset, limit int) (*models.SearchResult, error) {
	if region == "" {
		return nil, &models.ValidationError{Field: "region", Reason: "is required"}
	}
	b := query.NewBuilder().
		WithRegion(region).
		SortBy(models.SortByRating, models.SortDesc).
		WithPagination(offset, orDefault(limit, s.config.DefaultLimit))
	return s.run(ctx, b)
}

// FindByDifficulty returns active trails of one difficulty level, best rated first.
func (s *Service) FindByDifficulty(ctx context.Context, d models.Difficulty, limit int) ([]*models.Trail, error) {
	if !d.Valid() {
		return nil, &models.ValidationError{Field: "difficulty", Reason: fmt.Sprintf("unknown difficulty %q", d)}
	}
	b := query.NewBuilder().
		WithDifficulty([]models.Difficulty{d}).
		SortBy(models.SortByRating, models.SortDesc).
		WithPagination(0, orDefault(limit, s.config.DefaultLimit))
	return s.find(ctx, b)
}

// FindByPark returns active trails of a park, best rated first.
func (s *Service) FindByPark(ctx context.Context, park string, limit int) ([]*models.Trail, error) {
	if park == "" {
		return nil, &models.ValidationError{Field: "park", Reason: "is required"}
	}
	b := query.NewBuilder().
		WithPark(park).
		SortBy(models.SortByRating, models.SortDesc).
		WithPagination(0, orDefault(limit, s.config.DefaultLimit))
	return s.find(ctx, b)
}

// FindTopRated returns the best rated trails with more than five ratings, optionally in one region.
func (s *Service) FindTopRated(ctx context.Context, region string, limit int) ([]*models.Trail, error) {
	b := query.NewBuilder().
		WithMinimumRatingCount(minTopRatedCount).
		WithRegion(region).
		SortBy(models.SortByRating, models.SortDesc).
		WithPagination(0, orDefault(limit, 10))
	return s.find(ctx, b)
}

// Recommendation describes what a hiker is looking for.
type Recommendation struct {
	FitnessLevel models.Difficulty `json:"fitnessLevel"`
	MaxDistance  float64           `json:"maxDistance,omitempty"`
	Features     []string          `json:"features,omitempty"`
	Region       string            `json:"region,omitempty"`
	Limit        int               `json:"limit,omitempty"`
}

// FindRecommended returns trails matching a hiker's fitness level, best rated first.
func (s *Service) FindRecommended(ctx context.Context, rec Recommendation) ([]*models.Trail, error) {
	if !rec.FitnessLevel.Valid() {
		return nil, &models.ValidationError{Field: "fitnessLevel", Reason: fmt.Sprintf("unknown difficulty %q", rec.FitnessLevel)}
	}
	b := query.NewBuilder().
		WithDifficulty([]models.Difficulty{rec.FitnessLevel}).
		WithFeatures(rec.Features).
		WithRegion(rec.Region).
		SortBy(models.SortByRating, models.SortDesc).
		WithPagination(0, orDefault(rec.Limit, 10))
	if rec.MaxDistance > 0 {
		b.WithDistanceRange(nil, &rec.MaxDistance)
	}
	return s.find(ctx, b)
}

// UpdateRating folds one new rating (1 to 5) into the running average, rounded to two
// decimals, and the per-star breakdown.
func (s *Service) UpdateRating(ctx context.Context, id, region string, rating int) (*models.Trail, error) {
	if rating < 1 || rating > 5 {
		return nil, &models.ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}
	t, err := s.store.Get(ctx, id, region)
	if err != nil {
		return nil, err
	}
	r := &t.Ratings
	count := r.Count + 1
	avg := (r.Average*float64(r.Count) + float64(rating)) / float64(count)
	r.Average = math.Round(avg*100) / 100
	r.Count = count
	if r.Breakdown == nil {
		r.Breakdown = map[string]int{}
	}
	r.Breakdown[strconv.Itoa(rating)]++
	return s.replace(ctx, t)
}

// Deactivate hides a trail from searches without deleting it.
func (s *Service) Deactivate(ctx context.Context, id, region string) (*models.Trail, error) {
	return s.setActive(ctx, id, region, false)
}

// Reactivate makes a deactivated trail searchable again.
func (s *Service) Reactivate(ctx context.Context, id, region string) (*models.Trail, error) {
	return s.setActive(ctx, id, region, true)
}

func (s *Service) setActive(ctx context.Context, id, region string, active bool) (*models.Trail, error) {
	t, err := s.store.Get(ctx, id, region)
	if err != nil {
		return nil, err
	}
	t.IsActive = active
	return s.replace(ctx, t)
}

// Stats returns store statistics.
func (s *Service) Stats(ctx context.Context) (*storage.Stats, error) {
	return s.store.Stats(ctx)
}

// IndexedTrails returns the number of trails in the Bleve index, or false without one.
func (s *Service) IndexedTrails() (uint64, bool, error) {
	if s.index == nil {
		return 0, false, nil
	}
	n, err := s.index.DocCount()
	return n, true, err
}

// Reindex rebuilds the Bleve index from every stored trail, active or not.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, errors.New("no search index configured")
	}
	all, err := s.store.Find(ctx, query.Plan{})
	if err != nil {
		return 0, err
	}
	if err := s.index.IndexBatch(ctx, all); err != nil {
		return 0, err
	}
	s.logger.Info("search index rebuilt", zap.Int("trails", len(all)))
	return len(all), nil
}

// Load upserts prepared trails as they are, keeping their IDs, ratings and activation, and
// indexes them in one batch. Every trail is validated before anything is written.
func (s *Service) Load(ctx context.Context, trails []*models.Trail) (int, error) {
	for i, t := range trails {
		t.Normalize()
		t.PartitionKey = t.Location.Region
		if t.ID == "" {
			return 0, &models.ValidationError{Field: "id", Reason: fmt.Sprintf("trail %d has no id", i+1)}
		}
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("trail %d: %w", i+1, err)
		}
	}
	for _, t := range trails {
		if err := s.store.Upsert(ctx, t); err != nil {
			return 0, err
		}
	}
	if s.index != nil && len(trails) > 0 {
		if err := s.index.IndexBatch(ctx, trails); err != nil {
			return 0, fmt.Errorf("failed to index trails: %w", err)
		}
	}
	s.logger.Info("trails loaded", zap.Int("trails", len(trails)))
	return len(trails), nil
}
