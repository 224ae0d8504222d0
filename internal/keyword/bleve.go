// Package keyword provides a Bleve index of trails that answers the same query plans as the
// document stores.
package keyword

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/hyperjump/hikeplanner/internal/models"
	"github.com/hyperjump/hikeplanner/internal/query"
)

const trailType = "trail"

// indexedTrail is the flattened form of a trail that Bleve indexes. String fields used for
// substring matching are lower-cased; Doc keeps the original document for retrieval.
type indexedTrail struct {
	Name             string    `json:"name"`
	NameLower        string    `json:"name_lc"`
	DescriptionLower string    `json:"description_lc"`
	Park             string    `json:"park"`
	ParkLower        string    `json:"park_lc"`
	Region           string    `json:"region"`
	RegionLower      string    `json:"region_lc"`
	Difficulty       string    `json:"difficulty"`
	DifficultyRank   float64   `json:"difficulty_rank"`
	Distance         float64   `json:"distance"`
	DurationMin      float64   `json:"duration_min"`
	DurationMax      float64   `json:"duration_max"`
	ElevationGain    float64   `json:"elevation_gain"`
	TrailType        string    `json:"trail_type"`
	ScenicViews      bool      `json:"scenic_views"`
	WaterFeatures    bool      `json:"water_features"`
	Wildlife         []string  `json:"wildlife"`
	WildlifeCount    float64   `json:"wildlife_count"`
	AccessibleMonths []float64 `json:"accessible_months"`
	RiskLevel        float64   `json:"risk_level"`
	RequiresPermit   bool      `json:"requires_permit"`
	Parking          bool      `json:"parking"`
	Restrooms        bool      `json:"restrooms"`
	Camping          bool      `json:"camping"`
	DrinkingWater    bool      `json:"drinking_water"`
	RatingAverage    float64   `json:"rating_average"`
	RatingCount      float64   `json:"rating_count"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	Doc              string    `json:"doc"`
}

// BleveType implements mapping.Classifier.
func (indexedTrail) BleveType() string { return trailType }

func flatten(t *models.Trail) (*indexedTrail, error) {
	doc, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trail: %w", err)
	}
	months := make([]float64, len(t.Features.Seasonality.AccessibleMonths))
	for i, m := range t.Features.Seasonality.AccessibleMonths {
		months[i] = float64(m)
	}
	return &indexedTrail{
		Name:             t.Name,
		NameLower:        query.Lower(t.Name),
		DescriptionLower: query.Lower(t.Description),
		Park:             t.Location.Park,
		ParkLower:        query.Lower(t.Location.Park),
		Region:           t.Location.Region,
		RegionLower:      query.Lower(t.Location.Region),
		Difficulty:       string(t.Characteristics.Difficulty),
		DifficultyRank:   float64(t.Characteristics.Difficulty.Rank()),
		Distance:         t.Characteristics.Distance,
		DurationMin:      t.Characteristics.Duration.Min,
		DurationMax:      t.Characteristics.Duration.Max,
		ElevationGain:    t.Characteristics.ElevationGain,
		TrailType:        string(t.Characteristics.TrailType),
		ScenicViews:      t.Features.ScenicViews,
		WaterFeatures:    t.Features.WaterFeatures,
		Wildlife:         t.Features.Wildlife,
		WildlifeCount:    float64(len(t.Features.Wildlife)),
		AccessibleMonths: months,
		RiskLevel:        float64(t.Safety.RiskLevel),
		RequiresPermit:   t.Safety.RequiresPermit,
		Parking:          t.Amenities.Parking,
		Restrooms:        t.Amenities.Restrooms,
		Camping:          t.Amenities.Camping,
		DrinkingWater:    t.Amenities.DrinkingWater,
		RatingAverage:    t.Ratings.Average,
		RatingCount:      float64(t.Ratings.Count),
		IsActive:         t.IsActive,
		CreatedAt:        t.CreatedAt,
		Doc:              string(doc),
	}, nil
}

func newIndexMapping() mapping.IndexMapping {
	keyword := bleve.NewKeywordFieldMapping()
	numeric := bleve.NewNumericFieldMapping()
	boolean := bleve.NewBooleanFieldMapping()
	datetime := bleve.NewDateTimeFieldMapping()
	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.Store = true
	stored.IncludeInAll = false

	dm := bleve.NewDocumentStaticMapping()
	for _, f := range []string{"name", "name_lc", "description_lc", "park", "park_lc", "region", "region_lc",
		"difficulty", "trail_type", "wildlife"} {
		dm.AddFieldMappingsAt(f, keyword)
	}
	for _, f := range []string{"difficulty_rank", "distance", "duration_min", "duration_max", "elevation_gain",
		"wildlife_count", "accessible_months", "risk_level", "rating_average", "rating_count"} {
		dm.AddFieldMappingsAt(f, numeric)
	}
	for _, f := range []string{"scenic_views", "water_features", "requires_permit", "parking", "restrooms",
		"camping", "drinking_water", "is_active"} {
		dm.AddFieldMappingsAt(f, boolean)
	}
	dm.AddFieldMappingsAt("created_at", datetime)
	dm.AddFieldMappingsAt("doc", stored)

	im := bleve.NewIndexMapping()
	im.AddDocumentMapping(trailType, dm)
	im.DefaultType = trailType
	im.DefaultMapping = dm
	return im
}

// TrailIndex is a Bleve index of trails.
type TrailIndex struct {
	index bleve.Index
}

// NewTrailIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewTrailIndex(path string) (*TrailIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &TrailIndex{index: index}, nil
	}

	index, err := bleve.New(path, newIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &TrailIndex{index: index}, nil
}

func docID(id, partitionKey string) string {
	return partitionKey + "/" + id
}

// Index adds or replaces a trail.
func (x *TrailIndex) Index(ctx context.Context, t *models.Trail) error {
	doc, err := flatten(t)
	if err != nil {
		return err
	}
	if err := x.index.Index(docID(t.ID, t.PartitionKey), doc); err != nil {
		return fmt.Errorf("failed to index trail %s: %w", t.ID, err)
	}
	return nil
}

// IndexBatch adds or replaces several trails in one batch.
func (x *TrailIndex) IndexBatch(ctx context.Context, trails []*models.Trail) error {
	batch := x.index.NewBatch()
	for _, t := range trails {
		doc, err := flatten(t)
		if err != nil {
			return err
		}
		if err := batch.Index(docID(t.ID, t.PartitionKey), doc); err != nil {
			return fmt.Errorf("failed to batch trail %s: %w", t.ID, err)
		}
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index batch: %w", err)
	}
	return nil
}

// Delete removes a trail. Deleting a trail that is not indexed is not an error.
func (x *TrailIndex) Delete(ctx context.Context, id, partitionKey string) error {
	return x.index.Delete(docID(id, partitionKey))
}

// Find runs a data plan and returns the matching trails in plan order.
func (x *TrailIndex) Find(ctx context.Context, plan query.Plan) ([]*models.Trail, error) {
	q, err := compileWhere(plan)
	if err != nil {
		return nil, err
	}
	req := bleve.NewSearchRequest(q)
	req.Fields = []string{"doc"}
	req.Size = models.MaxSearchLimit
	if plan.Page != nil {
		req.From = plan.Page.Offset
		req.Size = plan.Page.Limit
	}
	if plan.Sort != nil {
		req.SortBy(sortOrder(*plan.Sort))
	}

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	trails := make([]*models.Trail, 0, len(res.Hits))
	for _, hit := range res.Hits {
		raw, ok := hit.Fields["doc"].(string)
		if !ok {
			return nil, fmt.Errorf("hit %s has no stored document", hit.ID)
		}
		var t models.Trail
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trail: %w", err)
		}
		trails = append(trails, &t)
	}
	return trails, nil
}

// Count returns the number of trails matching the plan predicates.
func (x *TrailIndex) Count(ctx context.Context, plan query.Plan) (int, error) {
	q, err := compileWhere(plan)
	if err != nil {
		return 0, err
	}
	req := bleve.NewSearchRequest(q)
	req.Size = 0
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("Bleve count failed: %w", err)
	}
	return int(res.Total), nil
}

// DocCount returns the total number of indexed trails, active or not.
func (x *TrailIndex) DocCount() (uint64, error) {
	return x.index.DocCount()
}

// Close closes the Bleve index.
func (x *TrailIndex) Close() error {
	return x.index.Close()
}
