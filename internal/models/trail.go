// Package models holds the trail document and search request types shared by all packages.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is a trail difficulty level.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

// Difficulties lists all difficulty levels from easiest to hardest.
var Difficulties = []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyExpert}

// Rank returns the ordinal of d (beginner=1 … expert=4), or 5 for unknown values.
func (d Difficulty) Rank() int {
	for i, known := range Difficulties {
		if d == known {
			return i + 1
		}
	}
	return len(Difficulties) + 1
}

// Valid reports whether d is a known difficulty level.
func (d Difficulty) Valid() bool {
	return d.Rank() <= len(Difficulties)
}

// TrailType is the shape of a trail route.
type TrailType string

const (
	TrailTypeLoop         TrailType = "loop"
	TrailTypeOutAndBack   TrailType = "out-and-back"
	TrailTypePointToPoint TrailType = "point-to-point"
	TrailTypeShuttle      TrailType = "shuttle"
)

// TrailTypes lists all trail types.
var TrailTypes = []TrailType{TrailTypeLoop, TrailTypeOutAndBack, TrailTypePointToPoint, TrailTypeShuttle}

// Valid reports whether t is a known trail type.
func (t TrailType) Valid() bool {
	for _, known := range TrailTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
}

// Trail is a trail document as stored in the document store.
type Trail struct {
	ID              string               `json:"id" yaml:"id"`
	PartitionKey    string               `json:"partitionKey" yaml:"partitionKey"`
	Name            string               `json:"name" yaml:"name"`
	Description     string               `json:"description" yaml:"description"`
	Location        TrailLocation        `json:"location" yaml:"location"`
	Characteristics TrailCharacteristics `json:"characteristics" yaml:"characteristics"`
	Features        TrailFeatures        `json:"features" yaml:"features"`
	Safety          TrailSafety          `json:"safety" yaml:"safety"`
	Amenities       TrailAmenities       `json:"amenities" yaml:"amenities"`
	Ratings         TrailRatings         `json:"ratings" yaml:"ratings"`
	IsActive        bool                 `json:"isActive" yaml:"isActive"`
	Source          string               `json:"source,omitempty" yaml:"source,omitempty"` // import file path, if any
	CreatedAt       time.Time            `json:"createdAt" yaml:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt" yaml:"updatedAt"`
}

// TrailLocation describes where a trail is.
type TrailLocation struct {
	Region      string           `json:"region" yaml:"region"`
	Park        string           `json:"park" yaml:"park"`
	Country     string           `json:"country" yaml:"country"`
	Coordinates TrailCoordinates `json:"coordinates" yaml:"coordinates"`
}

// TrailCoordinates holds the start, end and intermediate points of a trail.
type TrailCoordinates struct {
	Start     Coordinates   `json:"start" yaml:"start"`
	End       Coordinates   `json:"end" yaml:"end"`
	Waypoints []Coordinates `json:"waypoints" yaml:"waypoints"`
}

// DurationRange is an estimated hiking time in hours.
type DurationRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// TrailCharacteristics are the physical properties of a trail.
type TrailCharacteristics struct {
	Difficulty       Difficulty    `json:"difficulty" yaml:"difficulty"`
	Distance         float64       `json:"distance" yaml:"distance"` // km
	Duration         DurationRange `json:"duration" yaml:"duration"`
	ElevationGain    float64       `json:"elevationGain" yaml:"elevationGain"` // meters
	ElevationProfile []float64     `json:"elevationProfile" yaml:"elevationProfile"`
	TrailType        TrailType     `json:"trailType" yaml:"trailType"`
	Surface          []string      `json:"surface" yaml:"surface"`
}

// TrailFeatures are the points of interest along a trail.
type TrailFeatures struct {
	ScenicViews   bool             `json:"scenicViews" yaml:"scenicViews"`
	WaterFeatures bool             `json:"waterFeatures" yaml:"waterFeatures"`
	Wildlife      []string         `json:"wildlife" yaml:"wildlife"`
	Seasonality   TrailSeasonality `json:"seasonality" yaml:"seasonality"`
}

// TrailSeasonality lists months (1-12) when the trail is best or at all accessible.
type TrailSeasonality struct {
	BestMonths       []int `json:"bestMonths" yaml:"bestMonths"`
	AccessibleMonths []int `json:"accessibleMonths" yaml:"accessibleMonths"`
}

// TrailSafety describes risk and permit requirements.
type TrailSafety struct {
	RiskLevel         int      `json:"riskLevel" yaml:"riskLevel"` // 1-5
	CommonHazards     []string `json:"commonHazards" yaml:"commonHazards"`
	RequiresPermit    bool     `json:"requiresPermit" yaml:"requiresPermit"`
	EmergencyContacts []string `json:"emergencyContacts" yaml:"emergencyContacts"`
}

// TrailAmenities are facilities available at the trailhead.
type TrailAmenities struct {
	Parking       bool `json:"parking" yaml:"parking"`
	Restrooms     bool `json:"restrooms" yaml:"restrooms"`
	Camping       bool `json:"camping" yaml:"camping"`
	DrinkingWater bool `json:"drinkingWater" yaml:"drinkingWater"`
}

// TrailRatings aggregates user ratings. Breakdown maps star value ("1".."5") to count.
type TrailRatings struct {
	Average   float64        `json:"average" yaml:"average"`
	Count     int            `json:"count" yaml:"count"`
	Breakdown map[string]int `json:"breakdown" yaml:"breakdown"`
}

// Normalize fills empty slices and maps so documents serialize with [] instead of null,
// which keeps array predicates in every store dialect well defined.
func (t *Trail) Normalize() {
	if t.Location.Coordinates.Waypoints == nil {
		t.Location.Coordinates.Waypoints = []Coordinates{}
	}
	if t.Characteristics.ElevationProfile == nil {
		t.Characteristics.ElevationProfile = []float64{}
	}
	if t.Characteristics.Surface == nil {
		t.Characteristics.Surface = []string{}
	}
	if t.Features.Wildlife == nil {
		t.Features.Wildlife = []string{}
	}
	if t.Features.Seasonality.BestMonths == nil {
		t.Features.Seasonality.BestMonths = []int{}
	}
	if t.Features.Seasonality.AccessibleMonths == nil {
		t.Features.Seasonality.AccessibleMonths = []int{}
	}
	if t.Safety.CommonHazards == nil {
		t.Safety.CommonHazards = []string{}
	}
	if t.Safety.EmergencyContacts == nil {
		t.Safety.EmergencyContacts = []string{}
	}
	if t.Ratings.Breakdown == nil {
		t.Ratings.Breakdown = map[string]int{}
	}
	t.Location.Region = strings.TrimSpace(t.Location.Region)
	t.Location.Park = strings.TrimSpace(t.Location.Park)
	t.Name = strings.TrimSpace(t.Name)
}

// Validate checks the fields a trail must have before it is stored.
func (t *Trail) Validate() error {
	if len(t.Name) < 3 || len(t.Name) > 200 {
		return &ValidationError{Field: "name", Reason: "must be between 3 and 200 characters"}
	}
	if len(t.Description) > 1000 {
		return &ValidationError{Field: "description", Reason: "must be at most 1000 characters"}
	}
	if t.Location.Region == "" {
		return &ValidationError{Field: "location.region", Reason: "is required"}
	}
	if !t.Characteristics.Difficulty.Valid() {
		return &ValidationError{Field: "characteristics.difficulty", Reason: fmt.Sprintf("unknown difficulty %q", t.Characteristics.Difficulty)}
	}
	if t.Characteristics.Distance < 0.1 || t.Characteristics.Distance > 1000 {
		return &ValidationError{Field: "characteristics.distance", Reason: "must be between 0.1 and 1000 km"}
	}
	if t.Characteristics.ElevationGain < 0 || t.Characteristics.ElevationGain > 10000 {
		return &ValidationError{Field: "characteristics.elevationGain", Reason: "must be between 0 and 10000 m"}
	}
	if !t.Characteristics.TrailType.Valid() {
		return &ValidationError{Field: "characteristics.trailType", Reason: fmt.Sprintf("unknown trail type %q", t.Characteristics.TrailType)}
	}
	for _, m := range t.Features.Seasonality.AccessibleMonths {
		if m < 1 || m > 12 {
			return &ValidationError{Field: "features.seasonality.accessibleMonths", Reason: fmt.Sprintf("month %d out of range", m)}
		}
	}
	if t.Safety.RiskLevel < 1 || t.Safety.RiskLevel > 5 {
		return &ValidationError{Field: "safety.riskLevel", Reason: "must be between 1 and 5"}
	}
	if t.Ratings.Average < 0 || t.Ratings.Average > 5 {
		return &ValidationError{Field: "ratings.average", Reason: "must be between 0 and 5"}
	}
	if t.Ratings.Count < 0 {
		return &ValidationError{Field: "ratings.count", Reason: "must not be negative"}
	}
	return nil
}

// ValidationError reports a request or document field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
