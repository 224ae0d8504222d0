// Package seed generates realistic random trails for demos and local development.
package seed

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/hikeplanner/internal/models"
)

type region struct {
	name       string
	parks      []string
	bestMonths []int
}

var regions = []region{
	{"california", []string{"Yosemite National Park", "Sequoia National Park"}, []int{4, 5, 6, 9, 10}},
	{"utah", []string{"Zion National Park", "Arches National Park", "Canyonlands National Park"}, []int{4, 5, 9, 10}},
	{"arizona", []string{"Grand Canyon National Park"}, []int{3, 4, 10, 11}},
	{"colorado", []string{"Rocky Mountain National Park"}, []int{6, 7, 8, 9}},
	{"montana", []string{"Glacier National Park"}, []int{6, 7, 8}},
	{"washington", []string{"Olympic National Park", "Mount Rainier National Park"}, []int{6, 7, 8, 9}},
	{"oregon", []string{"Crater Lake National Park"}, []int{5, 6, 7, 8, 9}},
}

var trailNames = []string{
	"Mist Trail to Vernal Fall", "Angels Landing", "Half Dome", "Mount Whitney Trail",
	"Bright Angel Trail", "Emerald Lake Trail", "Hidden Lake Overlook", "Cascade Canyon Trail",
	"Delicate Arch Trail", "Observation Point", "The Narrows", "Zion Canyon Overlook",
	"Mesa Arch Trail", "Skyline Trail", "Panorama Trail", "Four Mile Trail",
	"Nevada Fall Trail", "Grinnell Glacier", "Highline Trail", "Mount Elbert Trail",
}

var (
	surfaces  = []string{"rock", "dirt", "paved", "gravel", "stone-steps"}
	wildlife  = []string{"deer", "bears", "eagles", "marmots", "bighorn sheep", "mountain goats", "chipmunks", "ravens"}
	hazards   = []string{"steep cliffs", "river crossings", "loose rock", "altitude", "weather changes", "wildlife encounters"}
	contacts  = []string{"911", "Park Ranger Station"}
	distances = map[models.Difficulty][2]float64{
		models.DifficultyBeginner:     {1, 8},
		models.DifficultyIntermediate: {5, 15},
		models.DifficultyAdvanced:     {10, 25},
		models.DifficultyExpert:       {15, 50},
	}
)

// Generator produces trails from a seedable source. It is not safe for concurrent use.
type Generator struct {
	rnd *rand.Rand
	now func() time.Time
}

// NewGenerator returns a generator. The same seed yields the same trails.
func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed)), now: time.Now}
}

// Trails generates count trails.
func (g *Generator) Trails(count int) []*models.Trail {
	trails := make([]*models.Trail, 0, count)
	for i := 0; i < count; i++ {
		trails = append(trails, g.Trail(i))
	}
	return trails
}

// Trail generates one trail. i disambiguates names once the name list is exhausted.
func (g *Generator) Trail(i int) *models.Trail {
	reg := regions[g.rnd.Intn(len(regions))]
	park := reg.parks[g.rnd.Intn(len(reg.parks))]
	difficulty := models.Difficulties[g.rnd.Intn(len(models.Difficulties))]
	name := trailNames[g.rnd.Intn(len(trailNames))]
	if i >= len(trailNames) {
		name = fmt.Sprintf("%s %d", name, i)
	}
	distance := g.distance(difficulty)
	elevation := g.elevation(difficulty, distance)
	created := g.now().Add(-time.Duration(g.rnd.Intn(365*24)) * time.Hour).UTC()

	t := &models.Trail{
		ID:           g.id(),
		PartitionKey: reg.name,
		Name:         name,
		Description:  describe(name, park, difficulty),
		Location: models.TrailLocation{
			Region:  reg.name,
			Park:    park,
			Country: "USA",
			Coordinates: models.TrailCoordinates{
				Start: g.point(),
				End:   g.point(),
			},
		},
		Characteristics: models.TrailCharacteristics{
			Difficulty:       difficulty,
			Distance:         distance,
			Duration:         models.DurationRange{Min: math.Floor(distance * 0.8), Max: math.Floor(distance * 1.5)},
			ElevationGain:    elevation,
			ElevationProfile: g.profile(distance, elevation),
			TrailType:        models.TrailTypes[g.rnd.Intn(len(models.TrailTypes))],
			Surface:          g.subset(surfaces, 1, 3),
		},
		Features: models.TrailFeatures{
			ScenicViews:   g.rnd.Float64() > 0.3,
			WaterFeatures: g.rnd.Float64() > 0.5,
			Wildlife:      g.subset(wildlife, 0, 4),
			Seasonality: models.TrailSeasonality{
				BestMonths:       append([]int(nil), reg.bestMonths...),
				AccessibleMonths: shoulderMonths(reg.bestMonths),
			},
		},
		Safety: models.TrailSafety{
			RiskLevel:         g.risk(difficulty),
			CommonHazards:     g.subset(hazards, 0, 3),
			RequiresPermit:    g.rnd.Float64() > 0.7,
			EmergencyContacts: append([]string(nil), contacts...),
		},
		Amenities: models.TrailAmenities{
			Parking:       g.rnd.Float64() > 0.2,
			Restrooms:     g.rnd.Float64() > 0.4,
			Camping:       g.rnd.Float64() > 0.6,
			DrinkingWater: g.rnd.Float64() > 0.5,
		},
		Ratings:   g.ratings(),
		IsActive:  g.rnd.Float64() > 0.05,
		CreatedAt: created,
		UpdatedAt: created,
	}
	t.Normalize()
	return t
}

func (g *Generator) id() string {
	id, err := uuid.NewRandomFromReader(g.rnd)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (g *Generator) point() models.Coordinates {
	return models.Coordinates{Longitude: -120 + g.rnd.Float64()*20, Latitude: 32 + g.rnd.Float64()*15}
}

func (g *Generator) distance(d models.Difficulty) float64 {
	r := distances[d]
	return math.Round((g.rnd.Float64()*(r[1]-r[0])+r[0])*10) / 10
}

// elevation is about 50 m per km, scaled by difficulty.
func (g *Generator) elevation(d models.Difficulty, distance float64) float64 {
	scale := float64(d.Rank()) * 0.5
	return math.Floor(distance * 50 * scale * (0.5 + g.rnd.Float64()))
}

// risk is 1-2 for beginner trails up to 4-5 for expert ones.
func (g *Generator) risk(d models.Difficulty) int {
	return d.Rank() + g.rnd.Intn(2)
}

// profile samples two points per km climbing towards gain.
func (g *Generator) profile(distance, gain float64) []float64 {
	points := int(distance * 2)
	if points < 2 {
		return []float64{0, gain}
	}
	out := make([]float64, points)
	for i := 1; i < points; i++ {
		base := gain * float64(i) / float64(points-1)
		out[i] = math.Max(0, math.Round(base+(g.rnd.Float64()-0.5)*gain*0.1))
	}
	return out
}

func (g *Generator) subset(items []string, min, max int) []string {
	n := min + g.rnd.Intn(max-min+1)
	perm := g.rnd.Perm(len(items))
	out := make([]string, 0, n)
	for _, i := range perm[:n] {
		out = append(out, items[i])
	}
	return out
}

func (g *Generator) ratings() models.TrailRatings {
	breakdown := map[string]int{}
	count := 0
	for star := 1; star <= 5; star++ {
		// weight towards higher ratings
		n := g.rnd.Intn(star * star * 8)
		breakdown[strconv.Itoa(star)] = n
		count += n
	}
	if count == 0 {
		breakdown["5"] = 1
		count = 1
	}
	sum := 0
	for star := 1; star <= 5; star++ {
		sum += star * breakdown[strconv.Itoa(star)]
	}
	return models.TrailRatings{
		Average:   math.Round(float64(sum)/float64(count)*100) / 100,
		Count:     count,
		Breakdown: breakdown,
	}
}

// shoulderMonths extends best by the month before and after each one.
func shoulderMonths(best []int) []int {
	set := map[int]bool{}
	for _, m := range best {
		set[m] = true
		if m > 1 {
			set[m-1] = true
		}
		if m < 12 {
			set[m+1] = true
		}
	}
	out := make([]int, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

func describe(name, park string, d models.Difficulty) string {
	switch d {
	case models.DifficultyBeginner:
		return fmt.Sprintf("A gentle trail for families and beginners. %s offers beautiful scenery without challenging terrain.", name)
	case models.DifficultyIntermediate:
		return fmt.Sprintf("A moderately challenging hike. %s in %s is a good workout with wide views.", name, park)
	case models.DifficultyAdvanced:
		return fmt.Sprintf("A demanding trail for experienced hikers. %s needs good fitness and preparation.", name)
	default:
		return fmt.Sprintf("An extremely demanding route for expert hikers only. %s requires proper equipment and experience.", name)
	}
}
