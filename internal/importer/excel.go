package importer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/hikeplanner/internal/models"
)

// setter assigns one cell value to a trail.
type setter func(t *models.Trail, v string) error

// columns maps normalized header names to setters. Headers are matched case-insensitively,
// ignoring spaces, underscores and hyphens, so "Elevation Gain", "elevation_gain" and
// "elevationGain" all select the same column.
var columns = map[string]setter{
	"id":          func(t *models.Trail, v string) error { t.ID = v; return nil },
	"name":        func(t *models.Trail, v string) error { t.Name = v; return nil },
	"description": func(t *models.Trail, v string) error { t.Description = v; return nil },
	"region":      func(t *models.Trail, v string) error { t.Location.Region = v; return nil },
	"park":        func(t *models.Trail, v string) error { t.Location.Park = v; return nil },
	"country":     func(t *models.Trail, v string) error { t.Location.Country = v; return nil },
	"difficulty": func(t *models.Trail, v string) error {
		t.Characteristics.Difficulty = models.Difficulty(strings.ToLower(v))
		return nil
	},
	"distance":      floatCell(func(t *models.Trail) *float64 { return &t.Characteristics.Distance }),
	"durationmin":   floatCell(func(t *models.Trail) *float64 { return &t.Characteristics.Duration.Min }),
	"durationmax":   floatCell(func(t *models.Trail) *float64 { return &t.Characteristics.Duration.Max }),
	"elevationgain": floatCell(func(t *models.Trail) *float64 { return &t.Characteristics.ElevationGain }),
	"trailtype": func(t *models.Trail, v string) error {
		t.Characteristics.TrailType = models.TrailType(strings.ToLower(v))
		return nil
	},
	"surface":          listCell(func(t *models.Trail) *[]string { return &t.Characteristics.Surface }),
	"scenicviews":      boolCell(func(t *models.Trail) *bool { return &t.Features.ScenicViews }),
	"waterfeatures":    boolCell(func(t *models.Trail) *bool { return &t.Features.WaterFeatures }),
	"wildlife":         listCell(func(t *models.Trail) *[]string { return &t.Features.Wildlife }),
	"bestmonths":       monthsCell(func(t *models.Trail) *[]int { return &t.Features.Seasonality.BestMonths }),
	"accessiblemonths": monthsCell(func(t *models.Trail) *[]int { return &t.Features.Seasonality.AccessibleMonths }),
	"risklevel": func(t *models.Trail, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("not an integer: %q", v)
		}
		t.Safety.RiskLevel = n
		return nil
	},
	"commonhazards":     listCell(func(t *models.Trail) *[]string { return &t.Safety.CommonHazards }),
	"requirespermit":    boolCell(func(t *models.Trail) *bool { return &t.Safety.RequiresPermit }),
	"emergencycontacts": listCell(func(t *models.Trail) *[]string { return &t.Safety.EmergencyContacts }),
	"parking":           boolCell(func(t *models.Trail) *bool { return &t.Amenities.Parking }),
	"restrooms":         boolCell(func(t *models.Trail) *bool { return &t.Amenities.Restrooms }),
	"camping":           boolCell(func(t *models.Trail) *bool { return &t.Amenities.Camping }),
	"drinkingwater":     boolCell(func(t *models.Trail) *bool { return &t.Amenities.DrinkingWater }),
	"ratingaverage":     floatCell(func(t *models.Trail) *float64 { return &t.Ratings.Average }),
	"ratingcount": func(t *models.Trail, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("not an integer: %q", v)
		}
		t.Ratings.Count = n
		return nil
	},
	"isactive": boolCell(func(t *models.Trail) *bool { return &t.IsActive }),
	"startlat": floatCell(func(t *models.Trail) *float64 { return &t.Location.Coordinates.Start.Latitude }),
	"startlon": floatCell(func(t *models.Trail) *float64 { return &t.Location.Coordinates.Start.Longitude }),
	"endlat":   floatCell(func(t *models.Trail) *float64 { return &t.Location.Coordinates.End.Latitude }),
	"endlon":   floatCell(func(t *models.Trail) *float64 { return &t.Location.Coordinates.End.Longitude }),
}

var headerReplacer = strings.NewReplacer(" ", "", "_", "", "-", "")

func normalizeHeader(h string) string {
	return strings.ToLower(headerReplacer.Replace(strings.TrimSpace(h)))
}

func floatCell(field func(*models.Trail) *float64) setter {
	return func(t *models.Trail, v string) error {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", v)
		}
		*field(t) = n
		return nil
	}
}

func boolCell(field func(*models.Trail) *bool) setter {
	return func(t *models.Trail, v string) error {
		switch strings.ToLower(v) {
		case "yes", "y", "x":
			*field(t) = true
			return nil
		case "no", "n", "-":
			*field(t) = false
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("not a boolean: %q", v)
		}
		*field(t) = b
		return nil
	}
}

// listCell splits comma or semicolon separated values.
func listCell(field func(*models.Trail) *[]string) setter {
	return func(t *models.Trail, v string) error {
		var out []string
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' }) {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		*field(t) = out
		return nil
	}
}

func monthsCell(field func(*models.Trail) *[]int) setter {
	return func(t *models.Trail, v string) error {
		var out []int
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' || r == ' ' }) {
			m, err := strconv.Atoi(part)
			if err != nil {
				return fmt.Errorf("not a month: %q", part)
			}
			out = append(out, m)
		}
		*field(t) = out
		return nil
	}
}

// parseExcel reads every sheet of a workbook. The first row of a sheet names the columns;
// each following non-empty row is one trail. Trails are active unless an is_active cell
// says otherwise. Unknown columns are ignored.
func parseExcel(content []byte) ([]*models.Trail, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var trails []*models.Trail
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		if len(rows) < 2 {
			continue
		}
		header := make([]string, len(rows[0]))
		for i, h := range rows[0] {
			header[i] = normalizeHeader(h)
		}
		for r, row := range rows[1:] {
			if blank(row) {
				continue
			}
			t := newTrail()
			for c, cell := range row {
				cell = strings.TrimSpace(cell)
				if c >= len(header) || cell == "" {
					continue
				}
				set, ok := columns[header[c]]
				if !ok {
					continue
				}
				if err := set(t, cell); err != nil {
					return nil, fmt.Errorf("sheet %q row %d column %q: %w", sheet, r+2, rows[0][c], err)
				}
			}
			trails = append(trails, t)
		}
	}
	return trails, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
