// Package registry builds the facility list: generator plants from an EIA-860M
// style listing plus the built-in metro load centers.
package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
	"github.com/couchcryptid/storm-energy-impact/internal/powercurve"
)

// Column headers read from the listing. Extra columns are ignored.
const (
	colPlantName   = "Plant Name"
	colEntityID    = "Entity ID"
	colGeneratorID = "Generator ID"
	colState       = "Plant State"
	colTechnology  = "Technology"
	colCapacity    = "Nameplate Capacity (MW)"
	colLatitude    = "Latitude"
	colLongitude   = "Longitude"
	colOpYear      = "Operating Year"
	colOpMonth     = "Operating Month"
	colBalancing   = "Balancing Authority Code"
)

var requiredColumns = []string{colPlantName, colEntityID, colState, colTechnology, colCapacity, colLatitude, colLongitude, colOpYear, colOpMonth}

// Filter selects which generator rows become facilities.
type Filter struct {
	// State keeps plants whose Plant State matches, case-insensitively. Empty keeps all.
	State string
	// ActiveBy keeps plants whose operating year and month are not after this month.
	// Zero keeps all.
	ActiveBy time.Time
	// Panel applies to every solar plant.
	Panel domain.PanelSpec
}

// Stats reports what happened to each row of the listing.
type Stats struct {
	Rows    int            `json:"rows"`
	Kept    int            `json:"kept"`
	Skipped map[string]int `json:"skipped"`
}

func (s *Stats) skip(reason string) {
	if s.Skipped == nil {
		s.Skipped = make(map[string]int)
	}
	s.Skipped[reason]++
}

// LoadGenerators reads the listing at path.
func LoadGenerators(path string, f Filter) ([]domain.Facility, Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open generator listing: %w", err)
	}
	defer file.Close()
	return ParseGenerators(file, f)
}

// ParseGenerators reads wind and solar plants from CSV. Rows before the header
// row (EIA exports carry a title block) are skipped. Rows with a blank latitude
// or longitude are kept with zero coordinates for the geocoder to fill.
func ParseGenerators(r io.Reader, f Filter) ([]domain.Facility, Stats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	cols, err := findHeader(cr)
	if err != nil {
		return nil, Stats{}, err
	}

	var (
		out   []domain.Facility
		stats Stats
		seen  = make(map[string]int)
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read generator listing: %w", err)
		}
		stats.Rows++

		row := func(col string) string {
			if i, ok := cols[col]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		kind, ok := technologyKind(row(colTechnology))
		if !ok {
			stats.skip("technology")
			continue
		}
		if f.State != "" && !strings.EqualFold(row(colState), f.State) {
			stats.skip("state")
			continue
		}
		year, errY := strconv.Atoi(row(colOpYear))
		month, errM := strconv.Atoi(row(colOpMonth))
		if errY != nil || errM != nil {
			stats.skip("operating_date")
			continue
		}
		if !f.ActiveBy.IsZero() && !operatingBy(year, month, f.ActiveBy) {
			stats.skip("not_operating")
			continue
		}
		capacity, err := parseNumber(row(colCapacity))
		if err != nil || capacity <= 0 {
			stats.skip("capacity")
			continue
		}
		coords, err := parseCoordinates(row(colLatitude), row(colLongitude))
		if err != nil {
			stats.skip("coordinates")
			continue
		}

		fac := domain.Facility{
			ID:          facilityID(row(colEntityID), row(colGeneratorID), seen),
			Name:        row(colPlantName),
			Kind:        kind,
			Coordinates: coords,
			Region:      strings.ToUpper(row(colState)),
		}
		if ba := row(colBalancing); ba != "" {
			fac.Region = ba
		}
		switch kind {
		case domain.KindWind:
			fac.Wind = &domain.WindAttrs{CapacityMW: capacity, CurveID: powercurve.DefaultCurveID}
		case domain.KindSolar:
			fac.Solar = &domain.SolarAttrs{CapacityMW: capacity, Panel: f.Panel}
		}
		if err := fac.Validate(); err != nil {
			stats.skip("invalid")
			continue
		}
		out = append(out, fac)
		stats.Kept++
	}
	return out, stats, nil
}

func findHeader(cr *csv.Reader) (map[string]int, error) {
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: generator listing has no %q header row", domain.ErrInvalidInput, colPlantName)
		}
		if err != nil {
			return nil, fmt.Errorf("read generator listing: %w", err)
		}
		cols := make(map[string]int, len(rec))
		for i, name := range rec {
			cols[strings.TrimSpace(name)] = i
		}
		if _, ok := cols[colPlantName]; !ok {
			continue
		}
		for _, c := range requiredColumns {
			if _, ok := cols[c]; !ok {
				return nil, fmt.Errorf("%w: generator listing missing column %q", domain.ErrInvalidInput, c)
			}
		}
		return cols, nil
	}
}

func technologyKind(tech string) (domain.FacilityKind, bool) {
	switch {
	case strings.EqualFold(tech, "Solar Photovoltaic"):
		return domain.KindSolar, true
	case strings.Contains(strings.ToLower(tech), "wind"):
		return domain.KindWind, true
	}
	return "", false
}

func operatingBy(year, month int, by time.Time) bool {
	return year < by.Year() || (year == by.Year() && month <= int(by.Month()))
}

// parseNumber accepts thousands separators as EIA exports them.
func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func parseCoordinates(lat, lon string) (domain.Coordinates, error) {
	if lat == "" || lon == "" {
		return domain.Coordinates{}, nil
	}
	la, err := parseNumber(lat)
	if err != nil {
		return domain.Coordinates{}, err
	}
	lo, err := parseNumber(lon)
	if err != nil {
		return domain.Coordinates{}, err
	}
	return domain.Coordinates{Lat: la, Lon: lo}, nil
}

// facilityID builds "eia-<entity>-<generator>", numbering repeats when the
// listing has no generator column.
func facilityID(entity, generator string, seen map[string]int) string {
	id := "eia-" + entity
	if generator != "" {
		id += "-" + strings.ToLower(generator)
	}
	seen[id]++
	if n := seen[id]; n > 1 {
		id = fmt.Sprintf("%s-%d", id, n)
	}
	return id
}
