// Command genmock writes a synthetic ERA5-like grid and a matching generator
// listing for demos and tests. The grid covers the Texas extract envelope with
// a seasonal and diurnal cycle, weather noise, and a mid-February 2021 cold
// snap with calm winds and heavy overcast.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  --grid-out data/grid.json.gz \
//	  --generators-out data/generators.csv \
//	  --start-year 1990 --end 2021-03-31 --step 6h --resolution 2
package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/couchcryptid/storm-energy-impact/internal/adapter/gridfile"
	"github.com/couchcryptid/storm-energy-impact/internal/adapter/registry"
	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

var (
	snapStart = time.Date(2021, time.February, 10, 0, 0, 0, 0, time.UTC)
	snapPeak  = time.Date(2021, time.February, 15, 12, 0, 0, 0, time.UTC)
	snapEnd   = time.Date(2021, time.February, 20, 0, 0, 0, 0, time.UTC)
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	gridOut := pflag.String("grid-out", "data/grid.json.gz", "output path for the grid document (.gz compresses)")
	genOut := pflag.String("generators-out", "data/generators.csv", "output path for the generator listing")
	startYear := pflag.Int("start-year", 1990, "first calendar year of the grid")
	end := pflag.String("end", "2021-03-31", "last date of the grid (YYYY-MM-DD)")
	step := pflag.Duration("step", 6*time.Hour, "grid time step")
	resolution := pflag.Float64("resolution", 2, "grid spacing in degrees")
	seed := pflag.Uint64("seed", 2021, "random seed")
	pflag.Parse()

	endDate, err := time.Parse(time.DateOnly, *end)
	if err != nil {
		return fmt.Errorf("parse --end: %w", err)
	}
	if *step <= 0 || *resolution <= 0 {
		pflag.Usage()
		return fmt.Errorf("--step and --resolution must be positive")
	}

	start := time.Date(*startYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	doc := buildGrid(start, endDate.AddDate(0, 0, 1), *step, *resolution, rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)))
	if err := gridfile.Write(*gridOut, doc); err != nil {
		return fmt.Errorf("writing grid: %w", err)
	}
	log.Printf("wrote grid: %s (%d steps, %d x %d cells, %d variables)",
		*gridOut, doc.Count, len(doc.Latitudes), len(doc.Longitudes), len(doc.Variables))

	if err := writeGenerators(*genOut); err != nil {
		return fmt.Errorf("writing generators: %w", err)
	}
	facilities, stats, err := registry.LoadGenerators(*genOut, registry.Filter{
		State:    "TX",
		ActiveBy: time.Date(2021, time.February, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		return fmt.Errorf("re-reading generators: %w", err)
	}
	log.Printf("wrote generators: %s (%d rows, %d kept for TX Feb 2021, skipped %v)",
		*genOut, stats.Rows, len(facilities), stats.Skipped)
	return nil
}

func axis(from, to, step float64) []float64 {
	var out []float64
	for v := from; v <= to+1e-9; v += step {
		out = append(out, math.Round(v*100)/100)
	}
	return out
}

// buildGrid fills every variable in [time][lat][lon] order.
func buildGrid(start, end time.Time, step time.Duration, res float64, rng *rand.Rand) gridfile.Document {
	b := registry.TexasBounds
	lats := axis(b.South, b.North, res)
	// North-to-south like ERA5 extracts.
	for i, j := 0, len(lats)-1; i < j; i, j = i+1, j-1 {
		lats[i], lats[j] = lats[j], lats[i]
	}
	lons := axis(b.West, b.East, res)
	count := int(end.Sub(start) / step)

	n := count * len(lats) * len(lons)
	fields := map[domain.Variable][]float64{
		domain.VarTemperature2m:   make([]float64, 0, n),
		domain.VarWindU10:         make([]float64, 0, n),
		domain.VarWindV10:         make([]float64, 0, n),
		domain.VarWindU100:        make([]float64, 0, n),
		domain.VarWindV100:        make([]float64, 0, n),
		domain.VarSolarRadiation:  make([]float64, 0, n),
		domain.VarSurfacePressure: make([]float64, 0, n),
	}

	for i := range count {
		t := start.Add(time.Duration(i) * step)
		season := 2 * math.Pi * float64(t.YearDay()-1) / 365.25
		snap := coldSnap(t)
		// One synoptic anomaly per step keeps neighboring cells correlated.
		synoptic := rng.NormFloat64() * 2.5
		for _, lat := range lats {
			for _, lon := range lons {
				solarHour := math.Mod(float64(t.Hour())+float64(t.Minute())/60+(lon-360)/15+24, 24)

				tempC := 20.5 - 0.6*(lat-25) - 9*math.Cos(season-0.35) +
					4*math.Sin(2*math.Pi*(solarHour-9)/24) + synoptic + rng.NormFloat64() - 22*snap
				fields[domain.VarTemperature2m] = append(fields[domain.VarTemperature2m], round(tempC+273.15, 2))

				speed := math.Max(0, (7.5+0.15*(lat-25)+rng.NormFloat64()*2.2)*(1-0.65*snap))
				dir := rng.Float64() * 2 * math.Pi
				u, v := speed*math.Cos(dir), speed*math.Sin(dir)
				fields[domain.VarWindU100] = append(fields[domain.VarWindU100], round(u, 2))
				fields[domain.VarWindV100] = append(fields[domain.VarWindV100], round(v, 2))
				fields[domain.VarWindU10] = append(fields[domain.VarWindU10], round(0.72*u, 2))
				fields[domain.VarWindV10] = append(fields[domain.VarWindV10], round(0.72*v, 2))

				sun := math.Max(0, math.Cos(2*math.Pi*(solarHour-12)/24))
				clearSky := 1000 * sun * (0.75 - 0.25*math.Cos(season+0.17))
				clouds := 0.55 + 0.45*rng.Float64()
				irr := clearSky * clouds * (1 - 0.7*snap)
				fields[domain.VarSolarRadiation] = append(fields[domain.VarSolarRadiation], math.Round(irr*step.Seconds()))

				sp := 101300 - 110*(lon-253) + rng.NormFloat64()*250 + 1800*snap
				fields[domain.VarSurfacePressure] = append(fields[domain.VarSurfacePressure], math.Round(sp))
			}
		}
	}

	doc := gridfile.Document{
		Start:      start,
		Step:       step.String(),
		Count:      count,
		Latitudes:  lats,
		Longitudes: lons,
		Variables:  make(map[domain.Variable]domain.Field, len(fields)),
	}
	units := map[domain.Variable]string{
		domain.VarTemperature2m:   "K",
		domain.VarWindU10:         "m s-1",
		domain.VarWindV10:         "m s-1",
		domain.VarWindU100:        "m s-1",
		domain.VarWindV100:        "m s-1",
		domain.VarSolarRadiation:  "J m-2",
		domain.VarSurfacePressure: "Pa",
	}
	for v, values := range fields {
		doc.Variables[v] = domain.Field{Units: units[v], Values: values}
	}
	return doc
}

// coldSnap ramps from 0 to 1 at the peak and back to 0.
func coldSnap(t time.Time) float64 {
	switch {
	case t.Before(snapStart), !t.Before(snapEnd):
		return 0
	case t.Before(snapPeak):
		return t.Sub(snapStart).Hours() / snapPeak.Sub(snapStart).Hours()
	default:
		return snapEnd.Sub(t).Hours() / snapEnd.Sub(snapPeak).Hours()
	}
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// generators mirrors a handful of real Texas plants plus rows the registry
// filter must drop.
var generators = [][]string{
	{"Roscoe Wind Farm", "56291", "WT1", "TX", "Onshore Wind Turbine", "781.5", "32.4446", "-100.5385", "2008", "10", "ERCO"},
	{"Horse Hollow Wind Energy Center", "56156", "1", "TX", "Onshore Wind Turbine", "735.5", "32.2050", "-100.0050", "2006", "12", "ERCO"},
	{"Los Vientos III", "58560", "LV3", "TX", "Onshore Wind Turbine", "200", "26.3480", "-98.0120", "2015", "3", "ERCO"},
	{"Gulf Wind", "56984", "GW1", "TX", "Onshore Wind Turbine", "283.2", "27.0230", "-97.4210", "2010", "2", "ERCO"},
	{"Spinning Spur Wind Ranch", "57983", "SS1", "TX", "Onshore Wind Turbine", "161", "35.2500", "-102.3600", "2012", "12", "SWPP"},
	{"Roadrunner Solar", "61960", "PV1", "TX", "Solar Photovoltaic", "497", "31.3660", "-102.3710", "2019", "8", "ERCO"},
	{"Permian Energy Center", "63240", "PV1", "TX", "Solar Photovoltaic", "420", "31.8610", "-102.8790", "2020", "11", "ERCO"},
	{"Upton County Solar", "60432", "PV1", "TX", "Solar Photovoltaic", "157.5", "31.2050", "-102.1850", "2017", "6", "ERCO"},
	{"Samson Solar", "64820", "PV1", "TX", "Solar Photovoltaic", "250", "33.5600", "-95.5700", "2021", "11", "ERCO"},
	{"Comanche Peak", "6145", "1", "TX", "Nuclear", "1,205", "32.2983", "-97.7850", "1990", "8", "ERCO"},
	{"Blue Canyon Windpower", "55999", "BC1", "OK", "Onshore Wind Turbine", "151.2", "34.8740", "-98.5690", "2003", "12", "SWPP"},
}

func writeGenerators(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	rows := [][]string{
		{"Monthly Generator Inventory (synthetic)"},
		{"Plant Name", "Entity ID", "Generator ID", "Plant State", "Technology", "Nameplate Capacity (MW)",
			"Latitude", "Longitude", "Operating Year", "Operating Month", "Balancing Authority Code"},
	}
	rows = append(rows, generators...)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
