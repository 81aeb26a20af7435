package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
	"github.com/couchcryptid/storm-energy-impact/internal/powercurve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = `U.S. Energy Information Administration,,,,,,,,,
Form EIA-860M January 2021,,,,,,,,,,
Entity ID,Plant Name,Generator ID,Plant State,Technology,Nameplate Capacity (MW),Latitude,Longitude,Operating Year,Operating Month,Balancing Authority Code
56291,Roscoe Wind Farm,WT1,TX,Onshore Wind Turbine,209,32.4457,-100.5387,2008,7,ERCO
56291,Roscoe Wind Farm,WT2,TX,Onshore Wind Turbine,"1,000.5",32.4457,-100.5387,2009,1,ERCO
60404,Upton Solar,PV1,TX,Solar Photovoltaic,157.5,31.2102,-102.2271,2021,2,ERCO
60405,Late Solar,PV1,TX,Solar Photovoltaic,100,31.0,-102.0,2021,3,ERCO
61000,Future Wind,W1,TX,Onshore Wind Turbine,150,33.0,-101.0,2022,1,ERCO
50001,Comanche Peak,1,TX,Nuclear,1200,32.2985,-97.7853,1990,4,ERCO
57000,Oklahoma Wind,W1,OK,Onshore Wind Turbine,300,36.0,-99.0,2015,5,SWPP
58000,Unlocated Wind,W1,tx,Onshore Wind Turbine,50,,,2016,5,
59000,Broken Wind,W1,TX,Onshore Wind Turbine,n/a,33.0,-101.0,2016,5,ERCO
`

func uriFilter() Filter {
	return Filter{State: "TX", ActiveBy: time.Date(2021, time.February, 1, 0, 0, 0, 0, time.UTC)}
}

func TestParseGenerators(t *testing.T) {
	facs, stats, err := ParseGenerators(strings.NewReader(listing), uriFilter())
	require.NoError(t, err)

	assert.Equal(t, 9, stats.Rows)
	assert.Equal(t, 4, stats.Kept)
	assert.Equal(t, map[string]int{"not_operating": 2, "technology": 1, "state": 1, "capacity": 1}, stats.Skipped)

	require.Len(t, facs, 4)
	roscoe := facs[0]
	assert.Equal(t, "eia-56291-wt1", roscoe.ID)
	assert.Equal(t, domain.KindWind, roscoe.Kind)
	assert.Equal(t, "ERCO", roscoe.Region)
	assert.Equal(t, domain.Coordinates{Lat: 32.4457, Lon: -100.5387}, roscoe.Coordinates)
	require.NotNil(t, roscoe.Wind)
	assert.Equal(t, powercurve.DefaultCurveID, roscoe.Wind.CurveID)
	assert.InDelta(t, 209, roscoe.Wind.CapacityMW, 1e-9)

	assert.InDelta(t, 1000.5, facs[1].Wind.CapacityMW, 1e-9)

	upton := facs[2]
	assert.Equal(t, domain.KindSolar, upton.Kind)
	require.NotNil(t, upton.Solar)
	assert.InDelta(t, 157.5, upton.Solar.CapacityMW, 1e-9)

	unlocated := facs[3]
	assert.True(t, unlocated.Coordinates.IsZero())
	assert.Equal(t, "TX", unlocated.Region)
}

func TestParseGenerators_NoFilter(t *testing.T) {
	facs, stats, err := ParseGenerators(strings.NewReader(listing), Filter{})
	require.NoError(t, err)
	assert.Len(t, facs, 7)
	assert.Equal(t, 1, stats.Skipped["technology"])
}

func TestParseGenerators_RepeatedIDsAreNumbered(t *testing.T) {
	in := "Entity ID,Plant Name,Plant State,Technology,Nameplate Capacity (MW),Latitude,Longitude,Operating Year,Operating Month\n" +
		"1,A,TX,Onshore Wind Turbine,10,32,-100,2010,1\n" +
		"1,A,TX,Onshore Wind Turbine,10,32,-100,2011,1\n"
	facs, _, err := ParseGenerators(strings.NewReader(in), Filter{})
	require.NoError(t, err)
	require.Len(t, facs, 2)
	assert.Equal(t, "eia-1", facs[0].ID)
	assert.Equal(t, "eia-1-2", facs[1].ID)
}

func TestParseGenerators_BadHeader(t *testing.T) {
	_, _, err := ParseGenerators(strings.NewReader("a,b,c\n1,2,3\n"), Filter{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = ParseGenerators(strings.NewReader("Plant Name,Technology\nx,Wind\n"), Filter{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "Entity ID")
}

func TestLoadGenerators(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generators.csv")
	require.NoError(t, os.WriteFile(path, []byte(listing), 0o600))

	facs, _, err := LoadGenerators(path, uriFilter())
	require.NoError(t, err)
	assert.Len(t, facs, 4)

	_, _, err = LoadGenerators(filepath.Join(t.TempDir(), "missing.csv"), uriFilter())
	require.Error(t, err)
}

func TestTexasMetros(t *testing.T) {
	metros := TexasMetros()
	require.Len(t, metros, 10)
	for _, m := range metros {
		require.NoError(t, m.Validate(), m.ID)
		assert.Equal(t, domain.KindLoad, m.Kind)
		assert.Greater(t, m.Weight(), 100000.0)
		lon := m.Coordinates.Lon + 360
		assert.True(t, lon >= TexasBounds.West && lon <= TexasBounds.East, m.ID)
		assert.True(t, m.Coordinates.Lat >= TexasBounds.South && m.Coordinates.Lat <= TexasBounds.North, m.ID)
	}
	assert.Equal(t, "metro-houston", metros[1].ID)
	assert.Equal(t, "Coast", metros[1].Region)

	metros[0].Load.Population = 1
	assert.NotEqual(t, 1.0, TexasMetros()[0].Load.Population)
}

type fakeGeocoder struct {
	forward map[string]domain.GeocodingResult
	places  map[domain.Coordinates]string
	err     error
	calls   int
}

func (f *fakeGeocoder) ForwardGeocode(_ context.Context, name, state string) (domain.GeocodingResult, error) {
	f.calls++
	if f.err != nil {
		return domain.GeocodingResult{}, f.err
	}
	return f.forward[name+"|"+state], nil
}

func (f *fakeGeocoder) ReverseGeocode(_ context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	f.calls++
	if f.err != nil {
		return domain.GeocodingResult{}, f.err
	}
	p := f.places[domain.Coordinates{Lat: lat, Lon: lon}]
	return domain.GeocodingResult{PlaceName: p, FormattedAddress: p}, nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestResolve(t *testing.T) {
	facs, _, err := ParseGenerators(strings.NewReader(listing), uriFilter())
	require.NoError(t, err)

	geo := &fakeGeocoder{
		forward: map[string]domain.GeocodingResult{
			"Unlocated Wind|TX": {Coordinates: domain.Coordinates{Lat: 32.9, Lon: -101.2}, PlaceName: "Snyder"},
		},
		places: map[domain.Coordinates]string{
			{Lat: 32.4457, Lon: -100.5387}: "Roscoe",
			{Lat: 31.2102, Lon: -102.2271}: "McCamey",
		},
	}
	out := Resolve(context.Background(), geo, facs, "TX", discard())

	require.Len(t, out, 4)
	assert.Equal(t, "Roscoe", out[0].Place)
	assert.Equal(t, "McCamey", out[2].Place)
	assert.Equal(t, domain.Coordinates{Lat: 32.9, Lon: -101.2}, out[3].Coordinates)
	assert.Equal(t, "Snyder", out[3].Place)

	// Input untouched.
	assert.True(t, facs[3].Coordinates.IsZero())
	assert.Empty(t, facs[0].Place)
}

func TestResolve_FailuresLeaveFacility(t *testing.T) {
	facs := []domain.Facility{{ID: "x", Name: "Ghost", Kind: domain.KindWind, Wind: &domain.WindAttrs{CapacityMW: 1}}}

	out := Resolve(context.Background(), &fakeGeocoder{err: errors.New("boom")}, facs, "TX", discard())
	assert.Equal(t, facs, out)

	out = Resolve(context.Background(), &fakeGeocoder{}, facs, "TX", discard())
	assert.True(t, out[0].Coordinates.IsZero())

	out = Resolve(context.Background(), nil, facs, "TX", discard())
	assert.Equal(t, facs, out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	geo := &fakeGeocoder{}
	Resolve(ctx, geo, facs, "TX", discard())
	assert.Zero(t, geo.calls)
}
