package registry

import "github.com/couchcryptid/storm-energy-impact/internal/domain"

type metro struct {
	id, name   string
	zone       string
	lat, lon   float64
	population float64
}

// Texas metropolitan statistical areas with 2020 census populations, grouped
// by load weather zone.
var texasMetros = []metro{
	{"dallas-fort-worth", "Dallas–Fort Worth–Arlington", "North Central", 32.7767, -96.7970, 7637387},
	{"houston", "Houston–The Woodlands–Sugar Land", "Coast", 29.7604, -95.3698, 7122240},
	{"san-antonio", "San Antonio–New Braunfels", "South Central", 29.4241, -98.4936, 2558143},
	{"austin", "Austin–Round Rock–Georgetown", "South Central", 30.2672, -97.7431, 2283371},
	{"el-paso", "El Paso", "Far West", 31.7619, -106.4850, 868859},
	{"mcallen", "McAllen–Edinburg–Mission", "Southern", 26.2034, -98.2300, 870781},
	{"corpus-christi", "Corpus Christi", "Southern", 27.8006, -97.3964, 421933},
	{"brownsville", "Brownsville–Harlingen", "Southern", 25.9017, -97.4975, 421017},
	{"laredo", "Laredo", "Southern", 27.5306, -99.4803, 267114},
	{"lubbock", "Lubbock", "West", 33.5779, -101.8552, 321368},
}

// TexasBounds is the reanalysis extract envelope covering every metro and
// plant in the state, in 0–360° longitude.
var TexasBounds = struct {
	North, South, West, East float64
}{North: 37, South: 25, West: 253, East: 267}

// TexasMetros returns the built-in load centers. Each call returns fresh values.
func TexasMetros() []domain.Facility {
	out := make([]domain.Facility, len(texasMetros))
	for i, m := range texasMetros {
		out[i] = domain.Facility{
			ID:          "metro-" + m.id,
			Name:        m.name,
			Kind:        domain.KindLoad,
			Coordinates: domain.Coordinates{Lat: m.lat, Lon: m.lon},
			Region:      m.zone,
			Place:       m.name,
			Load:        &domain.LoadAttrs{Population: m.population},
		}
	}
	return out
}
