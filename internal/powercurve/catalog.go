package powercurve

import (
	"fmt"
	"sort"

	"github.com/couchcryptid/storm-energy-impact/internal/domain"
)

// DefaultCurveID names the generic utility-scale turbine used when a plant
// record carries no curve.
const DefaultCurveID = "generic-2mw"

// Catalog maps turbine curve ids to curves.
type Catalog map[string]domain.TurbineCurve

// DefaultCatalog returns the built-in curves.
func DefaultCatalog() Catalog {
	return Catalog{
		DefaultCurveID: {ID: DefaultCurveID, CutIn: 3, Rated: 12, CutOut: 25, Shape: domain.ShapeCubic},
		"generic-3mw-linear": {
			ID: "generic-3mw-linear", CutIn: 3.5, Rated: 13, CutOut: 25, Shape: domain.ShapeLinear,
		},
		"iec-class2": {
			ID: "iec-class2", CutIn: 3, Rated: 11.5, CutOut: 25,
			Points: []domain.CurvePoint{
				{Speed: 4, Factor: 0.03}, {Speed: 5, Factor: 0.08}, {Speed: 6, Factor: 0.16},
				{Speed: 7, Factor: 0.27}, {Speed: 8, Factor: 0.41}, {Speed: 9, Factor: 0.58},
				{Speed: 10, Factor: 0.76}, {Speed: 11, Factor: 0.93},
			},
		},
	}
}

// Lookup returns the curve for id, falling back to DefaultCurveID when id is
// empty.
func (c Catalog) Lookup(id string) (domain.TurbineCurve, error) {
	if id == "" {
		id = DefaultCurveID
	}
	curve, ok := c[id]
	if !ok {
		return domain.TurbineCurve{}, fmt.Errorf("%w: unknown turbine curve %q", domain.ErrInvalidInput, id)
	}
	return curve, nil
}

// IDs lists the catalog's curve ids in order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
