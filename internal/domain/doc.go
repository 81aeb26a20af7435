// Package domain models the reanalysis grids, facilities and time series that
// flow through the energy-impact engine.
//
// # Data Source
//
// Grids follow the layout of ECMWF ERA5 single-level reanalysis as published
// in the earthmover-public/era5-surface-aws catalog: hourly steps, a regular
// 0.25° latitude/longitude grid, latitude stored north to south and longitude
// on a 0–360° axis. The engine never talks to the catalog itself; an adapter
// hands it an already-resolved [Dataset].
//
// # Variables and Units
//
//	t2        2 m air temperature                     K
//	u10, v10  10 m wind components                     m/s
//	u100,v100 100 m wind components (hub height)       m/s
//	ssrd      surface solar radiation downwards        J/m², accumulated over the step
//	sp        surface pressure                         Pa
//
// Conversions to the units the formulas expect (°C, W/m², scalar wind speed)
// are explicit calls; nothing is converted implicitly on sampling.
//
// # Facilities
//
// A [Facility] is a tagged variant: [FacilityKind] selects which attribute
// record is populated. Wind plants carry a turbine power-curve id, solar plants
// a [PanelSpec], load centers a population weight. Consumers switch on Kind and
// read the matching record; [Facility.Validate] rejects mismatched variants.
//
// # Time
//
// Series timestamps keep whatever location they were created in. Daily
// resampling groups by the calendar date in that location; converting to a
// local time zone first is the caller's job.
//
// # Errors
//
// Every failure mode of the engine wraps one of the sentinel errors in
// errors.go. Callers match with errors.Is and may use [ErrorKind] to obtain a
// stable label for logs and metrics.
package domain
