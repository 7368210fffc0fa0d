// Package atlite is the boundary with the external geospatial weather-data
// toolkit. The toolkit owns the physical wind/solar simulation, NetCDF cutout
// storage, and the bundled turbine/solar-panel resource library; this package
// only defines the call surface and a subprocess bridge to reach it.
package atlite

import (
	"context"
	"time"
)

// Library is the upstream technology resource catalog: canonical turbine and
// solar-panel names mapped to the filesystem paths of their YAML definitions.
type Library interface {
	TurbinePaths(ctx context.Context) (map[string]string, error)
	SolarPanelPaths(ctx context.Context) (map[string]string, error)
}

// Inspector reads the metadata of an existing on-disk cutout file.
type Inspector interface {
	InspectCutout(ctx context.Context, path string) (*CutoutMetadata, error)
}

// Preparer downloads and prepares a cutout file. Preparation is a
// long-running blocking call; failures propagate uncaught.
type Preparer interface {
	PrepareCutout(ctx context.Context, spec PrepareSpec) error
}

// ProfileComputer runs the wind/solar capacity-factor simulations.
type ProfileComputer interface {
	ComputeWindProfile(ctx context.Context, req WindProfileRequest) (*ProfileSeries, error)
	ComputeSolarProfile(ctx context.Context, req SolarProfileRequest) (*ProfileSeries, error)
}

// Toolkit is the full call surface of the external toolkit.
type Toolkit interface {
	Library
	Inspector
	Preparer
	ProfileComputer
}

// CutoutMetadata is the inferred metadata of an on-disk cutout.
type CutoutMetadata struct {
	Module           string    `json:"module"`
	X                []float64 `json:"x"` // [min, max]
	Y                []float64 `json:"y"` // [min, max]
	Dx               *float64  `json:"dx,omitempty"`
	Dy               *float64  `json:"dy,omitempty"`
	TimeStart        time.Time `json:"time_start"`
	TimeEnd          time.Time `json:"time_end"`
	PreparedFeatures []string  `json:"prepared_features"`
}

// PrepareSpec declares a cutout to download and prepare.
type PrepareSpec struct {
	Path     string    `json:"path"`
	Module   string    `json:"module"`
	X        []float64 `json:"x"` // [start, stop]
	Y        []float64 `json:"y"` // [start, stop]
	Dx       *float64  `json:"dx,omitempty"`
	Dy       *float64  `json:"dy,omitempty"`
	Time     any       `json:"time"` // period tag or [start, stop] timestamps
	Features []string  `json:"features,omitempty"`
}

// WindProfileRequest asks for a per-unit wind generation time series at a
// location. Turbine is either a catalog name or a full definition payload.
type WindProfileRequest struct {
	CutoutPath string  `json:"cutout_path"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Turbine    any     `json:"turbine"`
}

// SolarProfileRequest asks for a per-unit solar generation time series.
// Panel is either a catalog name or a full definition payload.
type SolarProfileRequest struct {
	CutoutPath string  `json:"cutout_path"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Panel      any     `json:"panel"`
	Slope      float64 `json:"slope"`
	Azimuth    float64 `json:"azimuth"`
}

// ProfileSeries is a generated time series with its ISO-8601 index.
type ProfileSeries struct {
	Index  []string  `json:"index"`
	Values []float64 `json:"values"`
}
