// Package profile orchestrates wind and solar profile generation: request
// validation, per-cutout delegation to the simulation toolkit, and optional
// CSV persistence of the resulting series.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thesethtruth/atlite-profiles-api/internal/atlite"
	"github.com/thesethtruth/atlite-profiles-api/internal/observability"
	"github.com/thesethtruth/atlite-profiles-api/internal/storage"
	"github.com/thesethtruth/atlite-profiles-api/internal/technology"
)

// ErrInvalidRequest marks a generation request that failed validation.
var ErrInvalidRequest = errors.New("invalid generation request")

// Profile type selectors.
const (
	TypeWind  = "wind"
	TypeSolar = "solar"
	TypeBoth  = "both"
)

// Request asks for wind and/or solar generation profiles at one location,
// computed against one or more cutout files.
type Request struct {
	ProfileType string  `json:"profile_type"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`

	// BasePath is the directory cutout filenames resolve against; absolute
	// cutout paths are used as-is.
	BasePath string   `json:"base_path,omitempty"`
	Cutouts  []string `json:"cutouts"`

	TurbineModel  string                        `json:"turbine_model,omitempty"`
	TurbineConfig *technology.WindTurbineConfig `json:"turbine_config,omitempty"`
	Slopes        []float64                     `json:"slopes,omitempty"`
	Azimuths      []float64                     `json:"azimuths,omitempty"`
	PanelModel    string                        `json:"panel_model,omitempty"`

	// SolarConfig is an inline solar technology definition. It arrives as a
	// raw document so that the panel_parameters unwrap, model inference, and
	// required-field validation all run during Validate.
	SolarConfig map[string]any `json:"solar_technology_config,omitempty"`

	// IncludeProfiles attaches the full series payloads to the response.
	IncludeProfiles bool `json:"include_profiles,omitempty"`

	// solarConfig is the validated form of SolarConfig, set by Validate.
	solarConfig *technology.SolarTechnologyConfig
}

// SeriesPayload is one generated series without its index; the index is
// shared across all series in a response.
type SeriesPayload struct {
	Values []float64 `json:"values"`
}

// Response summarizes a generation run, optionally carrying the series data.
type Response struct {
	Status           string                   `json:"status"`
	ProfileType      string                   `json:"profile_type"`
	WindProfiles     int                      `json:"wind_profiles"`
	SolarProfiles    int                      `json:"solar_profiles"`
	Index            []string                 `json:"index,omitempty"`
	WindProfileData  map[string]SeriesPayload `json:"wind_profile_data,omitempty"`
	SolarProfileData map[string]SeriesPayload `json:"solar_profile_data,omitempty"`
}

// StoredResponse summarizes a generation run persisted to storage.
type StoredResponse struct {
	Status        string   `json:"status"`
	ProfileType   string   `json:"profile_type"`
	WindProfiles  int      `json:"wind_profiles"`
	SolarProfiles int      `json:"solar_profiles"`
	OutputDir     string   `json:"output_dir"`
	StoredFiles   []string `json:"stored_files"`
}

// StorageConfig locates the persisted profile CSVs.
type StorageConfig struct {
	OutputDir         string
	WindOutputSubdir  string
	SolarOutputSubdir string
}

// DefaultStorageConfig returns the conventional output layout under dir.
func DefaultStorageConfig(dir string) StorageConfig {
	return StorageConfig{
		OutputDir:         dir,
		WindOutputSubdir:  "wind_profiles",
		SolarOutputSubdir: "solar_profiles",
	}
}

// Generator runs profile generation against the simulation toolkit.
type Generator struct {
	computer atlite.ProfileComputer
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewGenerator creates a profile generator.
func NewGenerator(computer atlite.ProfileComputer, logger *slog.Logger, metrics *observability.Metrics) *Generator {
	return &Generator{computer: computer, logger: logger, metrics: metrics}
}

// Validate rejects malformed requests before any toolkit work starts. An
// absent profile type defaults to both families.
func (r *Request) Validate() error {
	switch r.ProfileType {
	case "":
		r.ProfileType = TypeBoth
	case TypeWind, TypeSolar, TypeBoth:
	default:
		return fmt.Errorf("%w: profile_type must be one of wind, solar, both", ErrInvalidRequest)
	}
	if r.Latitude < -90 || r.Latitude > 90 {
		return fmt.Errorf("%w: latitude must be within [-90, 90]", ErrInvalidRequest)
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return fmt.Errorf("%w: longitude must be within [-180, 180]", ErrInvalidRequest)
	}
	if len(r.Cutouts) == 0 {
		return fmt.Errorf("%w: at least one cutout is required", ErrInvalidRequest)
	}
	if r.wantSolar() && len(r.Slopes) != len(r.Azimuths) {
		return fmt.Errorf("%w: slopes and azimuths must have the same length", ErrInvalidRequest)
	}
	if r.TurbineConfig != nil {
		if err := r.TurbineConfig.Validate(); err != nil {
			return fmt.Errorf("%w: turbine_config: %w", ErrInvalidRequest, err)
		}
	}
	if len(r.SolarConfig) > 0 {
		config, err := technology.ParseSolarConfig(r.SolarConfig, "")
		if err != nil {
			return fmt.Errorf("%w: solar_technology_config: %w", ErrInvalidRequest, err)
		}
		r.solarConfig = config
	}
	return nil
}

func (r *Request) wantWind() bool  { return r.ProfileType == TypeWind || r.ProfileType == TypeBoth }
func (r *Request) wantSolar() bool { return r.ProfileType == TypeSolar || r.ProfileType == TypeBoth }

// turbinePayload is the turbine argument handed to the toolkit: a full
// definition payload when an inline config is present, else the model name.
func (r *Request) turbinePayload() any {
	if r.TurbineConfig != nil {
		return r.TurbineConfig.ToolkitPayload()
	}
	return r.TurbineModel
}

func (r *Request) panelPayload() any {
	if r.solarConfig != nil {
		return r.solarConfig.ToolkitPayload()
	}
	return r.PanelModel
}

func (r *Request) cutoutPath(cutout string) string {
	if filepath.IsAbs(cutout) || r.BasePath == "" {
		return cutout
	}
	return filepath.Join(r.BasePath, cutout)
}

// Generate computes the requested profiles and returns a summary, with the
// full series attached when the request asks for them.
func (g *Generator) Generate(ctx context.Context, req *Request) (*Response, error) {
	wind, solar, err := g.compute(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Status:        "ok",
		ProfileType:   req.ProfileType,
		WindProfiles:  len(wind),
		SolarProfiles: len(solar),
	}
	if !req.IncludeProfiles {
		return resp, nil
	}

	index, windData, err := serializeProfiles(wind)
	if err != nil {
		return nil, err
	}
	solarIndex, solarData, err := serializeProfiles(solar)
	if err != nil {
		return nil, err
	}
	if len(windData) > 0 && len(solarData) > 0 && !sameIndex(index, solarIndex) {
		return nil, errors.New("wind and solar profiles must share the same time index for response serialization")
	}
	if len(windData) == 0 {
		index = solarIndex
	}

	resp.Index = index
	resp.WindProfileData = windData
	resp.SolarProfileData = solarData
	return resp, nil
}

// GenerateToStorage computes the requested profiles and persists each series
// as a CSV blob through the file handler.
func (g *Generator) GenerateToStorage(ctx context.Context, req *Request, cfg StorageConfig, handler storage.FileHandler) (*StoredResponse, error) {
	wind, solar, err := g.compute(ctx, req)
	if err != nil {
		return nil, err
	}

	if handler == nil {
		handler = storage.NewLocalFileHandler(cfg.OutputDir)
	}
	stored, err := storage.StoreProfilesAsCSV(wind, cfg.WindOutputSubdir, handler)
	if err != nil {
		return nil, err
	}
	solarStored, err := storage.StoreProfilesAsCSV(solar, cfg.SolarOutputSubdir, handler)
	if err != nil {
		return nil, err
	}
	stored = append(stored, solarStored...)

	return &StoredResponse{
		Status:        "ok",
		ProfileType:   req.ProfileType,
		WindProfiles:  len(wind),
		SolarProfiles: len(solar),
		OutputDir:     cfg.OutputDir,
		StoredFiles:   stored,
	}, nil
}

func (g *Generator) compute(ctx context.Context, req *Request) (wind, solar map[string]*atlite.ProfileSeries, err error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	wind = map[string]*atlite.ProfileSeries{}
	solar = map[string]*atlite.ProfileSeries{}

	for _, cutout := range req.Cutouts {
		path := req.cutoutPath(cutout)
		stem := cutoutStem(cutout)

		if req.wantWind() {
			g.logger.Info("computing wind profile", "cutout", path, "turbine", req.TurbineModel)
			series, err := g.computer.ComputeWindProfile(ctx, atlite.WindProfileRequest{
				CutoutPath: path,
				Latitude:   req.Latitude,
				Longitude:  req.Longitude,
				Turbine:    req.turbinePayload(),
			})
			if err != nil {
				return nil, nil, fmt.Errorf("wind profile for cutout %s: %w", cutout, err)
			}
			wind["wind_"+stem] = series
			g.metrics.ProfilesGenerated.WithLabelValues("wind").Inc()
		}

		if req.wantSolar() {
			for i := range req.Slopes {
				slope, azimuth := req.Slopes[i], req.Azimuths[i]
				g.logger.Info("computing solar profile",
					"cutout", path, "panel", req.PanelModel, "slope", slope, "azimuth", azimuth)
				series, err := g.computer.ComputeSolarProfile(ctx, atlite.SolarProfileRequest{
					CutoutPath: path,
					Latitude:   req.Latitude,
					Longitude:  req.Longitude,
					Panel:      req.panelPayload(),
					Slope:      slope,
					Azimuth:    azimuth,
				})
				if err != nil {
					return nil, nil, fmt.Errorf("solar profile for cutout %s (slope=%g, azimuth=%g): %w",
						cutout, slope, azimuth, err)
				}
				key := "solar_" + formatAngle(slope) + "_" + formatAngle(azimuth) + "_" + stem
				solar[key] = series
				g.metrics.ProfilesGenerated.WithLabelValues("solar").Inc()
			}
		}
	}
	return wind, solar, nil
}

// serializeProfiles extracts the shared index and per-series values. All
// series in one family must share a single time index.
func serializeProfiles(profiles map[string]*atlite.ProfileSeries) ([]string, map[string]SeriesPayload, error) {
	if len(profiles) == 0 {
		return nil, nil, nil
	}

	var shared []string
	data := make(map[string]SeriesPayload, len(profiles))
	for key, series := range profiles {
		if shared == nil {
			shared = series.Index
		} else if !sameIndex(shared, series.Index) {
			return nil, nil, errors.New("all generated profiles must share the same time index for response serialization")
		}
		data[key] = SeriesPayload{Values: series.Values}
	}
	return shared, data, nil
}

func sameIndex(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cutoutStem(cutout string) string {
	return strings.TrimSuffix(filepath.Base(cutout), filepath.Ext(cutout))
}

func formatAngle(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
