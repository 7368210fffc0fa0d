package technology

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/thesethtruth/atlite-profiles-api/internal/atlite"
	"github.com/thesethtruth/atlite-profiles-api/internal/observability"
)

// Provenance of a resolved technology definition.
const (
	ProvenanceCustom = "custom"
	ProvenanceAtlite = "atlite"
)

// Resolver locates turbine and solar technology definitions, preferring
// local custom files over the upstream library's bundled resources.
type Resolver struct {
	windDir  string
	solarDir string
	library  atlite.Library
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewResolver creates a resolver over the local definition directories and
// the upstream library.
func NewResolver(windDir, solarDir string, library atlite.Library, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{
		windDir:  windDir,
		solarDir: solarDir,
		library:  library,
		logger:   logger,
		metrics:  metrics,
	}
}

// TurbineMetadata describes a resolved turbine definition.
type TurbineMetadata struct {
	Name           string   `json:"name"`
	Manufacturer   string   `json:"manufacturer"`
	Source         string   `json:"source"`
	Provider       string   `json:"provider"`
	HubHeightM     *float64 `json:"hub_height_m"`
	RatedPowerMW   *float64 `json:"rated_power_mw"`
	DefinitionFile string   `json:"definition_file"`
}

// CurveSummary summarizes a turbine power curve.
type CurveSummary struct {
	PointCount int      `json:"point_count"`
	SpeedMin   *float64 `json:"speed_min"`
	SpeedMax   *float64 `json:"speed_max"`
}

// TurbineInspection is the uniform inspection payload for a turbine.
type TurbineInspection struct {
	Status       string          `json:"status"`
	Turbine      string          `json:"turbine"`
	Metadata     TurbineMetadata `json:"metadata"`
	Curve        []CurvePoint    `json:"curve"`
	CurveSummary CurveSummary    `json:"curve_summary"`
}

// SolarMetadata describes a resolved solar technology definition.
type SolarMetadata struct {
	Name           string `json:"name"`
	Manufacturer   string `json:"manufacturer"`
	Source         string `json:"source"`
	Provider       string `json:"provider"`
	DefinitionFile string `json:"definition_file"`
}

// SolarInspection is the uniform inspection payload for a solar technology.
type SolarInspection struct {
	Status     string         `json:"status"`
	Technology string         `json:"technology"`
	Metadata   SolarMetadata  `json:"metadata"`
	Parameters map[string]any `json:"parameters"`
}

// ResolveTurbineFile locates a turbine definition, returning its provenance
// and path.
func (r *Resolver) ResolveTurbineFile(ctx context.Context, name string) (string, string, error) {
	return r.resolveFile(ctx, name, r.windDir, r.library.TurbinePaths, "Turbine", "turbine")
}

// ResolveSolarFile locates a solar technology definition, returning its
// provenance and path.
func (r *Resolver) ResolveSolarFile(ctx context.Context, name string) (string, string, error) {
	return r.resolveFile(ctx, name, r.solarDir, r.library.SolarPanelPaths, "Solar technology", "solar")
}

// resolveFile checks the local directory first (custom definitions always
// win), then the library catalog. Catalog fetch failures are swallowed here:
// the library is advisory and a broken install must read as "not found", not
// as a crash.
func (r *Resolver) resolveFile(
	ctx context.Context,
	name, localDir string,
	fetchPaths func(context.Context) (map[string]string, error),
	label, kind string,
) (string, string, error) {
	localFile := filepath.Join(localDir, name+".yaml")
	if _, err := os.Stat(localFile); err == nil {
		r.countLookup(kind, ProvenanceCustom)
		return ProvenanceCustom, localFile, nil
	}

	paths, err := fetchPaths(ctx)
	if err != nil {
		r.logger.Warn("library catalog fetch failed", "kind", kind, "error", err)
		paths = nil
	}
	if path, ok := paths[name]; ok {
		if _, err := os.Stat(path); err == nil {
			r.countLookup(kind, ProvenanceAtlite)
			return ProvenanceAtlite, path, nil
		}
	}

	if r.metrics != nil {
		r.metrics.TechnologyNotFound.WithLabelValues(kind).Inc()
	}
	return "", "", &NotFoundError{Label: label, Name: name}
}

func (r *Resolver) countLookup(kind, provenance string) {
	if r.metrics != nil {
		r.metrics.TechnologyLookups.WithLabelValues(kind, provenance).Inc()
	}
}

// InspectTurbine resolves and parses a turbine definition and assembles the
// inspection payload: metadata, normalized power curve, and curve summary.
func (r *Resolver) InspectTurbine(ctx context.Context, name string) (*TurbineInspection, error) {
	provenance, path, err := r.ResolveTurbineFile(ctx, name)
	if err != nil {
		return nil, err
	}
	def, err := LoadDefinition(path)
	if err != nil {
		return nil, &InvalidDefinitionError{Label: "Turbine", Name: name}
	}

	curve := ToCurvePoints(def)
	summary := CurveSummary{PointCount: len(curve)}
	if len(curve) > 0 {
		minSpeed, maxSpeed := curve[0].Speed, curve[0].Speed
		for _, pt := range curve[1:] {
			if pt.Speed < minSpeed {
				minSpeed = pt.Speed
			}
			if pt.Speed > maxSpeed {
				maxSpeed = pt.Speed
			}
		}
		summary.SpeedMin = &minSpeed
		summary.SpeedMax = &maxSpeed
	}

	metadata := TurbineMetadata{
		Name:           stringOr(def.stringField("name"), name),
		Manufacturer:   stringOr(def.stringField("manufacturer"), "unknown"),
		Source:         stringOr(def.stringField("source"), provenance),
		Provider:       provenance,
		DefinitionFile: displayDefinitionFile(provenance, path, name, "windturbine"),
	}
	if hub, ok := def.floatField("HUB_HEIGHT"); ok {
		metadata.HubHeightM = &hub
	}
	if rated, ok := RatedPowerMW(def); ok {
		metadata.RatedPowerMW = &rated
	}

	return &TurbineInspection{
		Status:       "ok",
		Turbine:      name,
		Metadata:     metadata,
		Curve:        curve,
		CurveSummary: summary,
	}, nil
}

// InspectSolarTechnology resolves and parses a solar technology definition
// and assembles its inspection payload.
func (r *Resolver) InspectSolarTechnology(ctx context.Context, name string) (*SolarInspection, error) {
	provenance, path, err := r.ResolveSolarFile(ctx, name)
	if err != nil {
		return nil, err
	}
	def, err := LoadDefinition(path)
	if err != nil {
		return nil, &InvalidDefinitionError{Label: "Solar technology", Name: name}
	}

	config, err := ParseSolarConfig(map[string]any(def), name)
	if err != nil {
		return nil, err
	}

	return &SolarInspection{
		Status:     "ok",
		Technology: name,
		Metadata: SolarMetadata{
			Name:           config.Name,
			Manufacturer:   stringOr(config.Manufacturer, "unknown"),
			Source:         stringOr(config.Source, provenance),
			Provider:       provenance,
			DefinitionFile: displayDefinitionFile(provenance, path, name, "solarpanel"),
		},
		Parameters: config.Parameters(),
	}, nil
}

// displayDefinitionFile renders a definition path for display: library
// entries use a synthetic resource path, custom entries a cwd-relative one.
func displayDefinitionFile(provenance, path, name, resourceKind string) string {
	if provenance == ProvenanceAtlite {
		return "atlite/resources/" + resourceKind + "/" + name
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func stringOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
