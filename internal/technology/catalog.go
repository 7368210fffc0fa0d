package technology

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/thesethtruth/atlite-profiles-api/internal/atlite"
)

// Catalog lists available technologies from the upstream library and the
// local custom directories. Library listing failures degrade to empty
// results: catalogs are advisory and must never take a request down.
type Catalog struct {
	windDir  string
	solarDir string
	library  atlite.Library
	logger   *slog.Logger
}

// NewCatalog creates a catalog over the local directories and the library.
func NewCatalog(windDir, solarDir string, library atlite.Library, logger *slog.Logger) *Catalog {
	return &Catalog{windDir: windDir, solarDir: solarDir, library: library, logger: logger}
}

// TurbineCatalog lists turbines by provenance.
type TurbineCatalog struct {
	Atlite         []string `json:"atlite"`
	CustomTurbines []string `json:"custom_turbines"`
}

// SolarCatalog lists solar technologies by provenance.
type SolarCatalog struct {
	Atlite                  []string `json:"atlite"`
	CustomSolarTechnologies []string `json:"custom_solar_technologies"`
}

// Turbines returns the turbine catalog.
func (c *Catalog) Turbines(ctx context.Context) TurbineCatalog {
	return TurbineCatalog{
		Atlite:         c.libraryNames(ctx, c.library.TurbinePaths, "turbine"),
		CustomTurbines: listLocalYAMLNames(c.windDir),
	}
}

// SolarTechnologies returns the solar technology catalog.
func (c *Catalog) SolarTechnologies(ctx context.Context) SolarCatalog {
	return SolarCatalog{
		Atlite:                  c.libraryNames(ctx, c.library.SolarPanelPaths, "solar"),
		CustomSolarTechnologies: listLocalYAMLNames(c.solarDir),
	}
}

// AvailableTurbines returns the merged, deduplicated turbine name list.
func (c *Catalog) AvailableTurbines(ctx context.Context) []string {
	catalog := c.Turbines(ctx)
	return mergeSorted(catalog.Atlite, catalog.CustomTurbines)
}

// AvailableSolarTechnologies returns the merged, deduplicated solar
// technology name list.
func (c *Catalog) AvailableSolarTechnologies(ctx context.Context) []string {
	catalog := c.SolarTechnologies(ctx)
	return mergeSorted(catalog.Atlite, catalog.CustomSolarTechnologies)
}

// TurbinePaths exposes the library's turbine path map, degrading to empty on
// failure. Used by catalog listings that also show per-file metrics.
func (c *Catalog) TurbinePaths(ctx context.Context) map[string]string {
	paths, err := c.library.TurbinePaths(ctx)
	if err != nil {
		c.logger.Warn("library catalog fetch failed", "kind", "turbine", "error", err)
		return map[string]string{}
	}
	return paths
}

func (c *Catalog) libraryNames(ctx context.Context, fetch func(context.Context) (map[string]string, error), kind string) []string {
	paths, err := fetch(ctx)
	if err != nil {
		c.logger.Warn("library catalog fetch failed", "kind", kind, "error", err)
		return []string{}
	}
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// listLocalYAMLNames returns the sorted, deduplicated stems of the *.yaml
// files in dir. A missing directory yields an empty list.
func listLocalYAMLNames(dir string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return []string{}
	}
	seen := map[string]bool{}
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		stem := strings.TrimSuffix(filepath.Base(match), ".yaml")
		if !seen[stem] {
			seen[stem] = true
			names = append(names, stem)
		}
	}
	sort.Strings(names)
	return names
}

func mergeSorted(lists ...[]string) []string {
	seen := map[string]bool{}
	var merged []string
	for _, list := range lists {
		for _, item := range list {
			if !seen[item] {
				seen[item] = true
				merged = append(merged, item)
			}
		}
	}
	sort.Strings(merged)
	return merged
}
