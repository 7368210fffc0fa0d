// Command profiles is the operational CLI for the profiles service: listing
// and inspecting technologies, fetching cutouts, and generating profiles
// without going through the HTTP API.
//
// Usage:
//
//	profiles list-turbines [-sort name|hub_height|power]
//	profiles list-solar-technologies
//	profiles inspect-turbine <name>
//	profiles inspect-solar-technology <name>
//	profiles fetch-cutouts [-config file] [-name entry] [-force-refresh] [-validate-existing]
//	profiles generate -type wind|solar|both -lat L -lon L -cutouts a.nc,b.nc [...]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/thesethtruth/atlite-profiles-api/internal/adapter/kafka"
	"github.com/thesethtruth/atlite-profiles-api/internal/atlite"
	"github.com/thesethtruth/atlite-profiles-api/internal/config"
	"github.com/thesethtruth/atlite-profiles-api/internal/cutout"
	"github.com/thesethtruth/atlite-profiles-api/internal/observability"
	"github.com/thesethtruth/atlite-profiles-api/internal/profile"
	"github.com/thesethtruth/atlite-profiles-api/internal/technology"
	"github.com/thesethtruth/atlite-profiles-api/internal/transport"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	app, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	command, args := os.Args[1], os.Args[2:]

	var code int
	switch command {
	case "list-turbines":
		code = app.listTurbines(ctx, args)
	case "list-solar-technologies":
		code = app.listSolarTechnologies(ctx, args)
	case "inspect-turbine":
		code = app.inspectTurbine(ctx, args)
	case "inspect-solar-technology":
		code = app.inspectSolarTechnology(ctx, args)
	case "fetch-cutouts":
		code = app.fetchCutouts(ctx, args)
	case "generate":
		code = app.generate(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		usage()
		code = 1
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: profiles <command> [flags]")
	fmt.Fprintln(os.Stderr, "commands: list-turbines, list-solar-technologies, inspect-turbine,")
	fmt.Fprintln(os.Stderr, "          inspect-solar-technology, fetch-cutouts, generate")
}

// app wires the CLI commands to the service collaborators.
type app struct {
	cfg       *config.Config
	bridge    *atlite.Bridge
	library   atlite.Library
	catalog   *technology.Catalog
	resolver  *technology.Resolver
	generator *profile.Generator
	metrics   *observability.Metrics
}

func newApp(cfg *config.Config) (*app, error) {
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	bridge := atlite.NewBridge(cfg.BridgeCommand, cfg.BridgeTimeout, logger, metrics)
	var library atlite.Library = bridge
	if cfg.CatalogCachePath != "" {
		library = atlite.NewCachedLibrary(bridge, cfg.CatalogCachePath, cfg.CatalogCacheTTL, clockwork.NewRealClock())
	}

	return &app{
		cfg:       cfg,
		bridge:    bridge,
		library:   library,
		catalog:   technology.NewCatalog(cfg.WindConfigDir, cfg.SolarConfigDir, library, logger),
		resolver:  technology.NewResolver(cfg.WindConfigDir, cfg.SolarConfigDir, library, logger, metrics),
		generator: profile.NewGenerator(bridge, logger, metrics),
		metrics:   metrics,
	}, nil
}

func (a *app) listTurbines(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("list-turbines", flag.ExitOnError)
	sortBy := fs.String("sort", "name", "sort order: name, hub_height, or power")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	type row struct {
		name      string
		power     *float64
		hubHeight *float64
	}

	libraryPaths := a.catalog.TurbinePaths(ctx)
	rows := []row{}
	for _, name := range a.catalog.AvailableTurbines(ctx) {
		path := localDefinitionPath(a.cfg.WindConfigDir, name)
		if path == "" {
			path = libraryPaths[name]
		}
		power, hubHeight := technology.TurbineMetricsFromFile(path)
		rows = append(rows, row{name: name, power: power, hubHeight: hubHeight})
	}

	switch *sortBy {
	case "name":
		sort.Slice(rows, func(i, j int) bool {
			return strings.ToLower(rows[i].name) < strings.ToLower(rows[j].name)
		})
	case "hub_height":
		sort.Slice(rows, func(i, j int) bool {
			return metricLess(rows[i].hubHeight, rows[j].hubHeight, rows[i].name, rows[j].name)
		})
	case "power":
		sort.Slice(rows, func(i, j int) bool {
			return metricLess(rows[i].power, rows[j].power, rows[i].name, rows[j].name)
		})
	default:
		fmt.Fprintf(os.Stderr, "invalid -sort value %q (want name, hub_height, or power)\n", *sortBy)
		return 1
	}

	fmt.Printf("%-52s %12s %12s\n", "TURBINE", "POWER [MW]", "HUB [m]")
	for _, r := range rows {
		fmt.Printf("%-52s %12s %12s\n", r.name, formatMetric(r.power, 3), formatMetric(r.hubHeight, 1))
	}
	return 0
}

func (a *app) listSolarTechnologies(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("list-solar-technologies", flag.ExitOnError)
	fs.Parse(args) //nolint:errcheck // ExitOnError

	for _, name := range a.catalog.AvailableSolarTechnologies(ctx) {
		fmt.Println(name)
	}
	return 0
}

func (a *app) inspectTurbine(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("inspect-turbine", flag.ExitOnError)
	fs.Parse(args) //nolint:errcheck // ExitOnError
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: profiles inspect-turbine <name>")
		return 1
	}

	inspection, err := a.resolver.InspectTurbine(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	meta := inspection.Metadata
	fmt.Printf("name:            %s\n", meta.Name)
	fmt.Printf("manufacturer:    %s\n", meta.Manufacturer)
	fmt.Printf("source:          %s\n", meta.Source)
	fmt.Printf("provider:        %s\n", meta.Provider)
	fmt.Printf("hub height [m]:  %s\n", formatMetric(meta.HubHeightM, 1))
	fmt.Printf("power [MW]:      %s\n", formatMetric(meta.RatedPowerMW, 3))
	fmt.Printf("definition file: %s\n", meta.DefinitionFile)
	fmt.Printf("curve points:    %d (speeds %s..%s m/s)\n",
		inspection.CurveSummary.PointCount,
		formatMetric(inspection.CurveSummary.SpeedMin, 1),
		formatMetric(inspection.CurveSummary.SpeedMax, 1))
	return 0
}

func (a *app) inspectSolarTechnology(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("inspect-solar-technology", flag.ExitOnError)
	fs.Parse(args) //nolint:errcheck // ExitOnError
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: profiles inspect-solar-technology <name>")
		return 1
	}

	inspection, err := a.resolver.InspectSolarTechnology(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	meta := inspection.Metadata
	fmt.Printf("name:            %s\n", meta.Name)
	fmt.Printf("model:           %v\n", inspection.Parameters["model"])
	fmt.Printf("manufacturer:    %s\n", meta.Manufacturer)
	fmt.Printf("source:          %s\n", meta.Source)
	fmt.Printf("provider:        %s\n", meta.Provider)
	fmt.Printf("definition file: %s\n", meta.DefinitionFile)

	keys := make([]string, 0, len(inspection.Parameters))
	for key := range inspection.Parameters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("  %-20s %v\n", key, inspection.Parameters[key])
	}
	return 0
}

func (a *app) fetchCutouts(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("fetch-cutouts", flag.ExitOnError)
	configFile := fs.String("config", a.cfg.CutoutConfigFile, "cutout fetch configuration file")
	forceRefresh := fs.Bool("force-refresh", false, "re-fetch cutouts whose destination already exists")
	name := fs.String("name", "", "fetch only the entry with this name")
	validateExisting := fs.Bool("validate-existing", false, "validate existing cutouts against the configuration")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	cutoutCfg, err := cutout.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	logger := observability.NewLogger(a.cfg)
	remote := transport.NewSSH(logger)
	reporter := cutout.NewReporter(a.bridge, logger, a.metrics)
	planner := cutout.NewPlanner(a.bridge, remote, reporter, logger, a.metrics)

	result, err := planner.FetchAll(ctx, cutoutCfg, cutout.FetchOptions{
		ForceRefresh:     *forceRefresh,
		Name:             *name,
		ValidateExisting: *validateExisting,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	if a.cfg.KafkaEnabled {
		publisher := kafka.NewPublisher(a.cfg, logger)
		defer publisher.Close() //nolint:errcheck // best-effort close
		if err := publisher.Publish(ctx, "cutouts_fetched", result); err != nil {
			logger.Warn("event publish failed", "error", err)
		}
	}

	for _, path := range result.Fetched {
		fmt.Printf("fetched  %s\n", path)
	}
	for _, path := range result.Skipped {
		fmt.Printf("skipped  %s\n", path)
	}
	fmt.Printf("%d fetched, %d skipped\n", result.FetchedCount, result.SkippedCount)

	if report := result.ValidationReport; report != nil {
		fmt.Println()
		fmt.Printf("validation: %d checked, %d matched, %d mismatched, %d missing, %d remote skipped, %d errors\n",
			report.Checked, report.Matched, report.Mismatched, report.Missing, report.RemoteSkipped, report.Errors)
		for _, entry := range report.Entries {
			fmt.Printf("  %-10s %s\n", entry.Status, entry.Path)
			for _, mismatch := range entry.Mismatches {
				fmt.Printf("             %s\n", mismatch)
			}
			if entry.Error != "" {
				fmt.Printf("             %s\n", entry.Error)
			}
		}
		if report.Mismatched > 0 || report.Errors > 0 {
			return 1
		}
	}
	return 0
}

func (a *app) generate(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	profileType := fs.String("type", profile.TypeBoth, "profile type: wind, solar, or both")
	lat := fs.Float64("lat", 52.0, "latitude of the location")
	lon := fs.Float64("lon", 5.0, "longitude of the location")
	basePath := fs.String("base-path", a.cfg.BasePath, "directory cutout filenames resolve against")
	cutouts := fs.String("cutouts", "", "comma-separated cutout filenames")
	turbine := fs.String("turbine", a.cfg.DefaultTurbine, "turbine model name")
	panel := fs.String("panel", a.cfg.DefaultPanel, "solar panel model name")
	slopes := fs.String("slopes", "30", "comma-separated panel slopes in degrees")
	azimuths := fs.String("azimuths", "180", "comma-separated panel azimuths in degrees")
	outputDir := fs.String("output-dir", a.cfg.OutputDir, "directory for the generated CSV files")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	slopeValues, err := parseFloats(*slopes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: invalid -slopes: %v\n", err)
		return 1
	}
	azimuthValues, err := parseFloats(*azimuths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: invalid -azimuths: %v\n", err)
		return 1
	}

	req := &profile.Request{
		ProfileType:  *profileType,
		Latitude:     *lat,
		Longitude:    *lon,
		BasePath:     *basePath,
		Cutouts:      splitList(*cutouts),
		TurbineModel: *turbine,
		PanelModel:   *panel,
		Slopes:       slopeValues,
		Azimuths:     azimuthValues,
	}

	result, err := a.generator.GenerateToStorage(ctx, req, profile.DefaultStorageConfig(*outputDir), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return 1
	}

	for _, file := range result.StoredFiles {
		fmt.Printf("stored  %s\n", file)
	}
	fmt.Printf("%d wind, %d solar profiles written to %s\n",
		result.WindProfiles, result.SolarProfiles, result.OutputDir)
	return 0
}

func localDefinitionPath(dir, name string) string {
	path := dir + string(os.PathSeparator) + name + ".yaml"
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// metricLess orders descending by metric, missing values last, names as
// tiebreaker.
func metricLess(a, b *float64, nameA, nameB string) bool {
	switch {
	case a == nil && b == nil:
		return strings.ToLower(nameA) < strings.ToLower(nameB)
	case a == nil:
		return false
	case b == nil:
		return true
	case *a != *b:
		return *a > *b
	default:
		return strings.ToLower(nameA) < strings.ToLower(nameB)
	}
}

func formatMetric(v *float64, digits int) string {
	if v == nil {
		return "-"
	}
	s := strconv.FormatFloat(*v, 'f', digits, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func parseFloats(raw string) ([]float64, error) {
	parts := splitList(raw)
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", part)
		}
		values = append(values, v)
	}
	return values, nil
}

func splitList(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
