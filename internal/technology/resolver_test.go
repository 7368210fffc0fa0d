package technology

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesethtruth/atlite-profiles-api/internal/observability"
)

type fakeLibrary struct {
	turbines map[string]string
	solar    map[string]string
	err      error
}

func (f *fakeLibrary) TurbinePaths(context.Context) (map[string]string, error) {
	return f.turbines, f.err
}

func (f *fakeLibrary) SolarPanelPaths(context.Context) (map[string]string, error) {
	return f.solar, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const turbineYAML = "name: TestTurbine\nmanufacturer: ACME\nHUB_HEIGHT: 120\nP: 5600\nV: [0, 10, 20]\nPOW: [0, 3200, 5600]\n"

func newTestResolver(t *testing.T, library *fakeLibrary) (*Resolver, string, string) {
	t.Helper()
	windDir := t.TempDir()
	solarDir := t.TempDir()
	r := NewResolver(windDir, solarDir, library, testLogger(), observability.NewMetricsForTesting())
	return r, windDir, solarDir
}

func TestResolver_ResolveTurbineFile(t *testing.T) {
	t.Run("custom definition wins over library", func(t *testing.T) {
		libDir := t.TempDir()
		libPath := writeYAML(t, libDir, "Model_A.yaml", turbineYAML)
		library := &fakeLibrary{turbines: map[string]string{"Model_A": libPath}}

		r, windDir, _ := newTestResolver(t, library)
		customPath := writeYAML(t, windDir, "Model_A.yaml", turbineYAML)

		provenance, path, err := r.ResolveTurbineFile(context.Background(), "Model_A")
		require.NoError(t, err)
		assert.Equal(t, ProvenanceCustom, provenance)
		assert.Equal(t, customPath, path)
	})

	t.Run("falls back to library", func(t *testing.T) {
		libDir := t.TempDir()
		libPath := writeYAML(t, libDir, "Model_B.yaml", turbineYAML)
		library := &fakeLibrary{turbines: map[string]string{"Model_B": libPath}}

		r, _, _ := newTestResolver(t, library)
		provenance, path, err := r.ResolveTurbineFile(context.Background(), "Model_B")
		require.NoError(t, err)
		assert.Equal(t, ProvenanceAtlite, provenance)
		assert.Equal(t, libPath, path)
	})

	t.Run("library fetch failure reads as not found", func(t *testing.T) {
		library := &fakeLibrary{err: errors.New("toolkit unavailable")}
		r, _, _ := newTestResolver(t, library)

		_, _, err := r.ResolveTurbineFile(context.Background(), "Model_C")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("library fetch failure still resolves custom files", func(t *testing.T) {
		library := &fakeLibrary{err: errors.New("toolkit unavailable")}
		r, windDir, _ := newTestResolver(t, library)
		writeYAML(t, windDir, "Model_D.yaml", turbineYAML)

		provenance, _, err := r.ResolveTurbineFile(context.Background(), "Model_D")
		require.NoError(t, err)
		assert.Equal(t, ProvenanceCustom, provenance)
	})

	t.Run("unknown name", func(t *testing.T) {
		r, _, _ := newTestResolver(t, &fakeLibrary{turbines: map[string]string{}})
		_, _, err := r.ResolveTurbineFile(context.Background(), "Nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "'Nope' was not found")
	})

	t.Run("library entry pointing at a missing file is not found", func(t *testing.T) {
		library := &fakeLibrary{turbines: map[string]string{"Ghost": "/nonexistent/ghost.yaml"}}
		r, _, _ := newTestResolver(t, library)
		_, _, err := r.ResolveTurbineFile(context.Background(), "Ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestResolver_InspectTurbine(t *testing.T) {
	t.Run("full inspection payload", func(t *testing.T) {
		r, windDir, _ := newTestResolver(t, &fakeLibrary{})
		writeYAML(t, windDir, "Model_A.yaml", turbineYAML)

		inspection, err := r.InspectTurbine(context.Background(), "Model_A")
		require.NoError(t, err)

		assert.Equal(t, "ok", inspection.Status)
		assert.Equal(t, "Model_A", inspection.Turbine)
		assert.Equal(t, "TestTurbine", inspection.Metadata.Name)
		assert.Equal(t, "ACME", inspection.Metadata.Manufacturer)
		assert.Equal(t, ProvenanceCustom, inspection.Metadata.Provider)
		require.NotNil(t, inspection.Metadata.HubHeightM)
		assert.Equal(t, 120.0, *inspection.Metadata.HubHeightM)
		require.NotNil(t, inspection.Metadata.RatedPowerMW)
		assert.InDelta(t, 5.6, *inspection.Metadata.RatedPowerMW, 1e-9)

		require.Len(t, inspection.Curve, 3)
		assert.InDelta(t, 3.2, inspection.Curve[1].PowerMW, 1e-9)
		assert.Equal(t, 3, inspection.CurveSummary.PointCount)
		require.NotNil(t, inspection.CurveSummary.SpeedMin)
		assert.Equal(t, 0.0, *inspection.CurveSummary.SpeedMin)
		assert.Equal(t, 20.0, *inspection.CurveSummary.SpeedMax)
	})

	t.Run("missing optional fields fall back", func(t *testing.T) {
		r, windDir, _ := newTestResolver(t, &fakeLibrary{})
		writeYAML(t, windDir, "Bare.yaml", "V: [0, 10]\nPOW: [0, 2]\n")

		inspection, err := r.InspectTurbine(context.Background(), "Bare")
		require.NoError(t, err)
		assert.Equal(t, "Bare", inspection.Metadata.Name)
		assert.Equal(t, "unknown", inspection.Metadata.Manufacturer)
		assert.Equal(t, ProvenanceCustom, inspection.Metadata.Source)
		assert.Nil(t, inspection.Metadata.HubHeightM)
	})

	t.Run("library provenance uses synthetic resource path", func(t *testing.T) {
		libDir := t.TempDir()
		libPath := writeYAML(t, libDir, "Lib_T.yaml", turbineYAML)
		r, _, _ := newTestResolver(t, &fakeLibrary{turbines: map[string]string{"Lib_T": libPath}})

		inspection, err := r.InspectTurbine(context.Background(), "Lib_T")
		require.NoError(t, err)
		assert.Equal(t, "atlite/resources/windturbine/Lib_T", inspection.Metadata.DefinitionFile)
	})

	t.Run("invalid definition file", func(t *testing.T) {
		r, windDir, _ := newTestResolver(t, &fakeLibrary{})
		writeYAML(t, windDir, "Broken.yaml", "- just\n- a\n- list\n")

		_, err := r.InspectTurbine(context.Background(), "Broken")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidDefinition)
		assert.Contains(t, err.Error(), "invalid definition file")
	})
}

func TestResolver_InspectSolarTechnology(t *testing.T) {
	const solarYAML = `name: TestSi
model: huld
efficiency: 0.1
c_temp_amb: 1.0
c_temp_irrad: 0.035
r_tamb: 293.0
r_tmod: 298.0
r_irradiance: 1000.0
k_1: -0.017162
k_2: -0.040289
k_3: -0.004681
k_4: 0.000148
k_5: 0.000169
k_6: 0.000005
inverter_efficiency: 0.9
`

	t.Run("full inspection payload", func(t *testing.T) {
		r, _, solarDir := newTestResolver(t, &fakeLibrary{})
		writeYAML(t, solarDir, "TestSi.yaml", solarYAML)

		inspection, err := r.InspectSolarTechnology(context.Background(), "TestSi")
		require.NoError(t, err)
		assert.Equal(t, "ok", inspection.Status)
		assert.Equal(t, "TestSi", inspection.Technology)
		assert.Equal(t, "huld", inspection.Parameters["model"])
		assert.Equal(t, 0.9, inspection.Parameters["inverter_efficiency"])
		assert.Equal(t, "unknown", inspection.Metadata.Manufacturer)
		assert.Equal(t, ProvenanceCustom, inspection.Metadata.Provider)
	})

	t.Run("missing required fields surface as invalid", func(t *testing.T) {
		r, _, solarDir := newTestResolver(t, &fakeLibrary{})
		writeYAML(t, solarDir, "Partial.yaml", "model: huld\nefficiency: 0.1\n")

		_, err := r.InspectSolarTechnology(context.Background(), "Partial")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidDefinition)
	})

	t.Run("unknown name", func(t *testing.T) {
		r, _, _ := newTestResolver(t, &fakeLibrary{})
		_, err := r.InspectSolarTechnology(context.Background(), "Nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
