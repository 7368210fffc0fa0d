package cutout

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesethtruth/atlite-profiles-api/internal/atlite"
	"github.com/thesethtruth/atlite-profiles-api/internal/observability"
	"github.com/thesethtruth/atlite-profiles-api/internal/transport"
)

type fakePreparer struct {
	specs []atlite.PrepareSpec
	err   error
}

func (f *fakePreparer) PrepareCutout(_ context.Context, spec atlite.PrepareSpec) error {
	f.specs = append(f.specs, spec)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(spec.Path, []byte("netcdf"), 0o644)
}

// fakeRunner scripts ssh/scp invocations. A nil entry means success; probe
// commands return a real exit error to signal absence.
type fakeRunner struct {
	calls      []string
	fileExists bool
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	call := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, call)
	if name == "ssh" && strings.Contains(call, "test -f") && !f.fileExists {
		return probeExitError()
	}
	return nil
}

// probeExitError produces a genuine *exec.ExitError for the absent-file case.
func probeExitError() error {
	err := exec.Command("false").Run()
	if err == nil {
		panic("expected non-zero exit")
	}
	return err
}

func newTestPlanner(preparer atlite.Preparer, runner transport.CommandRunner) *Planner {
	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	remote := transport.NewSSHWithRunner(runner, logger)
	reporter := NewReporter(&fakeInspector{meta: matchingMetadata()}, logger, metrics)
	return NewPlanner(preparer, remote, reporter, logger, metrics)
}

func localConfig(t *testing.T) (*Config, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &Config{Cutouts: []Entry{{
		Name:     "europe-2024",
		Filename: "europe-2024-era5.nc",
		Target:   dir,
		Cutout: map[string]any{
			"module": "era5",
			"x":      []any{-12.0, 35.0},
			"y":      []any{33.0, 72.0},
			"time":   "2024",
		},
		Prepare: PrepareConfig{Features: []string{"wind", "height"}},
	}}}
	return cfg, filepath.Join(dir, "europe-2024-era5.nc")
}

func TestPlanner_FetchAll_Local(t *testing.T) {
	t.Run("fetches an absent cutout", func(t *testing.T) {
		cfg, localFile := localConfig(t)
		preparer := &fakePreparer{}
		planner := newTestPlanner(preparer, &fakeRunner{})

		result, err := planner.FetchAll(context.Background(), cfg, FetchOptions{})
		require.NoError(t, err)
		assert.Equal(t, "ok", result.Status)
		assert.Equal(t, []string{localFile}, result.Fetched)
		assert.Empty(t, result.Skipped)
		assert.Equal(t, 1, result.FetchedCount)

		require.Len(t, preparer.specs, 1)
		assert.Equal(t, localFile, preparer.specs[0].Path)
		assert.Equal(t, "era5", preparer.specs[0].Module)
		assert.FileExists(t, localFile)
	})

	t.Run("skips an existing cutout", func(t *testing.T) {
		cfg, localFile := localConfig(t)
		require.NoError(t, os.WriteFile(localFile, []byte("old"), 0o644))
		preparer := &fakePreparer{}
		planner := newTestPlanner(preparer, &fakeRunner{})

		result, err := planner.FetchAll(context.Background(), cfg, FetchOptions{})
		require.NoError(t, err)
		assert.Empty(t, result.Fetched)
		assert.Equal(t, 1, result.SkippedCount)
		assert.Empty(t, preparer.specs)
	})

	t.Run("force refresh re-fetches", func(t *testing.T) {
		cfg, localFile := localConfig(t)
		require.NoError(t, os.WriteFile(localFile, []byte("old"), 0o644))
		preparer := &fakePreparer{}
		planner := newTestPlanner(preparer, &fakeRunner{})

		result, err := planner.FetchAll(context.Background(), cfg, FetchOptions{ForceRefresh: true})
		require.NoError(t, err)
		assert.Equal(t, []string{localFile}, result.Fetched)
		require.Len(t, preparer.specs, 1)
	})

	t.Run("preparation failure aborts with context", func(t *testing.T) {
		cfg, _ := localConfig(t)
		preparer := &fakePreparer{err: fmt.Errorf("downloader unavailable")}
		planner := newTestPlanner(preparer, &fakeRunner{})

		_, err := planner.FetchAll(context.Background(), cfg, FetchOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "europe-2024")
		assert.Contains(t, err.Error(), "downloader unavailable")
	})
}

func TestPlanner_FetchAll_NameFilter(t *testing.T) {
	cfg, localFile := localConfig(t)

	t.Run("matching name fetches only that entry", func(t *testing.T) {
		planner := newTestPlanner(&fakePreparer{}, &fakeRunner{})
		result, err := planner.FetchAll(context.Background(), cfg, FetchOptions{Name: "europe-2024"})
		require.NoError(t, err)
		assert.Equal(t, []string{localFile}, result.Fetched)
	})

	t.Run("unknown name", func(t *testing.T) {
		planner := newTestPlanner(&fakePreparer{}, &fakeRunner{})
		_, err := planner.FetchAll(context.Background(), cfg, FetchOptions{Name: "nope"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "'nope'")
	})
}

func TestPlanner_FetchAll_Remote(t *testing.T) {
	remoteConfig := &Config{Cutouts: []Entry{{
		Name:     "nl-remote",
		Filename: "nl-2024-era5.nc",
		Target:   "box:/srv/cutouts",
		Cutout: map[string]any{
			"module": "era5",
			"x":      []any{3.3, 7.3},
			"y":      []any{50.7, 53.6},
			"time":   "2024",
		},
		Prepare: PrepareConfig{Features: []string{"wind"}},
	}}}

	t.Run("stages, prepares, and copies to the remote", func(t *testing.T) {
		preparer := &fakePreparer{}
		runner := &fakeRunner{}
		planner := newTestPlanner(preparer, runner)

		result, err := planner.FetchAll(context.Background(), remoteConfig, FetchOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"box:/srv/cutouts/nl-2024-era5.nc"}, result.Fetched)

		require.Len(t, preparer.specs, 1)
		assert.Equal(t, "nl-2024-era5.nc", filepath.Base(preparer.specs[0].Path))

		require.Len(t, runner.calls, 3)
		assert.Contains(t, runner.calls[0], "test -f")
		assert.Contains(t, runner.calls[1], "mkdir -p")
		assert.Contains(t, runner.calls[2], "scp")
		assert.Contains(t, runner.calls[2], "box:/srv/cutouts/nl-2024-era5.nc")
	})

	t.Run("skips when the remote file exists", func(t *testing.T) {
		preparer := &fakePreparer{}
		runner := &fakeRunner{fileExists: true}
		planner := newTestPlanner(preparer, runner)

		result, err := planner.FetchAll(context.Background(), remoteConfig, FetchOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"box:/srv/cutouts/nl-2024-era5.nc"}, result.Skipped)
		assert.Empty(t, preparer.specs)
	})
}

func TestPlanner_FetchAll_ValidationReport(t *testing.T) {
	cfg, localFile := localConfig(t)
	require.NoError(t, os.WriteFile(localFile, []byte("netcdf"), 0o644))
	planner := newTestPlanner(&fakePreparer{}, &fakeRunner{})

	result, err := planner.FetchAll(context.Background(), cfg, FetchOptions{ValidateExisting: true})
	require.NoError(t, err)

	report := result.ValidationReport
	require.NotNil(t, report)
	assert.True(t, report.Enabled)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Matched)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, StatusMatch, report.Entries[0].Status)

	t.Run("no report without the flag", func(t *testing.T) {
		result, err := planner.FetchAll(context.Background(), cfg, FetchOptions{})
		require.NoError(t, err)
		assert.Nil(t, result.ValidationReport)
	})
}
