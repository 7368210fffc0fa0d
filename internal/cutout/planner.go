package cutout

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/thesethtruth/atlite-profiles-api/internal/atlite"
	"github.com/thesethtruth/atlite-profiles-api/internal/observability"
	"github.com/thesethtruth/atlite-profiles-api/internal/transport"
)

// FetchOptions controls one reconciliation pass over the configured cutouts.
type FetchOptions struct {
	// ForceRefresh re-fetches cutouts whose destination already exists.
	ForceRefresh bool
	// Name restricts the pass to the single entry with this name.
	Name string
	// ValidateExisting attaches a metadata validation report to the result.
	ValidateExisting bool
}

// FetchResult summarizes a reconciliation pass.
type FetchResult struct {
	Status           string   `json:"status"`
	Fetched          []string `json:"fetched"`
	Skipped          []string `json:"skipped"`
	FetchedCount     int      `json:"fetched_count"`
	SkippedCount     int      `json:"skipped_count"`
	ValidationReport *Report  `json:"validation_report,omitempty"`
}

// Planner reconciles configured cutouts against their storage targets,
// preparing and delivering whatever is absent or force-refreshed.
type Planner struct {
	preparer atlite.Preparer
	remote   *transport.SSH
	reporter *Reporter
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewPlanner creates a cutout fetch planner.
func NewPlanner(preparer atlite.Preparer, remote *transport.SSH, reporter *Reporter, logger *slog.Logger, metrics *observability.Metrics) *Planner {
	return &Planner{
		preparer: preparer,
		remote:   remote,
		reporter: reporter,
		logger:   logger,
		metrics:  metrics,
	}
}

// FetchAll runs one reconciliation pass over the configuration. Existing
// destinations are skipped unless ForceRefresh is set; remote targets are
// prepared in a staging directory and copied over ssh/scp.
func (p *Planner) FetchAll(ctx context.Context, cfg *Config, opts FetchOptions) (*FetchResult, error) {
	atlite.ApplyCDSAPIEnvFallback()

	entries := cfg.Cutouts
	if opts.Name != "" {
		entries = nil
		for _, entry := range cfg.Cutouts {
			if entry.Name == opts.Name {
				entries = append(entries, entry)
			}
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("%w: '%s'", ErrNotFound, opts.Name)
		}
	}

	result := &FetchResult{Status: "ok", Fetched: []string{}, Skipped: []string{}}
	if opts.ValidateExisting {
		result.ValidationReport = &Report{Enabled: true, Entries: []ValidationEntry{}}
	}

	for i := range entries {
		entry := &entries[i]
		destination := entry.DestinationPath()

		exists, err := p.destinationExists(ctx, entry)
		if err != nil {
			return nil, err
		}

		if result.ValidationReport != nil {
			result.ValidationReport.Add(p.reporter.ValidateEntry(ctx, entry))
		}

		if exists && !opts.ForceRefresh {
			p.logger.Info("cutout exists, skipping", "destination", destination)
			p.metrics.CutoutsSkipped.Inc()
			result.Skipped = append(result.Skipped, destination)
			continue
		}

		delivered, err := p.fetchEntry(ctx, entry, opts.ForceRefresh)
		if err != nil {
			return nil, fmt.Errorf("fetch cutout %s: %w", entry.describe(), err)
		}
		p.metrics.CutoutsFetched.Inc()
		result.Fetched = append(result.Fetched, delivered)
	}

	result.FetchedCount = len(result.Fetched)
	result.SkippedCount = len(result.Skipped)
	return result, nil
}

func (p *Planner) destinationExists(ctx context.Context, entry *Entry) (bool, error) {
	if entry.IsRemote() {
		host, dir, err := SplitRemoteTarget(entry.Target)
		if err != nil {
			return false, err
		}
		return p.remote.FileExists(ctx, host, TargetPath(dir, entry.Filename))
	}
	_, err := os.Stat(entry.LocalPath())
	return err == nil, nil
}

// fetchEntry prepares one cutout and delivers it to its target, returning
// the delivered path (host:path for remote targets).
func (p *Planner) fetchEntry(ctx context.Context, entry *Entry, forceRefresh bool) (string, error) {
	if entry.IsRemote() {
		return p.fetchRemote(ctx, entry)
	}
	return p.fetchLocal(ctx, entry, forceRefresh)
}

func (p *Planner) fetchRemote(ctx context.Context, entry *Entry) (string, error) {
	host, dir, err := SplitRemoteTarget(entry.Target)
	if err != nil {
		return "", err
	}

	staging, err := os.MkdirTemp("", "cutout-staging-")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	localFile := filepath.Join(staging, entry.Filename)
	if err := p.prepare(ctx, entry, localFile); err != nil {
		return "", err
	}

	if err := p.remote.Mkdir(ctx, host, dir); err != nil {
		return "", err
	}
	remoteFile := TargetPath(dir, entry.Filename)
	if err := p.remote.Copy(ctx, localFile, host, remoteFile); err != nil {
		return "", err
	}
	return host + ":" + remoteFile, nil
}

func (p *Planner) fetchLocal(ctx context.Context, entry *Entry, forceRefresh bool) (string, error) {
	if err := os.MkdirAll(entry.Target, 0o755); err != nil {
		return "", fmt.Errorf("create target dir %s: %w", entry.Target, err)
	}

	localFile := entry.LocalPath()
	if forceRefresh {
		if err := os.Remove(localFile); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("remove stale cutout %s: %w", localFile, err)
		}
	}

	if err := p.prepare(ctx, entry, localFile); err != nil {
		return "", err
	}
	return localFile, nil
}

func (p *Planner) prepare(ctx context.Context, entry *Entry, path string) error {
	spec, err := entry.PrepareSpec(path)
	if err != nil {
		return err
	}
	p.logger.Info("preparing cutout",
		"name", entry.describe(),
		"path", path,
		"module", spec.Module,
		"features", spec.Features,
	)
	return p.preparer.PrepareCutout(ctx, spec)
}
