package cutout

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"

	"github.com/thesethtruth/atlite-profiles-api/internal/atlite"
	"github.com/thesethtruth/atlite-profiles-api/internal/observability"
)

// spatialTolerance is the absolute tolerance for bounding-box comparisons.
const spatialTolerance = 1e-6

// Status of one validated cutout entry.
type Status string

const (
	StatusMatch         Status = "match"
	StatusMismatch      Status = "mismatch"
	StatusMissing       Status = "missing"
	StatusRemoteSkipped Status = "remote_skipped"
	StatusError         Status = "error"
)

// MetadataFields is the comparable projection of a cutout's metadata, used
// for both the declared (expected) and on-disk (observed) side.
type MetadataFields struct {
	Module   string    `json:"module"`
	X        []float64 `json:"x"`
	Y        []float64 `json:"y"`
	Time     string    `json:"time"`
	Features []string  `json:"features"`
}

// ValidationEntry is the outcome for one configured cutout.
type ValidationEntry struct {
	Name       string          `json:"name,omitempty"`
	Filename   string          `json:"filename"`
	Path       string          `json:"path"`
	Status     Status          `json:"status"`
	Mismatches []string        `json:"mismatches,omitempty"`
	Error      string          `json:"error,omitempty"`
	Expected   *MetadataFields `json:"expected,omitempty"`
	Observed   *MetadataFields `json:"observed,omitempty"`
}

// Report aggregates validation outcomes across all configured cutouts.
type Report struct {
	Enabled       bool              `json:"enabled"`
	Checked       int               `json:"checked"`
	Matched       int               `json:"matched"`
	Mismatched    int               `json:"mismatched"`
	Missing       int               `json:"missing"`
	RemoteSkipped int               `json:"remote_skipped"`
	Errors        int               `json:"errors"`
	Entries       []ValidationEntry `json:"entries"`
}

// Reporter compares on-disk cutout metadata against declared configuration.
type Reporter struct {
	inspector atlite.Inspector
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewReporter creates a validation reporter over the toolkit inspector.
func NewReporter(inspector atlite.Inspector, logger *slog.Logger, metrics *observability.Metrics) *Reporter {
	return &Reporter{inspector: inspector, logger: logger, metrics: metrics}
}

// ValidateExisting validates every configured cutout. One bad file never
// aborts the pass: inspection failures are captured per entry.
func (r *Reporter) ValidateExisting(ctx context.Context, entries []Entry) *Report {
	report := &Report{Enabled: true, Entries: []ValidationEntry{}}
	for i := range entries {
		report.Add(r.ValidateEntry(ctx, &entries[i]))
	}
	return report
}

// ValidateEntry validates a single configured cutout.
func (r *Reporter) ValidateEntry(ctx context.Context, entry *Entry) ValidationEntry {
	result := r.validateEntry(ctx, entry)
	if r.metrics != nil {
		r.metrics.CutoutValidations.WithLabelValues(string(result.Status)).Inc()
	}
	return result
}

func (r *Reporter) validateEntry(ctx context.Context, entry *Entry) ValidationEntry {
	expected := entry.ExpectedFields()

	if entry.IsRemote() {
		return ValidationEntry{
			Name:     entry.Name,
			Filename: entry.Filename,
			Path:     entry.DestinationPath(),
			Status:   StatusRemoteSkipped,
			Expected: &expected,
		}
	}

	localFile := entry.LocalPath()
	if _, err := os.Stat(localFile); err != nil {
		return ValidationEntry{
			Name:     entry.Name,
			Filename: entry.Filename,
			Path:     localFile,
			Status:   StatusMissing,
			Expected: &expected,
		}
	}

	meta, err := r.inspector.InspectCutout(ctx, localFile)
	if err != nil {
		r.logger.Warn("cutout metadata inspection failed", "path", localFile, "error", err)
		return ValidationEntry{
			Name:     entry.Name,
			Filename: entry.Filename,
			Path:     localFile,
			Status:   StatusError,
			Error:    err.Error(),
			Expected: &expected,
		}
	}

	observed := observedFields(meta)
	mismatches := diffFields(expected, observed)

	status := StatusMatch
	if len(mismatches) > 0 {
		status = StatusMismatch
	}
	return ValidationEntry{
		Name:       entry.Name,
		Filename:   entry.Filename,
		Path:       localFile,
		Status:     status,
		Mismatches: mismatches,
		Expected:   &expected,
		Observed:   &observed,
	}
}

// Add appends an entry and updates the aggregate counters.
func (r *Report) Add(entry ValidationEntry) {
	switch entry.Status {
	case StatusMatch:
		r.Checked++
		r.Matched++
	case StatusMismatch:
		r.Checked++
		r.Mismatched++
	case StatusMissing:
		r.Missing++
	case StatusRemoteSkipped:
		r.RemoteSkipped++
	case StatusError:
		r.Errors++
	}
	r.Entries = append(r.Entries, entry)
}

// observedFields projects inspected metadata into comparable form.
func observedFields(meta *atlite.CutoutMetadata) MetadataFields {
	features := make([]string, len(meta.PreparedFeatures))
	copy(features, meta.PreparedFeatures)
	sort.Strings(features)

	return MetadataFields{
		Module:   meta.Module,
		X:        append([]float64(nil), meta.X...),
		Y:        append([]float64(nil), meta.Y...),
		Time:     InferTimeSpec(meta.TimeStart, meta.TimeEnd),
		Features: features,
	}
}

// diffFields produces one human-readable string per mismatching field.
// Bounding boxes compare within spatialTolerance; expected bounds that did
// not parse to a [min, max] pair are skipped rather than flagged.
func diffFields(expected, observed MetadataFields) []string {
	var mismatches []string

	if observed.Module != expected.Module {
		mismatches = append(mismatches,
			fmt.Sprintf("module (expected=%s, actual=%s)", expected.Module, observed.Module))
	}
	if len(expected.X) == 2 && !boundsMatch(expected.X, observed.X) {
		mismatches = append(mismatches,
			fmt.Sprintf("x (expected=%v, actual=%v)", expected.X, observed.X))
	}
	if len(expected.Y) == 2 && !boundsMatch(expected.Y, observed.Y) {
		mismatches = append(mismatches,
			fmt.Sprintf("y (expected=%v, actual=%v)", expected.Y, observed.Y))
	}
	if observed.Time != expected.Time {
		mismatches = append(mismatches,
			fmt.Sprintf("time (expected=%s, actual=%s)", expected.Time, observed.Time))
	}
	if !stringSlicesEqual(expected.Features, observed.Features) {
		mismatches = append(mismatches,
			fmt.Sprintf("features (expected=%v, actual=%v)", expected.Features, observed.Features))
	}

	return mismatches
}

func boundsMatch(expected, observed []float64) bool {
	if len(observed) != 2 {
		return false
	}
	return closeEnough(observed[0], expected[0]) && closeEnough(observed[1], expected[1])
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= spatialTolerance
}

func stringSlicesEqual(a, b []string) bool {
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
