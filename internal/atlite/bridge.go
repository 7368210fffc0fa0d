package atlite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/thesethtruth/atlite-profiles-api/internal/observability"
)

// Bridge reaches the toolkit through a subprocess speaking JSON over stdio:
// the operation name is passed as the single argument, parameters on stdin,
// and the result arrives on stdout wrapped in a {ok, error, result} envelope.
type Bridge struct {
	command string
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics

	// Catalog listings are advisory; the breaker keeps a flapping toolkit
	// install from stalling every lookup on a slow failure.
	catalogBreaker *gobreaker.CircuitBreaker
}

// NewBridge creates a toolkit bridge around the given command.
func NewBridge(command string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Bridge {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "atlite-catalog",
		MaxRequests: 2,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Bridge{
		command:        command,
		timeout:        timeout,
		logger:         logger,
		metrics:        metrics,
		catalogBreaker: cb,
	}
}

// TurbinePaths lists the toolkit's bundled wind turbine definitions.
func (b *Bridge) TurbinePaths(ctx context.Context) (map[string]string, error) {
	return b.catalogPaths(ctx, "turbine-paths")
}

// SolarPanelPaths lists the toolkit's bundled solar panel definitions.
func (b *Bridge) SolarPanelPaths(ctx context.Context) (map[string]string, error) {
	return b.catalogPaths(ctx, "solarpanel-paths")
}

func (b *Bridge) catalogPaths(ctx context.Context, op string) (map[string]string, error) {
	result, err := b.catalogBreaker.Execute(func() (any, error) {
		paths := map[string]string{}
		if err := b.call(ctx, op, struct{}{}, &paths); err != nil {
			return nil, err
		}
		return paths, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}

// InspectCutout reads the metadata of an existing cutout file.
func (b *Bridge) InspectCutout(ctx context.Context, path string) (*CutoutMetadata, error) {
	var meta CutoutMetadata
	params := struct {
		Path string `json:"path"`
	}{Path: path}
	if err := b.call(ctx, "inspect-cutout", params, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// PrepareCutout downloads and prepares a cutout at spec.Path.
func (b *Bridge) PrepareCutout(ctx context.Context, spec PrepareSpec) error {
	return b.call(ctx, "prepare-cutout", spec, &struct{}{})
}

// ComputeWindProfile runs the wind simulation for one location and turbine.
func (b *Bridge) ComputeWindProfile(ctx context.Context, req WindProfileRequest) (*ProfileSeries, error) {
	var series ProfileSeries
	if err := b.call(ctx, "wind-profile", req, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

// ComputeSolarProfile runs the solar simulation for one location and orientation.
func (b *Bridge) ComputeSolarProfile(ctx context.Context, req SolarProfileRequest) (*ProfileSeries, error) {
	var series ProfileSeries
	if err := b.call(ctx, "solar-profile", req, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

func (b *Bridge) call(ctx context.Context, op string, params, result any) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("bridge %s: encode params: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.command, op)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	if b.metrics != nil {
		b.metrics.BridgeCallSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("bridge %s: %w", op, runErr)
		}
		return fmt.Errorf("bridge %s: %w: %s", op, runErr, msg)
	}

	return decodeEnvelope(op, stdout.Bytes(), result)
}

// decodeEnvelope unwraps the bridge response envelope into result.
func decodeEnvelope(op string, data []byte, result any) error {
	var envelope struct {
		OK     bool            `json:"ok"`
		Error  string          `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("bridge %s: decode response: %w", op, err)
	}
	if !envelope.OK {
		return fmt.Errorf("bridge %s: %s", op, envelope.Error)
	}
	if len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("bridge %s: decode result: %w", op, err)
	}
	return nil
}

// ApplyCDSAPIEnvFallback mirrors CDS_KEY/CDS_URL into the CDSAPI_* variables
// the toolkit's downloader reads, when the latter are unset.
func ApplyCDSAPIEnvFallback() {
	if os.Getenv("CDSAPI_KEY") == "" {
		if key := os.Getenv("CDS_KEY"); key != "" {
			os.Setenv("CDSAPI_KEY", key)
		}
	}
	if os.Getenv("CDSAPI_URL") == "" {
		if url := os.Getenv("CDS_URL"); url != "" {
			os.Setenv("CDSAPI_URL", url)
		}
	}
}
