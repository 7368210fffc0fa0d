// Package cutout implements the cutout-fetch reconciliation and validation
// engine: deciding what to fetch or skip, driving retrieval through the
// external toolkit, and diffing on-disk cutout metadata against the
// declared configuration.
package cutout

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/thesethtruth/atlite-profiles-api/internal/atlite"
)

// ErrNotFound marks a name filter that matched no configured cutout.
var ErrNotFound = errors.New("cutout config name not found")

// requiredCutoutFields must all be present in an entry's cutout payload.
var requiredCutoutFields = []string{"module", "x", "y", "time"}

// Entry declares one cutout: its filename, storage target (local directory
// or host:remote_dir), extraction parameters, and features to prepare.
type Entry struct {
	Name     string         `mapstructure:"name" json:"name,omitempty"`
	Filename string         `mapstructure:"filename" json:"filename"`
	Target   string         `mapstructure:"target" json:"target"`
	Cutout   map[string]any `mapstructure:"cutout" json:"cutout"`
	Prepare  PrepareConfig  `mapstructure:"prepare" json:"prepare"`
}

// PrepareConfig lists the features to prepare for a cutout.
type PrepareConfig struct {
	Features []string `mapstructure:"features" json:"features"`
}

// Config is the declarative cutout fetch configuration.
type Config struct {
	Cutouts []Entry `mapstructure:"cutouts" json:"cutouts"`
}

// LoadConfig reads and validates a cutout fetch configuration file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read cutout config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode cutout config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects malformed entries at load time, before any fetch work.
func (c *Config) Validate() error {
	if len(c.Cutouts) == 0 {
		return errors.New("cutout config must declare at least one cutout")
	}
	for i := range c.Cutouts {
		if err := c.Cutouts[i].validate(); err != nil {
			return fmt.Errorf("cutout entry %d (%s): %w", i, c.Cutouts[i].describe(), err)
		}
	}
	return nil
}

func (e *Entry) validate() error {
	if e.Filename == "" {
		return errors.New("filename must not be empty")
	}
	if e.Target == "" {
		return errors.New("target must not be empty")
	}
	var missing []string
	for _, field := range requiredCutoutFields {
		if _, ok := e.Cutout[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("cutout payload is missing required field(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

func (e *Entry) describe() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Filename
}

// IsRemote reports whether the entry's target is a host:dir remote.
func (e *Entry) IsRemote() bool {
	return IsRemoteTarget(e.Target)
}

// LocalPath is the entry's destination path when the target is local.
func (e *Entry) LocalPath() string {
	return filepath.Join(e.Target, e.Filename)
}

// DestinationPath is the display path of the destination, remote or local.
func (e *Entry) DestinationPath() string {
	return TargetPath(e.Target, e.Filename)
}

// PrepareSpec builds the toolkit preparation spec targeting path.
func (e *Entry) PrepareSpec(path string) (atlite.PrepareSpec, error) {
	spec := atlite.PrepareSpec{
		Path:     path,
		Module:   fmt.Sprint(e.Cutout["module"]),
		Time:     e.Cutout["time"],
		Features: e.Prepare.Features,
	}

	var err error
	if spec.X, err = sliceBounds(e.Cutout["x"], "x"); err != nil {
		return atlite.PrepareSpec{}, err
	}
	if spec.Y, err = sliceBounds(e.Cutout["y"], "y"); err != nil {
		return atlite.PrepareSpec{}, err
	}

	if dx, ok := numericValue(e.Cutout["dx"]); ok {
		spec.Dx = &dx
	}
	if dy, ok := numericValue(e.Cutout["dy"]); ok {
		spec.Dy = &dy
	}
	return spec, nil
}

// ExpectedFields is the entry's declared metadata in comparable form.
func (e *Entry) ExpectedFields() MetadataFields {
	features := make([]string, len(e.Prepare.Features))
	copy(features, e.Prepare.Features)
	sort.Strings(features)

	return MetadataFields{
		Module:   fmt.Sprint(e.Cutout["module"]),
		X:        floatList(e.Cutout["x"]),
		Y:        floatList(e.Cutout["y"]),
		Time:     NormalizeTimeSpec(e.Cutout["time"]),
		Features: features,
	}
}

// sliceBounds coerces a cutout axis value into a [start, stop] pair.
func sliceBounds(value any, axis string) ([]float64, error) {
	bounds := floatList(value)
	if len(bounds) != 2 {
		return nil, fmt.Errorf("cutout.%s must be a [start, stop] list", axis)
	}
	return bounds, nil
}

// floatList converts a list value to floats, yielding an empty slice when
// the value is not a list or contains non-numeric entries.
func floatList(value any) []float64 {
	items, ok := value.([]any)
	if !ok {
		return []float64{}
	}
	converted := make([]float64, 0, len(items))
	for _, item := range items {
		n, numeric := numericValue(item)
		if !numeric {
			return []float64{}
		}
		converted = append(converted, n)
	}
	return converted
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
