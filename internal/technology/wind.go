package technology

import "fmt"

// WindTurbineConfig is a user-provided wind turbine definition for generation.
type WindTurbineConfig struct {
	Name         string    `json:"name" yaml:"name"`
	HubHeightM   float64   `json:"hub_height_m" yaml:"hub_height_m"`
	WindSpeeds   []float64 `json:"wind_speeds" yaml:"wind_speeds"`
	PowerCurveMW []float64 `json:"power_curve_mw" yaml:"power_curve_mw"`
	RatedPowerMW *float64  `json:"rated_power_mw,omitempty" yaml:"rated_power_mw,omitempty"`
	Manufacturer string    `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Source       string    `json:"source,omitempty" yaml:"source,omitempty"`
}

// Validate rejects configs before any computation is attempted.
func (c *WindTurbineConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("turbine name must not be empty: %w", ErrInvalidDefinition)
	}
	if c.HubHeightM <= 0 {
		return fmt.Errorf("hub_height_m must be positive: %w", ErrInvalidDefinition)
	}
	if len(c.WindSpeeds) < 2 || len(c.PowerCurveMW) < 2 {
		return fmt.Errorf("wind_speeds and power_curve_mw need at least 2 points: %w", ErrInvalidDefinition)
	}
	if len(c.WindSpeeds) != len(c.PowerCurveMW) {
		return &LengthMismatchError{SpeedLen: len(c.WindSpeeds), PowerLen: len(c.PowerCurveMW)}
	}
	if c.RatedPowerMW != nil && *c.RatedPowerMW <= 0 {
		return fmt.Errorf("rated_power_mw must be positive: %w", ErrInvalidDefinition)
	}
	return nil
}

// ToolkitPayload projects the config onto the field names the external
// simulation toolkit expects.
func (c *WindTurbineConfig) ToolkitPayload() map[string]any {
	payload := map[string]any{
		"name":       c.Name,
		"HUB_HEIGHT": c.HubHeightM,
		"V":          c.WindSpeeds,
		"POW":        c.PowerCurveMW,
	}
	if c.RatedPowerMW != nil {
		payload["P"] = *c.RatedPowerMW
	}
	if c.Manufacturer != "" {
		payload["manufacturer"] = c.Manufacturer
	}
	if c.Source != "" {
		payload["source"] = c.Source
	}
	return payload
}
