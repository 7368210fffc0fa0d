package technology

import (
	"fmt"
	"sort"
)

// Solar model families. The field sets drive both model inference and
// required-field validation; huld is checked before bofinger when the model
// tag is absent, so ambiguous payloads resolve deterministically.
var (
	huldFields = []string{
		"efficiency",
		"c_temp_amb",
		"c_temp_irrad",
		"r_tamb",
		"r_tmod",
		"r_irradiance",
		"k_1", "k_2", "k_3", "k_4", "k_5", "k_6",
	}
	bofingerFields = []string{
		"threshold",
		"area",
		"rated_production",
		"A", "B", "C", "D",
		"NOCT", "Tstd", "Tamb", "Intc", "ta",
	}
)

// DefaultSolarName is assigned when a payload carries no usable name.
const DefaultSolarName = "API_Custom_Solar"

// SolarTechnologyConfig is a validated solar technology definition, either
// huld-family or bofinger-family.
type SolarTechnologyConfig struct {
	Model        string
	Name         string
	Manufacturer string
	Source       string

	// Params holds the model parameters (including inverter_efficiency)
	// keyed by their canonical field names.
	Params map[string]float64
}

// InferSolarModel determines the model family by testing whether either
// family's full required-field set is a subset of the supplied keys, huld
// first. It returns "" when neither matches.
func InferSolarModel(payload map[string]any) string {
	if hasAllKeys(payload, huldFields) {
		return "huld"
	}
	if hasAllKeys(payload, bofingerFields) {
		return "bofinger"
	}
	return ""
}

func hasAllKeys(payload map[string]any, keys []string) bool {
	for _, key := range keys {
		if _, ok := payload[key]; !ok {
			return false
		}
	}
	return true
}

// ParseSolarConfig validates and normalizes a raw solar technology payload:
// it unwraps a panel_parameters wrapper (sibling fields win, wrapper values
// are the fallback), resolves the model tag (explicit or inferred), defaults
// the name, and checks the resolved family's required fields.
func ParseSolarConfig(payload map[string]any, defaultName string) (*SolarTechnologyConfig, error) {
	payload = unwrapPanelParameters(payload)

	model, _ := payload["model"].(string)
	if model == "" {
		model = InferSolarModel(payload)
	}
	switch model {
	case "huld", "bofinger":
	case "":
		return nil, fmt.Errorf("solar model could not be determined from the supplied fields: %w", ErrInvalidDefinition)
	default:
		return nil, fmt.Errorf("unknown solar model %q: %w", model, ErrInvalidDefinition)
	}

	if defaultName == "" {
		defaultName = DefaultSolarName
	}
	name, _ := payload["name"].(string)
	if name == "" {
		name = defaultName
	}

	config := &SolarTechnologyConfig{
		Model:        model,
		Name:         name,
		Manufacturer: stringOrEmpty(payload["manufacturer"]),
		Source:       stringOrEmpty(payload["source"]),
		Params:       map[string]float64{},
	}

	required := append([]string{"inverter_efficiency"}, familyFields(model)...)
	var missing []string
	for _, field := range required {
		value, ok := payload[field]
		if !ok || value == nil {
			missing = append(missing, field)
			continue
		}
		number, numeric := toFloat(value)
		if !numeric {
			return nil, fmt.Errorf("solar field %q must be numeric: %w", field, ErrInvalidDefinition)
		}
		config.Params[field] = number
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Model: model, Fields: missing}
	}

	if err := config.checkConstraints(); err != nil {
		return nil, err
	}
	return config, nil
}

func familyFields(model string) []string {
	if model == "huld" {
		return huldFields
	}
	return bofingerFields
}

// checkConstraints enforces the sign/range constraints on constrained fields.
func (c *SolarTechnologyConfig) checkConstraints() error {
	if eff := c.Params["inverter_efficiency"]; eff <= 0 || eff > 1 {
		return fmt.Errorf("inverter_efficiency must be in (0, 1]: %w", ErrInvalidDefinition)
	}
	positive := map[string][]string{
		"huld":     {"efficiency", "r_irradiance"},
		"bofinger": {"area", "rated_production"},
	}
	for _, field := range positive[c.Model] {
		if c.Params[field] <= 0 {
			return fmt.Errorf("%s must be positive: %w", field, ErrInvalidDefinition)
		}
	}
	return nil
}

// Parameters returns the model tag plus every parameter, excluding the
// name/manufacturer/source bookkeeping fields, for inspection payloads.
func (c *SolarTechnologyConfig) Parameters() map[string]any {
	params := make(map[string]any, len(c.Params)+1)
	params["model"] = c.Model
	for _, field := range sortedParamKeys(c.Params) {
		params[field] = c.Params[field]
	}
	return params
}

// ToolkitPayload projects the config onto the document shape the external
// simulation toolkit expects.
func (c *SolarTechnologyConfig) ToolkitPayload() map[string]any {
	payload := map[string]any{
		"model": c.Model,
		"name":  c.Name,
	}
	if c.Manufacturer != "" {
		payload["manufacturer"] = c.Manufacturer
	}
	if c.Source != "" {
		payload["source"] = c.Source
	}
	for _, field := range sortedParamKeys(c.Params) {
		payload[field] = c.Params[field]
	}
	return payload
}

// unwrapPanelParameters merges a nested panel_parameters object into the top
// level. Sibling name/manufacturer/source/model fields take precedence; the
// wrapper's values serve only as fallbacks.
func unwrapPanelParameters(payload map[string]any) map[string]any {
	wrapper, ok := payload["panel_parameters"].(map[string]any)
	if !ok {
		return payload
	}
	merged := make(map[string]any, len(wrapper)+4)
	for key, value := range wrapper {
		merged[key] = value
	}
	for _, key := range []string{"name", "manufacturer", "source", "model"} {
		if value, present := payload[key]; present && value != nil {
			merged[key] = value
		}
	}
	return merged
}

func stringOrEmpty(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func sortedParamKeys(params map[string]float64) []string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
