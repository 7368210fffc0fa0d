package technology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func huldPayload() map[string]any {
	return map[string]any{
		"efficiency":          0.1,
		"c_temp_amb":          1.0,
		"c_temp_irrad":        0.035,
		"r_tamb":              293.0,
		"r_tmod":              298.0,
		"r_irradiance":        1000.0,
		"k_1":                 -0.017162,
		"k_2":                 -0.040289,
		"k_3":                 -0.004681,
		"k_4":                 0.000148,
		"k_5":                 0.000169,
		"k_6":                 0.000005,
		"inverter_efficiency": 0.9,
	}
}

func bofingerPayload() map[string]any {
	return map[string]any{
		"threshold":           0.0,
		"area":                1.7,
		"rated_production":    0.3,
		"A":                   1.1,
		"B":                   -0.002,
		"C":                   0.0004,
		"D":                   -0.0001,
		"NOCT":                320.0,
		"Tstd":                298.0,
		"Tamb":                293.0,
		"Intc":                800.0,
		"ta":                  0.9,
		"inverter_efficiency": 0.95,
	}
}

func TestInferSolarModel(t *testing.T) {
	t.Run("huld from full field set", func(t *testing.T) {
		assert.Equal(t, "huld", InferSolarModel(huldPayload()))
	})

	t.Run("bofinger from full field set", func(t *testing.T) {
		assert.Equal(t, "bofinger", InferSolarModel(bofingerPayload()))
	})

	t.Run("huld wins when both field sets are present", func(t *testing.T) {
		payload := huldPayload()
		for key, value := range bofingerPayload() {
			payload[key] = value
		}
		assert.Equal(t, "huld", InferSolarModel(payload))
	})

	t.Run("partial field set is undetermined", func(t *testing.T) {
		payload := huldPayload()
		delete(payload, "k_6")
		assert.Equal(t, "", InferSolarModel(payload))
	})
}

func TestParseSolarConfig(t *testing.T) {
	t.Run("valid huld payload", func(t *testing.T) {
		payload := huldPayload()
		payload["name"] = "MySi"
		payload["manufacturer"] = "ACME"

		config, err := ParseSolarConfig(payload, "")
		require.NoError(t, err)
		assert.Equal(t, "huld", config.Model)
		assert.Equal(t, "MySi", config.Name)
		assert.Equal(t, "ACME", config.Manufacturer)
		assert.Equal(t, 0.9, config.Params["inverter_efficiency"])
		assert.Equal(t, 0.1, config.Params["efficiency"])
	})

	t.Run("valid bofinger payload", func(t *testing.T) {
		config, err := ParseSolarConfig(bofingerPayload(), "CustomPanel")
		require.NoError(t, err)
		assert.Equal(t, "bofinger", config.Model)
		assert.Equal(t, "CustomPanel", config.Name)
	})

	t.Run("default name when payload and caller give none", func(t *testing.T) {
		config, err := ParseSolarConfig(huldPayload(), "")
		require.NoError(t, err)
		assert.Equal(t, DefaultSolarName, config.Name)
	})

	t.Run("explicit model tag skips inference", func(t *testing.T) {
		payload := huldPayload()
		payload["model"] = "huld"
		config, err := ParseSolarConfig(payload, "")
		require.NoError(t, err)
		assert.Equal(t, "huld", config.Model)
	})

	t.Run("undetermined model is invalid", func(t *testing.T) {
		_, err := ParseSolarConfig(map[string]any{"inverter_efficiency": 0.9}, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidDefinition)
	})

	t.Run("unknown model tag is invalid", func(t *testing.T) {
		payload := huldPayload()
		payload["model"] = "sandia"
		_, err := ParseSolarConfig(payload, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidDefinition)
	})

	t.Run("missing fields are named", func(t *testing.T) {
		payload := huldPayload()
		payload["model"] = "huld"
		delete(payload, "k_2")
		delete(payload, "r_tmod")

		_, err := ParseSolarConfig(payload, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidDefinition)
		assert.Contains(t, err.Error(), "huld")
		assert.Contains(t, err.Error(), "k_2")
		assert.Contains(t, err.Error(), "r_tmod")
	})

	t.Run("non-numeric field is invalid", func(t *testing.T) {
		payload := huldPayload()
		payload["efficiency"] = "ten percent"
		_, err := ParseSolarConfig(payload, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "efficiency")
	})

	t.Run("inverter efficiency out of range", func(t *testing.T) {
		for _, bad := range []float64{0.0, -0.5, 1.5} {
			payload := huldPayload()
			payload["inverter_efficiency"] = bad
			_, err := ParseSolarConfig(payload, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "inverter_efficiency")
		}
	})

	t.Run("huld efficiency must be positive", func(t *testing.T) {
		payload := huldPayload()
		payload["efficiency"] = -0.1
		_, err := ParseSolarConfig(payload, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "efficiency")
	})

	t.Run("bofinger area must be positive", func(t *testing.T) {
		payload := bofingerPayload()
		payload["area"] = 0.0
		_, err := ParseSolarConfig(payload, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "area")
	})
}

func TestParseSolarConfig_PanelParametersWrapper(t *testing.T) {
	t.Run("wrapper fields are unwrapped", func(t *testing.T) {
		payload := map[string]any{
			"panel_parameters": any(huldPayload()),
		}
		config, err := ParseSolarConfig(payload, "")
		require.NoError(t, err)
		assert.Equal(t, "huld", config.Model)
	})

	t.Run("sibling fields win over wrapper values", func(t *testing.T) {
		wrapper := huldPayload()
		wrapper["name"] = "WrapperName"
		wrapper["manufacturer"] = "WrapperCo"
		payload := map[string]any{
			"name":             "SiblingName",
			"panel_parameters": any(wrapper),
		}

		config, err := ParseSolarConfig(payload, "")
		require.NoError(t, err)
		assert.Equal(t, "SiblingName", config.Name)
		assert.Equal(t, "WrapperCo", config.Manufacturer)
	})
}

func TestSolarTechnologyConfig_Projections(t *testing.T) {
	payload := huldPayload()
	payload["name"] = "MySi"
	payload["source"] = "datasheet"
	config, err := ParseSolarConfig(payload, "")
	require.NoError(t, err)

	t.Run("parameters include model, exclude bookkeeping", func(t *testing.T) {
		params := config.Parameters()
		assert.Equal(t, "huld", params["model"])
		assert.Equal(t, 0.1, params["efficiency"])
		assert.NotContains(t, params, "name")
		assert.NotContains(t, params, "source")
	})

	t.Run("toolkit payload carries identity and parameters", func(t *testing.T) {
		out := config.ToolkitPayload()
		assert.Equal(t, "huld", out["model"])
		assert.Equal(t, "MySi", out["name"])
		assert.Equal(t, "datasheet", out["source"])
		assert.Equal(t, 0.9, out["inverter_efficiency"])
	})
}
