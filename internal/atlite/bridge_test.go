package atlite

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	t.Run("ok envelope with result", func(t *testing.T) {
		var paths map[string]string
		err := decodeEnvelope("turbine-paths", []byte(
			`{"ok": true, "result": {"Model_A": "/lib/a.yaml"}}`), &paths)
		require.NoError(t, err)
		assert.Equal(t, "/lib/a.yaml", paths["Model_A"])
	})

	t.Run("ok envelope without result", func(t *testing.T) {
		err := decodeEnvelope("prepare-cutout", []byte(`{"ok": true}`), &struct{}{})
		assert.NoError(t, err)
	})

	t.Run("error envelope", func(t *testing.T) {
		err := decodeEnvelope("wind-profile", []byte(
			`{"ok": false, "error": "cutout file not prepared"}`), &struct{}{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wind-profile")
		assert.Contains(t, err.Error(), "cutout file not prepared")
	})

	t.Run("malformed response", func(t *testing.T) {
		err := decodeEnvelope("inspect-cutout", []byte("Traceback (most recent call last)"), &struct{}{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode response")
	})

	t.Run("result type mismatch", func(t *testing.T) {
		var series ProfileSeries
		err := decodeEnvelope("solar-profile", []byte(`{"ok": true, "result": [1, 2]}`), &series)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode result")
	})
}

func TestApplyCDSAPIEnvFallback(t *testing.T) {
	t.Run("mirrors CDS_* into unset CDSAPI_*", func(t *testing.T) {
		t.Setenv("CDSAPI_KEY", "")
		t.Setenv("CDSAPI_URL", "")
		t.Setenv("CDS_KEY", "abc-123")
		t.Setenv("CDS_URL", "https://cds.example/api")

		ApplyCDSAPIEnvFallback()

		assert.Equal(t, "abc-123", os.Getenv("CDSAPI_KEY"))
		assert.Equal(t, "https://cds.example/api", os.Getenv("CDSAPI_URL"))
	})

	t.Run("existing CDSAPI_* values win", func(t *testing.T) {
		t.Setenv("CDSAPI_KEY", "already-set")
		t.Setenv("CDS_KEY", "fallback")

		ApplyCDSAPIEnvFallback()

		assert.Equal(t, "already-set", os.Getenv("CDSAPI_KEY"))
	})

	t.Run("no fallback values is a no-op", func(t *testing.T) {
		t.Setenv("CDSAPI_KEY", "")
		t.Setenv("CDS_KEY", "")

		ApplyCDSAPIEnvFallback()

		assert.Empty(t, os.Getenv("CDSAPI_KEY"))
	})
}
