package utils

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeForJSONScalars(t *testing.T) {
	assert.Nil(t, SanitizeForJSON(math.NaN()))
	assert.Nil(t, SanitizeForJSON(math.Inf(1)))
	assert.Nil(t, SanitizeForJSON(math.Inf(-1)))
	assert.Nil(t, SanitizeForJSON(float32(math.NaN())))
	assert.Equal(t, 7.3, SanitizeForJSON(7.3))
	assert.Equal(t, "x", SanitizeForJSON("x"))
	assert.Equal(t, 42, SanitizeForJSON(42))
	assert.Nil(t, SanitizeForJSON(nil))
}

func TestSanitizeForJSONNested(t *testing.T) {
	in := map[string]any{
		"data_value": math.NaN(),
		"name":       "PM2.5",
		"nested": map[string]any{
			"inf": math.Inf(1),
		},
		"list": []any{1.5, math.NaN(), "ok"},
	}

	out, ok := SanitizeForJSON(in).(map[string]any)
	require.True(t, ok)
	assert.Nil(t, out["data_value"])
	assert.Equal(t, "PM2.5", out["name"])
	assert.Nil(t, out["nested"].(map[string]any)["inf"])
	assert.Equal(t, []any{1.5, nil, "ok"}, out["list"])

	// The whole point: the sanitized value must marshal.
	_, err := json.Marshal(out)
	require.NoError(t, err)
}

func TestSanitizeForJSONDoesNotMutateInput(t *testing.T) {
	in := map[string]any{"v": math.NaN()}
	_ = SanitizeForJSON(in)
	assert.True(t, math.IsNaN(in["v"].(float64)))
}
