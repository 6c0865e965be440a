package fancontrol

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `{
  "appVersion": "2.1.0",
  "controls": [
    {
      "nickname": "CPU",
      "hidden": false,
      "enabled": false,
      "manualControl": false,
      "manualControlValue": 35,
      "selectedCurve": "",
      "calibration": {"minSpeed": 20, "offset": 3}
    },
    {
      "nickname": "GPU",
      "enabled": true,
      "manualControl": true,
      "manualControlValue": 60,
      "selectedCurve": "Graph1"
    },
    {
      "nickname": "Ghost",
      "hidden": true,
      "enabled": true
    }
  ],
  "curves": [
    {"name": "Silent", "hidden": false, "points": [[30, 20], [80, 100]]},
    {"name": "Graph1"},
    {"name": "Secret", "hidden": true}
  ],
  "theme": "dark"
}`

func writeFixture(t *testing.T, content string) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "userConfig.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return NewFile(path)
}

func TestReadFan_DerivesAuto(t *testing.T) {
	f := writeFixture(t, fixture)

	state, found, err := f.ReadFan(context.Background(), "CPU")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, ModeAuto, state.Mode)
	assert.Equal(t, 35, state.Value)
	assert.Equal(t, UnknownCurve, state.CurveName)
	assert.Equal(t, []string{"Silent", "Graph1"}, state.AvailableCurves)
}

func TestReadFan_DerivesManual(t *testing.T) {
	f := writeFixture(t, fixture)

	state, found, err := f.ReadFan(context.Background(), "GPU")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, ModeManual, state.Mode)
	assert.Equal(t, 60, state.Value)
	assert.Equal(t, "Graph1", state.CurveName)
}

func TestReadFan_DerivesSoftCurve(t *testing.T) {
	f := writeFixture(t, `{"controls":[{"nickname":"Case","enabled":true,"manualControl":false,"selectedCurve":"Silent"}],"curves":[{"name":"Silent"}]}`)

	state, found, err := f.ReadFan(context.Background(), "Case")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, ModeSoftCurve, state.Mode)
	assert.Equal(t, "Silent", state.CurveName)
}

func TestReadFan_NonNumericValueDefaultsToZero(t *testing.T) {
	f := writeFixture(t, `{"controls":[{"nickname":"CPU","enabled":true,"manualControl":true,"manualControlValue":"broken"}]}`)

	state, found, err := f.ReadFan(context.Background(), "CPU")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0, state.Value)
}

func TestReadFan_MissingFileIsNotFoundNotError(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "missing.json"))

	_, found, err := f.ReadFan(context.Background(), "CPU")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadFan_MissingEntryIsNotFound(t *testing.T) {
	f := writeFixture(t, fixture)

	_, found, err := f.ReadFan(context.Background(), "Pump")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadFan_HiddenEntryIsNotFound(t *testing.T) {
	f := writeFixture(t, fixture)

	_, found, err := f.ReadFan(context.Background(), "Ghost")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadFan_MalformedJSONIsError(t *testing.T) {
	f := writeFixture(t, `{"controls": [`)

	_, _, err := f.ReadFan(context.Background(), "CPU")
	require.Error(t, err)
}

func TestSetMode_ManualFlipsOnlyFlags(t *testing.T) {
	f := writeFixture(t, fixture)

	found, err := f.SetMode(context.Background(), "CPU", ModeManual)
	require.NoError(t, err)
	require.True(t, found)

	state, found, err := f.ReadFan(context.Background(), "CPU")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ModeManual, state.Mode)
	// Switching away and back must restore the previous value.
	assert.Equal(t, 35, state.Value)
}

func TestSetMode_AutoDisables(t *testing.T) {
	f := writeFixture(t, fixture)

	found, err := f.SetMode(context.Background(), "GPU", ModeAuto)
	require.NoError(t, err)
	require.True(t, found)

	state, _, err := f.ReadFan(context.Background(), "GPU")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, state.Mode)
	assert.Equal(t, 60, state.Value)
}

func TestSetMode_SoftCurveDefaultsToFirstAvailable(t *testing.T) {
	f := writeFixture(t, fixture)

	found, err := f.SetMode(context.Background(), "CPU", ModeSoftCurve)
	require.NoError(t, err)
	require.True(t, found)

	state, _, err := f.ReadFan(context.Background(), "CPU")
	require.NoError(t, err)
	assert.Equal(t, ModeSoftCurve, state.Mode)
	assert.Equal(t, "Silent", state.CurveName)
}

func TestSetMode_SoftCurveKeepsExistingSelection(t *testing.T) {
	f := writeFixture(t, fixture)

	found, err := f.SetMode(context.Background(), "GPU", ModeSoftCurve)
	require.NoError(t, err)
	require.True(t, found)

	state, _, err := f.ReadFan(context.Background(), "GPU")
	require.NoError(t, err)
	assert.Equal(t, "Graph1", state.CurveName)
}

func TestSetManualValue_RoundTrip(t *testing.T) {
	f := writeFixture(t, fixture)

	found, err := f.SetMode(context.Background(), "CPU", ModeManual)
	require.NoError(t, err)
	require.True(t, found)
	found, err = f.SetManualValue(context.Background(), "CPU", 42)
	require.NoError(t, err)
	require.True(t, found)

	state, found, err := f.ReadFan(context.Background(), "CPU")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ModeManual, state.Mode)
	assert.Equal(t, 42, state.Value)
}

func TestSetManualValue_ClampsRange(t *testing.T) {
	f := writeFixture(t, fixture)

	_, err := f.SetManualValue(context.Background(), "GPU", 180)
	require.NoError(t, err)
	state, _, _ := f.ReadFan(context.Background(), "GPU")
	assert.Equal(t, 100, state.Value)

	_, err = f.SetManualValue(context.Background(), "GPU", -20)
	require.NoError(t, err)
	state, _, _ = f.ReadFan(context.Background(), "GPU")
	assert.Equal(t, 0, state.Value)
}

func TestSetManualValue_MissingEntryIsNoOp(t *testing.T) {
	f := writeFixture(t, fixture)
	before, err := os.ReadFile(f.Path())
	require.NoError(t, err)

	found, err := f.SetManualValue(context.Background(), "Pump", 50)
	require.NoError(t, err)
	assert.False(t, found)

	after, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSetCurve_Writes(t *testing.T) {
	f := writeFixture(t, fixture)

	found, err := f.SetCurve(context.Background(), "GPU", "Silent")
	require.NoError(t, err)
	require.True(t, found)

	state, _, err := f.ReadFan(context.Background(), "GPU")
	require.NoError(t, err)
	assert.Equal(t, "Silent", state.CurveName)
}

func TestMutate_PreservesUnknownFields(t *testing.T) {
	f := writeFixture(t, fixture)

	_, err := f.SetManualValue(context.Background(), "CPU", 55)
	require.NoError(t, err)

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "2.1.0", doc["appVersion"])
	assert.Equal(t, "dark", doc["theme"])

	controlsRaw := doc["controls"].([]any)
	cpu := controlsRaw[0].(map[string]any)
	calibration := cpu["calibration"].(map[string]any)
	assert.Equal(t, float64(20), calibration["minSpeed"])
	assert.Equal(t, float64(3), calibration["offset"])

	curvesRaw := doc["curves"].([]any)
	silent := curvesRaw[0].(map[string]any)
	assert.Contains(t, silent, "points")
}

func TestListFans_SkipsHidden(t *testing.T) {
	f := writeFixture(t, fixture)

	fans, found, err := f.ListFans(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"CPU", "GPU"}, fans)
}

func TestListFans_MissingFile(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "missing.json"))

	_, found, err := f.ListFans(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestModeCycle(t *testing.T) {
	assert.Equal(t, ModeManual, ModeAuto.Cycle(1))
	assert.Equal(t, ModeSoftCurve, ModeManual.Cycle(1))
	assert.Equal(t, ModeAuto, ModeSoftCurve.Cycle(1))

	assert.Equal(t, ModeSoftCurve, ModeAuto.Cycle(-1))
	assert.Equal(t, ModeAuto, ModeManual.Cycle(-1))
	assert.Equal(t, ModeManual, ModeSoftCurve.Cycle(-1))

	// Full round-trip of 3 forward ticks is the identity.
	for _, m := range []ControlMode{ModeAuto, ModeManual, ModeSoftCurve} {
		assert.Equal(t, m, m.Cycle(3))
	}
}
