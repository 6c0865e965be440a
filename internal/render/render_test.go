package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdittrich/fandial/internal/fancontrol"
)

func TestCompose_ErrorOverridesEverything(t *testing.T) {
	in := Input{
		Title:       "CPU",
		Found:       true,
		Mode:        fancontrol.ModeManual,
		Value:       50,
		Selecting:   true,
		TaskMissing: true,
	}

	frame := Compose(in)
	assert.Equal(t, "Task missing", frame.Banner)
	assert.Equal(t, "Error", frame.ModeLabel)
	assert.False(t, frame.ShowIndicator)
}

func TestCompose_BannerVariants(t *testing.T) {
	tests := []struct {
		name          string
		taskMissing   bool
		scriptMissing bool
		want          string
	}{
		{"none", false, false, ""},
		{"task only", true, false, "Task missing"},
		{"script only", false, true, "Script missing"},
		{"both", true, true, "Task+script missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := Compose(Input{Found: true, TaskMissing: tt.taskMissing, ScriptMissing: tt.scriptMissing})
			assert.Equal(t, tt.want, frame.Banner)
		})
	}
}

func TestCompose_NotFoundIsNeutral(t *testing.T) {
	frame := Compose(Input{Title: "CPU", Found: false})
	assert.Empty(t, frame.Banner)
	assert.Equal(t, "--", frame.ValueText)
	assert.False(t, frame.ShowIndicator)
}

func TestCompose_SelectionShowsCandidateNotPersisted(t *testing.T) {
	frame := Compose(Input{
		Title:     "CPU",
		Found:     true,
		Mode:      fancontrol.ModeManual,
		Value:     42,
		Selecting: true,
		Candidate: fancontrol.ModeSoftCurve,
	})

	assert.Equal(t, "Curve", frame.ModeLabel)
	assert.NotContains(t, frame.ValueText, "42")
}

func TestCompose_Manual(t *testing.T) {
	frame := Compose(Input{Title: "CPU", Found: true, Mode: fancontrol.ModeManual, Value: 42})
	assert.Equal(t, "Manual", frame.ModeLabel)
	assert.Equal(t, "42%", frame.ValueText)
	assert.True(t, frame.ShowIndicator)
	assert.Equal(t, 42, frame.Indicator)
}

func TestCompose_ManualPendingValueWins(t *testing.T) {
	pending := 77
	frame := Compose(Input{Found: true, Mode: fancontrol.ModeManual, Value: 42, PendingValue: &pending})
	assert.Equal(t, "77%", frame.ValueText)
	assert.Equal(t, 77, frame.Indicator)
}

func TestCompose_SoftCurvePendingCurveWins(t *testing.T) {
	frame := Compose(Input{Found: true, Mode: fancontrol.ModeSoftCurve, CurveName: "Silent", PendingCurve: "Graph1"})
	assert.Equal(t, "Graph1", frame.ValueText)
}

func TestCompose_AutoHasNoIndicator(t *testing.T) {
	frame := Compose(Input{Found: true, Mode: fancontrol.ModeAuto, Value: 42})
	assert.Equal(t, "Auto", frame.ValueText)
	assert.False(t, frame.ShowIndicator)
}

func TestCompose_TruncatesLongTitle(t *testing.T) {
	frame := Compose(Input{Title: "Front Intake Top Left", Found: true, Mode: fancontrol.ModeAuto})
	assert.LessOrEqual(t, len([]rune(frame.Title)), 10)
}

func TestFeedback_IndicatorToggle(t *testing.T) {
	on := Feedback(Frame{ShowIndicator: true, Indicator: 30})
	indicator := on["indicator"].(map[string]any)
	assert.Equal(t, true, indicator["enabled"])
	assert.Equal(t, 30, indicator["value"])

	off := Feedback(Frame{})
	indicator = off["indicator"].(map[string]any)
	assert.Equal(t, false, indicator["enabled"])
}

func TestIcon_IsSVGDataURI(t *testing.T) {
	icon := Icon(Frame{ModeLabel: "Manual", ValueText: "42%", ShowIndicator: true, Indicator: 42})
	assert.True(t, strings.HasPrefix(icon, "data:image/svg+xml;base64,"))
}

func TestIcon_EscapesMarkup(t *testing.T) {
	// The curve name comes from an external file; it must not inject markup.
	icon := Icon(Frame{ValueText: `<script>"x"</script>`})
	assert.NotEmpty(t, icon)
}
