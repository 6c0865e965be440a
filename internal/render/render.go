// Package render maps fan state to the dial's visual payload. Pure
// functions only: no I/O, no mutation.
package render

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pdittrich/fandial/internal/fancontrol"
)

const maxTitleLen = 10

// Input is everything the renderer needs to compose one frame.
type Input struct {
	Title     string
	Found     bool
	Mode      fancontrol.ControlMode
	Value     int
	CurveName string

	Selecting bool
	Candidate fancontrol.ControlMode

	// Pending edit, shown instead of the persisted state while a
	// debounced write is buffered.
	PendingValue *int
	PendingCurve string

	TaskMissing   bool
	ScriptMissing bool
}

// Frame is the composed visual payload for one dial.
type Frame struct {
	Title         string
	ModeLabel     string
	ValueText     string
	Indicator     int
	ShowIndicator bool
	Banner        string
}

// Banner texts for the four precondition variants.
const (
	bannerTaskMissing   = "Task missing"
	bannerScriptMissing = "Script missing"
	bannerBothMissing   = "Task+script missing"
)

// Compose builds a Frame from the input. The precedence is: error banner
// over everything, candidate mode label during selection over the normal
// value display, pending edits over the persisted state.
func Compose(in Input) Frame {
	frame := Frame{Title: shortTitle(in.Title)}

	if banner := bannerFor(in.TaskMissing, in.ScriptMissing); banner != "" {
		frame.ModeLabel = "Error"
		frame.ValueText = "!"
		frame.Banner = banner
		return frame
	}

	if !in.Found {
		frame.ModeLabel = ""
		frame.ValueText = "--"
		return frame
	}

	if in.Selecting {
		frame.ModeLabel = in.Candidate.Label()
		frame.ValueText = "Press to set"
		return frame
	}

	switch in.Mode {
	case fancontrol.ModeAuto:
		frame.ModeLabel = in.Mode.Label()
		frame.ValueText = "Auto"
	case fancontrol.ModeManual:
		value := in.Value
		if in.PendingValue != nil {
			value = *in.PendingValue
		}
		frame.ModeLabel = in.Mode.Label()
		frame.ValueText = fmt.Sprintf("%d%%", value)
		frame.Indicator = fancontrol.Clamp(value, 0, 100)
		frame.ShowIndicator = true
	case fancontrol.ModeSoftCurve:
		curve := in.CurveName
		if in.PendingCurve != "" {
			curve = in.PendingCurve
		}
		frame.ModeLabel = in.Mode.Label()
		frame.ValueText = curve
	}

	return frame
}

func bannerFor(taskMissing, scriptMissing bool) string {
	switch {
	case taskMissing && scriptMissing:
		return bannerBothMissing
	case taskMissing:
		return bannerTaskMissing
	case scriptMissing:
		return bannerScriptMissing
	default:
		return ""
	}
}

func shortTitle(title string) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) > maxTitleLen {
		return string(runes[:maxTitleLen-1]) + "…"
	}
	return string(runes)
}

// Feedback converts a Frame into the key/value payload the device host
// expects for its dial layout.
func Feedback(f Frame) map[string]any {
	payload := map[string]any{
		"title": f.Title,
		"value": f.ValueText,
		"icon":  Icon(f),
	}
	if f.ShowIndicator {
		payload["indicator"] = map[string]any{"value": f.Indicator, "enabled": true}
	} else {
		payload["indicator"] = map[string]any{"enabled": false}
	}
	return payload
}

// Icon renders the frame as an SVG data URI for the dial's image slot.
func Icon(f Frame) string {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="72" height="72" viewBox="0 0 72 72">`)
	b.WriteString(`<rect width="72" height="72" fill="#1a1a1a"/>`)

	if f.Banner != "" {
		b.WriteString(`<rect x="4" y="28" width="64" height="16" rx="3" fill="#b3261e"/>`)
		b.WriteString(`<text x="36" y="40" font-family="sans-serif" font-size="9" fill="#ffffff" text-anchor="middle">`)
		b.WriteString(escape(f.Banner))
		b.WriteString(`</text>`)
	} else {
		if f.ShowIndicator {
			width := 64 * f.Indicator / 100
			b.WriteString(`<rect x="4" y="50" width="64" height="8" rx="4" fill="#333333"/>`)
			b.WriteString(fmt.Sprintf(`<rect x="4" y="50" width="%d" height="8" rx="4" fill="#3d85c6"/>`, width))
		}
		b.WriteString(`<text x="36" y="24" font-family="sans-serif" font-size="11" fill="#bbbbbb" text-anchor="middle">`)
		b.WriteString(escape(f.ModeLabel))
		b.WriteString(`</text>`)
		b.WriteString(`<text x="36" y="42" font-family="sans-serif" font-size="13" fill="#ffffff" text-anchor="middle">`)
		b.WriteString(escape(f.ValueText))
		b.WriteString(`</text>`)
	}

	b.WriteString(`</svg>`)
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(b.String()))
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
