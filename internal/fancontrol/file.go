// Package fancontrol reads and rewrites the external fan-control
// application's JSON configuration file.
//
// The file is owned by that application and may be rewritten by it at any
// time, so nothing read from it is cached: every mutation re-reads the whole
// file, changes only the fields this plugin understands on the one control
// entry it targets, and writes the whole file back pretty-printed. All other
// fields round-trip untouched, which is why the document is kept as a generic
// map instead of a typed schema.
package fancontrol

import (
	"context"
	"encoding/json"
	"os"

	apperrors "github.com/pdittrich/fandial/internal/errors"
)

// UnknownCurve is the sentinel curve name when a control references none.
const UnknownCurve = "Unknown"

// FanState is the simplified view of one control entry, recomputed from the
// file on every read.
type FanState struct {
	Mode            ControlMode
	Value           int
	CurveName       string
	AvailableCurves []string
}

// File binds the reconciler to one configuration file path.
type File struct {
	path string
}

// NewFile creates a reconciler for the given configuration file path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the bound configuration file path.
func (f *File) Path() string {
	return f.path
}

// ReadFan locates the non-hidden control entry with the given nickname and
// derives its FanState. The second return is false when the file or the
// entry is absent, which is not an error.
func (f *File) ReadFan(ctx context.Context, nickname string) (FanState, bool, error) {
	doc, ok, err := f.load(ctx)
	if err != nil || !ok {
		return FanState{}, false, err
	}

	control, ok := findControl(doc, nickname)
	if !ok {
		return FanState{}, false, nil
	}

	state := FanState{
		Mode:            deriveMode(control),
		Value:           intField(control, "manualControlValue", 0),
		CurveName:       stringField(control, "selectedCurve", UnknownCurve),
		AvailableCurves: curveNames(doc),
	}
	return state, true, nil
}

// ListFans returns the nicknames of all non-hidden control entries in file
// order. The second return is false when the file is absent.
func (f *File) ListFans(ctx context.Context) ([]string, bool, error) {
	doc, ok, err := f.load(ctx)
	if err != nil || !ok {
		return nil, false, err
	}

	var fans []string
	for _, control := range controls(doc) {
		if boolField(control, "hidden") {
			continue
		}
		if name, ok := control["nickname"].(string); ok && name != "" {
			fans = append(fans, name)
		}
	}
	return fans, true, nil
}

// SetMode flips the enabled/manualControl flags of the named control to the
// given mode, leaving value and curve fields untouched so switching away and
// back restores them. Entering curve mode with no curve selected defaults to
// the first available curve. Returns false when the file or entry is absent.
func (f *File) SetMode(ctx context.Context, nickname string, mode ControlMode) (bool, error) {
	return f.mutate(ctx, nickname, func(doc map[string]any, control map[string]any) {
		switch mode {
		case ModeAuto:
			control["enabled"] = false
		case ModeManual:
			control["enabled"] = true
			control["manualControl"] = true
		case ModeSoftCurve:
			control["enabled"] = true
			control["manualControl"] = false
			if stringField(control, "selectedCurve", "") == "" {
				if names := curveNames(doc); len(names) > 0 {
					control["selectedCurve"] = names[0]
				}
			}
		}
	})
}

// SetManualValue writes the manual percentage of the named control, clamped
// to [0,100]. Returns false when the file or entry is absent.
func (f *File) SetManualValue(ctx context.Context, nickname string, value int) (bool, error) {
	return f.mutate(ctx, nickname, func(_ map[string]any, control map[string]any) {
		control["manualControlValue"] = Clamp(value, 0, 100)
	})
}

// SetCurve writes the selected curve of the named control. Returns false
// when the file or entry is absent.
func (f *File) SetCurve(ctx context.Context, nickname string, curve string) (bool, error) {
	return f.mutate(ctx, nickname, func(_ map[string]any, control map[string]any) {
		control["selectedCurve"] = curve
	})
}

// mutate re-reads the file, applies fn to the named control, and rewrites
// the whole file. Absent file or entry is a no-op reported as found=false.
func (f *File) mutate(ctx context.Context, nickname string, fn func(doc, control map[string]any)) (bool, error) {
	doc, ok, err := f.load(ctx)
	if err != nil || !ok {
		return false, err
	}

	control, ok := findControl(doc, nickname)
	if !ok {
		return false, nil
	}

	fn(doc, control)

	if err := f.save(doc); err != nil {
		return false, err
	}
	return true, nil
}

func (f *File) load(ctx context.Context) (map[string]any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.IO("failed to read config file", err).WithContext("path", f.path)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, apperrors.IO("failed to parse config file", err).WithContext("path", f.path)
	}
	return doc, true, nil
}

func (f *File) save(doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.IO("failed to encode config file", err).WithContext("path", f.path)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return apperrors.IO("failed to write config file", err).WithContext("path", f.path)
	}
	return nil
}

func controls(doc map[string]any) []map[string]any {
	raw, _ := doc["controls"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if m, ok := entry.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// findControl matches nickname exactly, skipping hidden entries.
func findControl(doc map[string]any, nickname string) (map[string]any, bool) {
	for _, control := range controls(doc) {
		if boolField(control, "hidden") {
			continue
		}
		if name, _ := control["nickname"].(string); name == nickname {
			return control, true
		}
	}
	return nil, false
}

// deriveMode maps the two boolean flags onto a ControlMode:
// disabled means auto, enabled splits on manualControl.
func deriveMode(control map[string]any) ControlMode {
	if !boolField(control, "enabled") {
		return ModeAuto
	}
	if boolField(control, "manualControl") {
		return ModeManual
	}
	return ModeSoftCurve
}

func curveNames(doc map[string]any) []string {
	raw, _ := doc["curves"].([]any)
	var names []string
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok || boolField(m, "hidden") {
			continue
		}
		if name, ok := m["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func stringField(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intField(m map[string]any, key string, fallback int) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return fallback
}

// Clamp bounds v to [lo,hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
