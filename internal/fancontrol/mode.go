package fancontrol

// ControlMode is the derived control mode of a fan entry.
type ControlMode int

const (
	// ModeAuto means the external application drives the fan; the dial
	// cannot adjust it.
	ModeAuto ControlMode = iota
	// ModeManual means a fixed percentage drives the fan.
	ModeManual
	// ModeSoftCurve means a named curve drives the fan.
	ModeSoftCurve
)

const modeCount = 3

func (m ControlMode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeManual:
		return "manual"
	case ModeSoftCurve:
		return "curve"
	default:
		return "unknown"
	}
}

// Label is the short human-readable form shown on the dial display.
func (m ControlMode) Label() string {
	switch m {
	case ModeAuto:
		return "Auto"
	case ModeManual:
		return "Manual"
	case ModeSoftCurve:
		return "Curve"
	default:
		return "?"
	}
}

// Cycle advances the mode by ticks through the fixed cycle
// auto -> manual -> curve -> auto. Negative ticks cycle backward.
func (m ControlMode) Cycle(ticks int) ControlMode {
	n := (int(m) + ticks) % modeCount
	if n < 0 {
		n += modeCount
	}
	return ControlMode(n)
}

// ParseMode converts a settings string into a ControlMode.
func ParseMode(s string) (ControlMode, bool) {
	switch s {
	case "auto":
		return ModeAuto, true
	case "manual":
		return ModeManual, true
	case "curve":
		return ModeSoftCurve, true
	default:
		return ModeAuto, false
	}
}
