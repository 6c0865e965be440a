// Package session holds the per-dial interaction state machine: mode
// selection, debounced value/curve edits, and the poll-suppression rules
// that keep background refreshes from fighting an active interaction.
//
// All methods must be called from the owning controller's event loop; the
// only concurrency here is timers, and those marshal their callbacks back
// into that loop through the post function.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pdittrich/fandial/internal/fancontrol"
	"github.com/pdittrich/fandial/internal/metrics"
	"github.com/pdittrich/fandial/internal/render"
)

// Timing constants (intentionally not configurable; tuned against the
// device's rotate event rate and the external app's restart cost).
const (
	debounceInterval  = 1200 * time.Millisecond
	modeSelectTimeout = 3 * time.Second

	// PollInterval is how often displays refresh from the config file.
	PollInterval = 2 * time.Second
)

// Settings is the per-instance settings object the property inspector
// round-trips through the device host.
type Settings struct {
	Executable string `json:"executable"`
	ConfigPath string `json:"configPath"`
	Fan        string `json:"fan"`
	Mode       string `json:"mode,omitempty"`
	Bypass     bool   `json:"bypass"`
}

// Store is the configuration-file surface the session edits through.
type Store interface {
	ReadFan(ctx context.Context, nickname string) (fancontrol.FanState, bool, error)
	SetMode(ctx context.Context, nickname string, mode fancontrol.ControlMode) (bool, error)
	SetManualValue(ctx context.Context, nickname string, value int) (bool, error)
	SetCurve(ctx context.Context, nickname string, curve string) (bool, error)
}

// Relauncher restarts the external application after a write.
type Relauncher interface {
	Relaunch(ctx context.Context, settings Settings) error
}

// Display receives composed frames, alert cues, and write-error reports
// for one dial instance, and persists settings the dial itself changed so
// the host's stored copy never goes stale.
type Display interface {
	Render(instanceID string, frame render.Frame)
	Alert(instanceID string)
	ReportWriteError(instanceID string, err error)
	PersistSettings(instanceID string, settings Settings)
}

// Preconditions is the latched result of the bypass environment check.
type Preconditions struct {
	TaskExists   bool
	ScriptExists bool
	checked      bool
}

// Session is the interaction state of one visible dial. One exists per
// instance id; it is created on appearance and destroyed on disappearance.
type Session struct {
	id       string
	settings Settings
	store    Store
	launcher Relauncher
	display  Display
	clock    clockwork.Clock
	post     func(fn func(ctx context.Context))
	baseLog  *slog.Logger
	log      *slog.Logger

	state     fancontrol.FanState
	haveState bool

	selecting bool
	candidate fancontrol.ControlMode
	modeTimer clockwork.Timer
	modeSeq   uint64

	pendingValue      *int
	pendingCurveIndex *int
	debounceTimer     clockwork.Timer
	debounceSeq       uint64

	pre Preconditions
}

// New creates a session for one dial instance. post must execute the given
// function on the controller's event loop with a fresh request context.
func New(id string, settings Settings, store Store, launcher Relauncher, display Display, clock clockwork.Clock, post func(fn func(ctx context.Context)), log *slog.Logger) *Session {
	base := log.With("instance_id", id)
	return &Session{
		id:       id,
		settings: settings,
		store:    store,
		launcher: launcher,
		display:  display,
		clock:    clock,
		post:     post,
		baseLog:  base,
		log:      base.With("fan", settings.Fan),
	}
}

// Settings returns the current settings snapshot.
func (s *Session) Settings() Settings {
	return s.settings
}

// Appear performs the initial read and render.
func (s *Session) Appear(ctx context.Context) {
	s.refresh(ctx)
}

// Close cancels all timers. Bumping the sequence counters makes any
// already-posted timer callback a no-op.
func (s *Session) Close() {
	s.stopDebounce()
	s.stopModeTimer()
	s.debounceSeq++
	s.modeSeq++
}

// UpdateSettings applies a new settings snapshot from the property
// inspector. A changed fan or file drops any in-flight interaction; a mode
// picked directly in the settings UI is written immediately, like a
// confirmed push.
func (s *Session) UpdateSettings(ctx context.Context, settings Settings, store Store) {
	prev := s.settings
	s.settings = settings
	s.store = store
	s.log = s.baseLog.With("fan", settings.Fan)

	if !settings.Bypass {
		s.pre = Preconditions{}
	}

	if prev.Fan != settings.Fan || prev.ConfigPath != settings.ConfigPath {
		s.clearPending()
		s.stopModeTimer()
		s.selecting = false
		s.haveState = false
	}

	// Only a mode the user just re-picked is written. The stored mode
	// rides along on every settings change (a bypass toggle, a fan
	// switch), and re-applying it then would revert dial-confirmed modes.
	if settings.Mode != prev.Mode && !s.latched() {
		if mode, ok := fancontrol.ParseMode(settings.Mode); ok {
			s.applyModeFromSettings(ctx, mode)
		}
	}

	s.refresh(ctx)
}

// ApplyPreconditions latches the result of a bypass environment check.
func (s *Session) ApplyPreconditions(ctx context.Context, taskExists, scriptExists bool) {
	s.pre = Preconditions{TaskExists: taskExists, ScriptExists: scriptExists, checked: true}
	if s.latched() {
		s.log.WarnContext(ctx, "Bypass preconditions missing, blocking edits",
			"task_exists", taskExists, "script_exists", scriptExists)
		s.clearPending()
		s.stopModeTimer()
		s.selecting = false
	}
	s.render()
}

// Press handles a dial push: enter mode selection from idle, confirm the
// candidate while selecting. A push during a pending edit abandons the
// buffered edit without flushing it.
func (s *Session) Press(ctx context.Context) {
	if s.latched() {
		s.alert("precondition")
		return
	}
	if s.selecting {
		s.confirm(ctx)
		return
	}
	if !s.haveState {
		s.refresh(ctx)
		if !s.haveState {
			return
		}
	}

	s.clearPending()
	s.selecting = true
	s.candidate = s.state.Mode
	s.armModeTimeout()
	s.render()
}

// Rotate handles a dial rotation of the given signed tick count.
func (s *Session) Rotate(ctx context.Context, ticks int) {
	if ticks == 0 || s.latched() {
		return
	}

	if s.selecting {
		s.candidate = s.candidate.Cycle(ticks)
		s.armModeTimeout()
		s.render()
		return
	}

	if !s.haveState {
		return
	}

	switch s.state.Mode {
	case fancontrol.ModeAuto:
		// Auto is not user-adjustable; no timer, no write, no render.
		return

	case fancontrol.ModeManual:
		base := s.state.Value
		if s.pendingValue != nil {
			base = *s.pendingValue
		}
		value := fancontrol.Clamp(base+ticks, 0, 100)
		s.pendingValue = &value
		s.armDebounce()
		s.render()

	case fancontrol.ModeSoftCurve:
		count := len(s.state.AvailableCurves)
		if count == 0 {
			return
		}
		base := s.currentCurveIndex()
		if s.pendingCurveIndex != nil {
			base = *s.pendingCurveIndex
		}
		index := wrap(base+ticks, count)
		s.pendingCurveIndex = &index
		s.armDebounce()
		s.render()
	}
}

// Poll refreshes the display from the file unless an interaction is in
// flight: refreshing mid-selection or over a buffered edit would visually
// jump and discard the unflushed input.
func (s *Session) Poll(ctx context.Context) {
	if s.selecting || s.pendingValue != nil || s.pendingCurveIndex != nil {
		metrics.PollSuppressedTotal.Inc()
		return
	}
	metrics.PollRefreshesTotal.Inc()
	s.refresh(ctx)
}

func (s *Session) confirm(ctx context.Context) {
	s.stopModeTimer()
	s.selecting = false
	candidate := s.candidate

	if candidate == fancontrol.ModeSoftCurve && len(s.state.AvailableCurves) == 0 {
		s.alert("no_curves")
		s.render()
		return
	}

	if candidate == s.state.Mode {
		s.render()
		return
	}

	found, err := s.store.SetMode(ctx, s.settings.Fan, candidate)
	if err != nil {
		metrics.WriteFailuresTotal.WithLabelValues("mode").Inc()
		s.log.ErrorContext(ctx, "Mode write failed", "mode", candidate.String(), "error", err)
		s.display.ReportWriteError(s.id, err)
		s.render()
		return
	}
	if !found {
		s.haveState = false
		s.render()
		return
	}

	metrics.WritesFlushedTotal.WithLabelValues("mode").Inc()

	// Echo the dial-made change into the stored settings, so the next
	// didReceiveSettings carries the mode the file actually holds.
	s.settings.Mode = candidate.String()
	s.display.PersistSettings(s.id, s.settings)

	s.relaunch(ctx)
	s.refresh(ctx)
}

func (s *Session) applyModeFromSettings(ctx context.Context, mode fancontrol.ControlMode) {
	state, found, err := s.store.ReadFan(ctx, s.settings.Fan)
	if err != nil || !found || state.Mode == mode {
		return
	}

	found, err = s.store.SetMode(ctx, s.settings.Fan, mode)
	if err != nil {
		metrics.WriteFailuresTotal.WithLabelValues("mode").Inc()
		s.log.ErrorContext(ctx, "Mode write failed", "mode", mode.String(), "error", err)
		s.display.ReportWriteError(s.id, err)
		return
	}
	if found {
		metrics.WritesFlushedTotal.WithLabelValues("mode").Inc()
		s.relaunch(ctx)
	}
}

// flush writes the buffered edit, relaunches, and clears the buffer. Runs
// when the debounce quiet period elapses.
func (s *Session) flush(ctx context.Context) {
	s.debounceTimer = nil
	pendingValue := s.pendingValue
	pendingIndex := s.pendingCurveIndex
	s.pendingValue = nil
	s.pendingCurveIndex = nil

	var (
		kind  string
		found bool
		err   error
	)
	switch {
	case pendingValue != nil:
		kind = "value"
		found, err = s.store.SetManualValue(ctx, s.settings.Fan, *pendingValue)
	case pendingIndex != nil:
		if *pendingIndex >= len(s.state.AvailableCurves) {
			return
		}
		kind = "curve"
		found, err = s.store.SetCurve(ctx, s.settings.Fan, s.state.AvailableCurves[*pendingIndex])
	default:
		return
	}

	if err != nil {
		metrics.WriteFailuresTotal.WithLabelValues(kind).Inc()
		s.log.ErrorContext(ctx, "Flush failed", "kind", kind, "error", err)
		s.display.ReportWriteError(s.id, err)
		return
	}
	if !found {
		// The fan vanished from the file while the edit was buffered:
		// write was a no-op, so no relaunch either.
		s.log.WarnContext(ctx, "Fan no longer present, dropping buffered edit", "kind", kind)
		s.refresh(ctx)
		return
	}

	metrics.WritesFlushedTotal.WithLabelValues(kind).Inc()
	s.relaunch(ctx)
	s.refresh(ctx)
}

func (s *Session) relaunch(ctx context.Context) {
	if err := s.launcher.Relaunch(ctx, s.settings); err != nil {
		// Logged only, silently degraded; the write already landed.
		s.log.ErrorContext(ctx, "Relaunch failed", "error", err)
	}
}

func (s *Session) refresh(ctx context.Context) {
	state, found, err := s.store.ReadFan(ctx, s.settings.Fan)
	if err != nil {
		// Abort without touching the display.
		s.log.WarnContext(ctx, "Config read failed", "error", err)
		return
	}
	s.haveState = found
	if found {
		s.state = state
	}
	s.render()
}

func (s *Session) render() {
	in := render.Input{
		Title:         s.settings.Fan,
		Found:         s.haveState,
		Mode:          s.state.Mode,
		Value:         s.state.Value,
		CurveName:     s.state.CurveName,
		Selecting:     s.selecting,
		Candidate:     s.candidate,
		PendingValue:  s.pendingValue,
		TaskMissing:   s.latchedPart(!s.pre.TaskExists),
		ScriptMissing: s.latchedPart(!s.pre.ScriptExists),
	}
	if s.pendingCurveIndex != nil && *s.pendingCurveIndex < len(s.state.AvailableCurves) {
		in.PendingCurve = s.state.AvailableCurves[*s.pendingCurveIndex]
	}
	s.display.Render(s.id, render.Compose(in))
}

func (s *Session) alert(reason string) {
	metrics.AlertsTotal.WithLabelValues(reason).Inc()
	s.display.Alert(s.id)
}

func (s *Session) latched() bool {
	return s.settings.Bypass && s.pre.checked && !(s.pre.TaskExists && s.pre.ScriptExists)
}

func (s *Session) latchedPart(missing bool) bool {
	return s.settings.Bypass && s.pre.checked && missing
}

func (s *Session) armDebounce() {
	if s.debounceTimer != nil {
		// Reset, never queue: a new rotation supersedes the pending write.
		s.debounceTimer.Stop()
		metrics.DebounceResetsTotal.Inc()
	}
	s.debounceSeq++
	seq := s.debounceSeq
	s.debounceTimer = s.clock.AfterFunc(debounceInterval, func() {
		s.post(func(ctx context.Context) { s.onDebounce(ctx, seq) })
	})
}

func (s *Session) onDebounce(ctx context.Context, seq uint64) {
	if seq != s.debounceSeq {
		return
	}
	s.flush(ctx)
}

func (s *Session) stopDebounce() {
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
}

func (s *Session) clearPending() {
	s.stopDebounce()
	s.debounceSeq++
	s.pendingValue = nil
	s.pendingCurveIndex = nil
}

func (s *Session) armModeTimeout() {
	s.stopModeTimer()
	s.modeSeq++
	seq := s.modeSeq
	s.modeTimer = s.clock.AfterFunc(modeSelectTimeout, func() {
		s.post(func(ctx context.Context) { s.onModeTimeout(ctx, seq) })
	})
}

func (s *Session) onModeTimeout(ctx context.Context, seq uint64) {
	if seq != s.modeSeq || !s.selecting {
		return
	}
	// Silent revert to the persisted state, nothing written.
	s.selecting = false
	s.modeTimer = nil
	s.render()
}

func (s *Session) stopModeTimer() {
	if s.modeTimer != nil {
		s.modeTimer.Stop()
		s.modeTimer = nil
	}
}

func (s *Session) currentCurveIndex() int {
	for i, name := range s.state.AvailableCurves {
		if name == s.state.CurveName {
			return i
		}
	}
	return 0
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
