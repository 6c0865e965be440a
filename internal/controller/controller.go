// Package controller owns the plugin's event loop. A single goroutine holds
// every dial session, routes inbound device events, runs the poll ticker and
// executes deferred timer callbacks, so session state is never touched
// concurrently.
package controller

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/pdittrich/fandial/internal/deck"
	"github.com/pdittrich/fandial/internal/fancontrol"
	"github.com/pdittrich/fandial/internal/inspector"
	"github.com/pdittrich/fandial/internal/launcher"
	"github.com/pdittrich/fandial/internal/metrics"
	"github.com/pdittrich/fandial/internal/platform/correlation"
	"github.com/pdittrich/fandial/internal/render"
	"github.com/pdittrich/fandial/internal/session"
)

// DeckSender is the outbound slice of the device connection the controller
// needs.
type DeckSender interface {
	SetTitle(instanceID, title string)
	SetFeedback(instanceID string, payload map[string]any)
	ShowAlert(instanceID string)
	SetSettings(instanceID string, settings any)
	GetSettings(instanceID string)
	SendToPropertyInspector(instanceID string, payload any)
}

// Relauncher restarts the external application and probes the bypass
// environment.
type Relauncher interface {
	Relaunch(ctx context.Context, t launcher.Target) error
	CheckPreconditions(ctx context.Context, executable string) (launcher.Result, error)
}

// ConfigStore is the per-path configuration file surface: the session's edit
// operations plus the fan listing the settings UI uses.
type ConfigStore interface {
	session.Store
	inspector.FanLister
}

// --- Command types ---

type ctlCmd interface{ ctlCmd() }

type cmdEvent struct {
	event deck.Event
}

func (cmdEvent) ctlCmd() {}

type cmdPost struct {
	fn func(ctx context.Context)
}

func (cmdPost) ctlCmd() {}

type cmdSessionCount struct {
	replyCh chan int
}

func (cmdSessionCount) ctlCmd() {}

type cmdStop struct{}

func (cmdStop) ctlCmd() {}

// --- Controller ---

type Controller struct {
	deck     DeckSender
	launcher Relauncher
	clock    clockwork.Clock
	log      *slog.Logger
	execName string
	storeFor func(path string) ConfigStore

	cmdCh    chan ctlCmd
	doneCh   chan struct{}
	sessions map[string]*session.Session
}

// New builds a controller and starts its event loop.
func New(sender DeckSender, relauncher Relauncher, clock clockwork.Clock, execName string, log *slog.Logger) *Controller {
	c := &Controller{
		deck:     sender,
		launcher: relauncher,
		clock:    clock,
		log:      log,
		execName: execName,
		storeFor: func(path string) ConfigStore { return fancontrol.NewFile(path) },
		cmdCh:    make(chan ctlCmd, 256),
		doneCh:   make(chan struct{}),
		sessions: make(map[string]*session.Session),
	}
	go c.run()
	return c
}

// HandleEvent enqueues one inbound device event for the loop.
func (c *Controller) HandleEvent(ev deck.Event) {
	c.cmdCh <- cmdEvent{event: ev}
}

// Post schedules fn onto the event loop. Sessions use this to move timer
// callbacks off the clock goroutine.
func (c *Controller) Post(fn func(ctx context.Context)) {
	c.cmdCh <- cmdPost{fn: fn}
}

// SessionCount reports the number of live dial sessions.
func (c *Controller) SessionCount() int {
	replyCh := make(chan int, 1)
	c.cmdCh <- cmdSessionCount{replyCh: replyCh}
	return <-replyCh
}

// Stop closes every session and terminates the loop.
func (c *Controller) Stop() {
	c.cmdCh <- cmdStop{}
	<-c.doneCh
}

func (c *Controller) run() {
	defer close(c.doneCh)

	ticker := c.clock.NewTicker(session.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			c.pollAll(c.eventContext())
		case cmd := <-c.cmdCh:
			ctx := c.eventContext()
			switch cm := cmd.(type) {
			case cmdEvent:
				c.handleEvent(ctx, cm.event)
			case cmdPost:
				cm.fn(ctx)
			case cmdSessionCount:
				cm.replyCh <- len(c.sessions)
			case cmdStop:
				c.closeAll()
				return
			}
		}
	}
}

// eventContext gives every loop iteration its own correlation ID so one
// interaction's log lines can be traced together.
func (c *Controller) eventContext() context.Context {
	return correlation.WithID(context.Background(), correlation.NewID())
}

func (c *Controller) handleEvent(ctx context.Context, ev deck.Event) {
	metrics.DeckEventsTotal.WithLabelValues(ev.Event).Inc()

	switch ev.Event {
	case deck.EventWillAppear:
		c.handleAppear(ctx, ev)
	case deck.EventWillDisappear:
		c.handleDisappear(ctx, ev)
	case deck.EventDidReceiveSettings:
		c.handleSettings(ctx, ev)
	case deck.EventDialDown:
		if s, ok := c.sessions[ev.Context]; ok {
			s.Press(ctx)
		}
	case deck.EventDialRotate:
		c.handleRotate(ctx, ev)
	case deck.EventSendToPlugin:
		c.handlePluginMessage(ctx, ev)
	case deck.EventPropertyInspectorDidAppear:
		c.handleInspectorAppear(ctx, ev)
	case deck.EventApplicationDidLaunch:
		// The external application came (back) up; its config may have
		// been rewritten on exit.
		c.pollAll(ctx)
	default:
		c.log.DebugContext(ctx, "Ignoring event", "event", ev.Event)
	}
}

func (c *Controller) handleAppear(ctx context.Context, ev deck.Event) {
	settings, haveSettings := c.parseSettings(ctx, ev.Payload)

	if old, ok := c.sessions[ev.Context]; ok {
		old.Close()
	}

	s := session.New(
		ev.Context,
		settings,
		c.storeFor(settings.ConfigPath),
		launcherAdapter{launcher: c.launcher},
		deckDisplay{deck: c.deck},
		c.clock,
		c.Post,
		c.log,
	)
	c.sessions[ev.Context] = s
	metrics.SessionsActive.Set(float64(len(c.sessions)))

	s.Appear(ctx)
	if !haveSettings {
		// First appearance of a freshly dropped action: ask the host to
		// replay whatever it has stored.
		c.deck.GetSettings(ev.Context)
	}
	if settings.Bypass {
		c.checkPreconditions(ev.Context, settings)
	}
}

func (c *Controller) handleDisappear(ctx context.Context, ev deck.Event) {
	s, ok := c.sessions[ev.Context]
	if !ok {
		return
	}
	s.Close()
	delete(c.sessions, ev.Context)
	metrics.SessionsActive.Set(float64(len(c.sessions)))
	c.log.InfoContext(ctx, "Session closed", "instance_id", ev.Context)
}

func (c *Controller) handleSettings(ctx context.Context, ev deck.Event) {
	s, ok := c.sessions[ev.Context]
	if !ok {
		return
	}
	settings, ok := c.parseSettings(ctx, ev.Payload)
	if !ok {
		return
	}
	s.UpdateSettings(ctx, settings, c.storeFor(settings.ConfigPath))
	if settings.Bypass {
		c.checkPreconditions(ev.Context, settings)
	}
}

func (c *Controller) handleRotate(ctx context.Context, ev deck.Event) {
	s, ok := c.sessions[ev.Context]
	if !ok {
		return
	}
	var payload deck.RotatePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		c.log.WarnContext(ctx, "Malformed rotate payload", "error", err)
		return
	}
	s.Rotate(ctx, payload.Ticks)
}

func (c *Controller) handlePluginMessage(ctx context.Context, ev deck.Event) {
	var payload deck.PluginMessagePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		c.log.WarnContext(ctx, "Malformed inspector request", "error", err)
		return
	}

	switch payload.Event {
	case inspector.RequestValidateExecutable:
		var body struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(payload.Body, &body); err != nil {
			c.log.WarnContext(ctx, "Malformed validate request", "error", err)
			return
		}
		c.deck.SendToPropertyInspector(ev.Context, inspector.ValidateExecutable(body.Path, c.execName))
	case inspector.RequestListFans:
		var body struct {
			ConfigPath string `json:"configPath"`
		}
		if len(payload.Body) > 0 {
			if err := json.Unmarshal(payload.Body, &body); err != nil {
				c.log.WarnContext(ctx, "Malformed fan-list request", "error", err)
				return
			}
		}
		path := body.ConfigPath
		if path == "" {
			if s, ok := c.sessions[ev.Context]; ok {
				path = s.Settings().ConfigPath
			}
		}
		c.deck.SendToPropertyInspector(ev.Context, inspector.ListFans(ctx, c.storeFor(path)))
	default:
		c.log.DebugContext(ctx, "Ignoring inspector request", "request", payload.Event)
	}
}

func (c *Controller) handleInspectorAppear(_ context.Context, ev deck.Event) {
	s, ok := c.sessions[ev.Context]
	if !ok {
		return
	}
	settings := s.Settings()
	c.deck.SendToPropertyInspector(ev.Context, inspector.Selection(settings, settings.Mode))
	if settings.Bypass {
		c.checkPreconditions(ev.Context, settings)
	}
}

// checkPreconditions probes the restart mechanism off the loop and posts the
// result back; the session applies it and the settings UI gets a copy.
func (c *Controller) checkPreconditions(instanceID string, settings session.Settings) {
	go func() {
		ctx := correlation.WithID(context.Background(), correlation.NewID())
		result, err := c.launcher.CheckPreconditions(ctx, settings.Executable)
		c.Post(func(ctx context.Context) {
			s, ok := c.sessions[instanceID]
			if !ok {
				return
			}
			if err != nil {
				c.log.WarnContext(ctx, "Precondition check failed", "error", err)
				return
			}
			s.ApplyPreconditions(ctx, result.TaskExists, result.ScriptExists)
			c.deck.SendToPropertyInspector(instanceID, inspector.Preconditions(result.TaskExists, result.ScriptExists))
		})
	}()
}

func (c *Controller) pollAll(ctx context.Context) {
	for _, s := range c.sessions {
		s.Poll(ctx)
	}
}

func (c *Controller) closeAll() {
	for id, s := range c.sessions {
		s.Close()
		delete(c.sessions, id)
	}
	metrics.SessionsActive.Set(0)
}

// parseSettings extracts the settings object from an appearance-shaped
// payload. The second return is false when the payload carried no usable
// settings at all.
func (c *Controller) parseSettings(ctx context.Context, raw json.RawMessage) (session.Settings, bool) {
	var settings session.Settings
	if len(raw) == 0 {
		return settings, false
	}
	var payload deck.AppearancePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.log.WarnContext(ctx, "Malformed event payload", "error", err)
		return settings, false
	}
	switch string(payload.Settings) {
	case "", "{}", "null":
		return settings, false
	}
	if err := json.Unmarshal(payload.Settings, &settings); err != nil {
		c.log.WarnContext(ctx, "Malformed settings", "error", err)
		return settings, false
	}
	return settings, true
}

// --- Adapters ---

// deckDisplay renders session frames onto the device: title text plus the
// dial-layout feedback payload with the composed icon.
type deckDisplay struct {
	deck DeckSender
}

func (d deckDisplay) Render(instanceID string, frame render.Frame) {
	d.deck.SetTitle(instanceID, frame.Title)
	d.deck.SetFeedback(instanceID, render.Feedback(frame))
}

func (d deckDisplay) Alert(instanceID string) {
	d.deck.ShowAlert(instanceID)
}

func (d deckDisplay) ReportWriteError(instanceID string, err error) {
	d.deck.SendToPropertyInspector(instanceID, inspector.WriteError(err))
}

func (d deckDisplay) PersistSettings(instanceID string, settings session.Settings) {
	d.deck.SetSettings(instanceID, settings)
}

// launcherAdapter maps session settings onto a relaunch target.
type launcherAdapter struct {
	launcher Relauncher
}

func (a launcherAdapter) Relaunch(ctx context.Context, s session.Settings) error {
	return a.launcher.Relaunch(ctx, launcher.Target{
		Executable: s.Executable,
		ConfigPath: s.ConfigPath,
		Bypass:     s.Bypass,
	})
}
