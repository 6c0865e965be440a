package deck

import "encoding/json"

// Inbound event names delivered by the device host.
const (
	EventWillAppear                 = "willAppear"
	EventWillDisappear              = "willDisappear"
	EventDidReceiveSettings         = "didReceiveSettings"
	EventDialDown                   = "dialDown"
	EventDialRotate                 = "dialRotate"
	EventSendToPlugin               = "sendToPlugin"
	EventPropertyInspectorDidAppear = "propertyInspectorDidAppear"
	EventApplicationDidLaunch       = "applicationDidLaunch"
)

// Event is the generic envelope for inbound host events. Context identifies
// the dial instance the event belongs to.
type Event struct {
	Action  string          `json:"action,omitempty"`
	Event   string          `json:"event"`
	Context string          `json:"context,omitempty"`
	Device  string          `json:"device,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AppearancePayload is the payload of willAppear, willDisappear and
// didReceiveSettings events.
type AppearancePayload struct {
	Settings   json.RawMessage `json:"settings"`
	Controller string          `json:"controller,omitempty"`
}

// RotatePayload is the payload of dialRotate events. Ticks is signed:
// positive for clockwise.
type RotatePayload struct {
	Settings json.RawMessage `json:"settings"`
	Ticks    int             `json:"ticks"`
	Pressed  bool            `json:"pressed"`
}

// PluginMessagePayload carries a property-inspector request to the plugin.
type PluginMessagePayload struct {
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body,omitempty"`
}
