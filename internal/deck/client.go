// Package deck speaks the device host's websocket protocol: registration
// handshake, inbound dial events, outbound title/feedback/alert commands.
package deck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 64
)

// Client is a websocket connection to the device host. Reads are surfaced
// on Events(); writes go through a dedicated writer goroutine so event
// handling never blocks on a slow socket.
type Client struct {
	conn    *websocket.Conn
	events  chan Event
	sendCh  chan []byte
	done    chan struct{}
	readErr chan error
}

// Dial connects to the host on 127.0.0.1:port and performs the registration
// handshake with the UUID and register event the host passed on the command
// line.
func Dial(ctx context.Context, port, pluginUUID, registerEvent string) (*Client, error) {
	url := fmt.Sprintf("ws://127.0.0.1:%s", port)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device host: %w", err)
	}

	registration, err := json.Marshal(map[string]string{
		"event": registerEvent,
		"uuid":  pluginUUID,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to encode registration: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, registration); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to register with device host: %w", err)
	}

	c := &Client{
		conn:    conn,
		events:  make(chan Event, sendBuffer),
		sendCh:  make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		readErr: make(chan error, 1),
	}
	go c.readLoop()
	go c.writeLoop()
	return c, nil
}

// Events delivers inbound host events. The channel closes when the
// connection drops.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Err reports why the read loop exited, once Events() has closed.
func (c *Client) Err() error {
	select {
	case err := <-c.readErr:
		return err
	default:
		return nil
	}
}

// Close tears down the connection and stops both loops.
func (c *Client) Close() {
	close(c.done)
	c.conn.Close()
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case c.readErr <- err:
			default:
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("Dropping malformed host event", "error", err)
			continue
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case msg := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("Device host write failed", "error", err)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal host command", "error", err)
		return
	}
	select {
	case c.sendCh <- data:
	default:
		slog.Warn("Host command dropped, send buffer full")
	}
}

// SetTitle sets the title string of one dial instance.
func (c *Client) SetTitle(instanceID, title string) {
	c.send(map[string]any{
		"event":   "setTitle",
		"context": instanceID,
		"payload": map[string]any{"title": title, "target": 0},
	})
}

// SetFeedback updates the dial's layout slots (value text, indicator bar, icon).
func (c *Client) SetFeedback(instanceID string, payload map[string]any) {
	c.send(map[string]any{
		"event":   "setFeedback",
		"context": instanceID,
		"payload": payload,
	})
}

// ShowAlert flashes the device's alert cue on one dial instance.
func (c *Client) ShowAlert(instanceID string) {
	c.send(map[string]any{
		"event":   "showAlert",
		"context": instanceID,
	})
}

// SetSettings persists the settings object for one dial instance.
func (c *Client) SetSettings(instanceID string, settings any) {
	c.send(map[string]any{
		"event":   "setSettings",
		"context": instanceID,
		"payload": settings,
	})
}

// GetSettings asks the host to replay the instance's stored settings; the
// reply arrives as a didReceiveSettings event.
func (c *Client) GetSettings(instanceID string) {
	c.send(map[string]any{
		"event":   "getSettings",
		"context": instanceID,
	})
}

// SendToPropertyInspector delivers a message to the instance's settings UI.
func (c *Client) SendToPropertyInspector(instanceID string, payload any) {
	c.send(map[string]any{
		"event":   "sendToPropertyInspector",
		"context": instanceID,
		"payload": payload,
	})
}

// LogMessage writes a line into the host's own log file.
func (c *Client) LogMessage(message string) {
	c.send(map[string]any{
		"event":   "logMessage",
		"payload": map[string]any{"message": message},
	})
}
