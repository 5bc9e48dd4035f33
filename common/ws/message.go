package ws

import (
	"encoding/json"
	"time"

	commonstorage "printmonitor/common/storage"
)

// Message is the WebSocket message shape shared by the API and UI clients.
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp,omitempty"`
}

// Marshal marshals the message to JSON bytes.
func (m *Message) Marshal() ([]byte, error) {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	return json.Marshal(m)
}

// Message types pushed to UI clients
const (
	MessageTypeHeartbeat     = "heartbeat"
	MessageTypePong          = "pong"
	MessageTypeError         = "error"
	MessageTypeDeviceStatus  = "device_status"  // a device's latest snapshot
	MessageTypeDeviceRemoved = "device_removed" // a device left the registry
)

// DeviceStatusMessage wraps a freshly stored snapshot for broadcast.
func DeviceStatusMessage(deviceID string, snap commonstorage.Snapshot) Message {
	return Message{
		Type: MessageTypeDeviceStatus,
		Data: map[string]interface{}{
			"device_id": deviceID,
			"snapshot":  snap,
		},
		Timestamp: time.Now().UTC(),
	}
}

// DeviceRemovedMessage tells clients to drop a device from their view.
func DeviceRemovedMessage(deviceID string) Message {
	return Message{
		Type:      MessageTypeDeviceRemoved,
		Data:      map[string]interface{}{"device_id": deviceID},
		Timestamp: time.Now().UTC(),
	}
}
