package cardissue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DeviceLog is an immutable append-only event record tied to an agent,
// optionally a device and a card issue. Written once, never mutated.
type DeviceLog struct {
	ID          uuid.UUID
	AgentID     uuid.UUID
	DeviceID    *uuid.UUID
	CardIssueID *uuid.UUID
	EventType   LogEventType
	Payload     json.RawMessage
	CreatedAt   time.Time
}

// LogEventType is the closed set of device log events.
type LogEventType string

const (
	EventCardProgrammed     LogEventType = "card_programmed"
	EventCardRead           LogEventType = "card_read"
	EventDeviceConnected    LogEventType = "device_connected"
	EventDeviceDisconnected LogEventType = "device_disconnected"
	EventError              LogEventType = "error"
)

// IsValid reports whether the event type belongs to the closed set.
func (t LogEventType) IsValid() bool {
	switch t {
	case EventCardProgrammed, EventCardRead, EventDeviceConnected, EventDeviceDisconnected, EventError:
		return true
	}
	return false
}
