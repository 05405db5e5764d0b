// Package message provides the outbound push message structure for pushgate
package message

import (
	"time"

	"github.com/google/uuid"

	"github.com/kart-io/pushgate/pkg/errors"
)

// PushType identifies the delivery class of a message
type PushType string

const (
	PushTypeAlert      PushType = "alert"
	PushTypeBackground PushType = "background"
	PushTypeVoIP       PushType = "voip"
	PushTypeLiveUpdate PushType = "liveactivity"
)

// Priority represents message delivery priority
type Priority int

const (
	// PriorityConserve lets the gateway batch delivery to conserve device power
	PriorityConserve Priority = 5
	// PriorityImmediate requests immediate delivery
	PriorityImmediate Priority = 10
)

// Message represents a single push notification bound for the gateway.
// A message is immutable once submitted to a client; the dispatch layer
// never mutates it and holds it only for correlation and metrics
// attribution.
type Message struct {
	// ID is a canonical UUID identifying the notification
	ID string `json:"id"`

	// DeviceToken addresses the destination device
	DeviceToken string `json:"device_token"`

	// Topic scopes the message for authorization and metrics attribution
	Topic string `json:"topic"`

	// Payload is the opaque notification body; contents are not inspected
	// by the dispatch layer
	Payload []byte `json:"payload"`

	Priority   Priority  `json:"priority"`
	PushType   PushType  `json:"push_type,omitempty"`
	CollapseID string    `json:"collapse_id,omitempty"`
	Expiration time.Time `json:"expiration,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// New creates a new message with default values
func New() *Message {
	return &Message{
		ID:        uuid.NewString(),
		Priority:  PriorityImmediate,
		PushType:  PushTypeAlert,
		CreatedAt: time.Now(),
	}
}

// SetDeviceToken sets the destination device token
func (m *Message) SetDeviceToken(token string) *Message {
	m.DeviceToken = token
	return m
}

// SetTopic sets the message topic
func (m *Message) SetTopic(topic string) *Message {
	m.Topic = topic
	return m
}

// SetPayload sets the opaque notification payload
func (m *Message) SetPayload(payload []byte) *Message {
	m.Payload = payload
	return m
}

// SetPriority sets the delivery priority
func (m *Message) SetPriority(priority Priority) *Message {
	m.Priority = priority
	return m
}

// SetPushType sets the delivery class
func (m *Message) SetPushType(pushType PushType) *Message {
	m.PushType = pushType
	return m
}

// SetCollapseID sets the collapse identifier; messages sharing a collapse
// ID supersede one another on the device
func (m *Message) SetCollapseID(id string) *Message {
	m.CollapseID = id
	return m
}

// SetExpiration sets the time after which the gateway discards the message
func (m *Message) SetExpiration(at time.Time) *Message {
	m.Expiration = at
	return m
}

// Validate checks the message for the fields the gateway requires
func (m *Message) Validate() error {
	if m.DeviceToken == "" {
		return errors.New(errors.ErrInvalidMessage, "message must have a device token")
	}
	if len(m.Payload) == 0 {
		return errors.New(errors.ErrInvalidMessage, "message payload cannot be empty")
	}
	return nil
}
