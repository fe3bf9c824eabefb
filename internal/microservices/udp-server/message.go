package udp

import (
	"encoding/json"
	"fmt"
	"time"

	"darwinawards/internal/shared"
	"darwinawards/internal/synced"
)

// MaxDatagramSize bounds every message on the session channel.
const MaxDatagramSize = 64 * 1024

// MessageType defines the kind of datagram
type MessageType string

const (
	MessageSubscribe    MessageType = "SUBSCRIBE"
	MessageUnsubscribe  MessageType = "UNSUBSCRIBE"
	MessagePing         MessageType = "PING"
	MessagePong         MessageType = "PONG"
	MessageDeath        MessageType = "DEATH"
	MessageSync         MessageType = "SYNC"
	MessageSubscribed   MessageType = "SUBSCRIBED"
	MessageUnsubscribed MessageType = "UNSUBSCRIBED"
)

// Message is the single datagram format of the session channel. Only the
// fields belonging to Type are set.
type Message struct {
	Type MessageType `json:"type"`

	// control
	PeerID string `json:"peer_id,omitempty"`
	Player string `json:"player,omitempty"`
	Info   string `json:"info,omitempty"`

	// DEATH
	ID       string          `json:"id,omitempty"`
	Origin   string          `json:"origin,omitempty"`
	Category shared.Category `json:"category,omitempty"`
	Text     string          `json:"text,omitempty"`

	// SYNC
	Name    string `json:"name,omitempty"`
	Version int64  `json:"version,omitempty"`
	Data    []byte `json:"data,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

func NewSubscribe(peerID, player string) *Message {
	return &Message{Type: MessageSubscribe, PeerID: peerID, Player: player, Timestamp: time.Now()}
}

func NewControl(t MessageType, peerID string) *Message {
	return &Message{Type: t, PeerID: peerID, Timestamp: time.Now()}
}

// NewDeath wraps a selected message for the relay. id identifies this
// message across duplicate deliveries.
func NewDeath(id, origin string, msg shared.DeathMessage) *Message {
	return &Message{
		Type:      MessageDeath,
		ID:        id,
		Origin:    origin,
		Category:  msg.Category,
		Text:      msg.Text,
		Timestamp: time.Now(),
	}
}

func NewSync(v synced.Value) *Message {
	return &Message{
		Type:      MessageSync,
		Name:      v.Name,
		Version:   v.Version,
		Data:      v.Data,
		Timestamp: time.Now(),
	}
}

func (m *Message) DeathMessage() shared.DeathMessage {
	return shared.DeathMessage{Category: m.Category, Text: m.Text}
}

func (m *Message) Value() synced.Value {
	data := m.Data
	if data == nil {
		data = []byte{}
	}
	return synced.Value{Name: m.Name, Version: m.Version, Data: data}
}

func (m *Message) ToJSON() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDatagramSize {
		return nil, fmt.Errorf("%s message is %d bytes, limit is %d", m.Type, len(data), MaxDatagramSize)
	}
	return data, nil
}

// ParseMessage decodes a datagram and checks the fields its type requires.
func ParseMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	switch m.Type {
	case MessageSubscribe, MessageUnsubscribe, MessagePing:
		if m.PeerID == "" {
			return nil, fmt.Errorf("%s without peer_id", m.Type)
		}
	case MessageDeath:
		if m.ID == "" || m.Origin == "" {
			return nil, fmt.Errorf("DEATH without id or origin")
		}
	case MessageSync:
		if m.Name == "" {
			return nil, fmt.Errorf("SYNC without name")
		}
	case MessagePong, MessageSubscribed, MessageUnsubscribed:
	default:
		return nil, fmt.Errorf("unknown message type %q", m.Type)
	}
	return &m, nil
}
