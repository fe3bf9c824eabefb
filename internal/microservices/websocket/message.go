package websocket

import (
	"encoding/json"
	"time"

	"darwinawards/internal/display"
	"darwinawards/internal/shared"
)

type MessageType string

const (
	TypeDeaths MessageType = "deaths" // full list of visible deaths
)

// Message is pushed to overlay renderers. Every message carries the
// complete visible list so a renderer never has to merge state.
type Message struct {
	Type      MessageType `json:"type"`
	Deaths    []Death     `json:"deaths"`
	Timestamp time.Time   `json:"timestamp"`
}

type Death struct {
	Category   shared.Category `json:"category"`
	Text       string          `json:"text"`
	ReceivedAt time.Time       `json:"received_at"`
}

func NewDeathsMessage(entries []display.Entry) *Message {
	deaths := make([]Death, 0, len(entries))
	for _, e := range entries {
		deaths = append(deaths, Death{
			Category:   e.Message.Category,
			Text:       e.Message.Text,
			ReceivedAt: e.ReceivedAt,
		})
	}
	return &Message{Type: TypeDeaths, Deaths: deaths, Timestamp: time.Now().UTC()}
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
