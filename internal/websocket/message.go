package websocket

import (
	"encoding/json"
	"time"

	"empty-jar/internal/domain"
)

type MessageType string

const (
	TypeNoteCreated     MessageType = "note_created"
	TypeNoteUpdated     MessageType = "note_updated"
	TypeNoteDeleted     MessageType = "note_deleted"
	TypeSettingsUpdated MessageType = "settings_updated"
	TypePing            MessageType = "ping"
	TypePong            MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NoteEventPayload tells a user's other devices that a week changed. Note is
// nil for deletions.
type NoteEventPayload struct {
	WeekKey  string       `json:"week_key"`
	Note     *domain.Note `json:"note,omitempty"`
	DeviceID string       `json:"device_id,omitempty"`
}

type SettingsEventPayload struct {
	Settings *domain.Settings `json:"settings"`
	DeviceID string           `json:"device_id,omitempty"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
