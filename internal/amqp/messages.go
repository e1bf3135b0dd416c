package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Actions carried by a movement sync message.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// MovementSyncMessage tells the worker a movement changed. It carries
// only identifiers and the version; the worker fetches the full row
// from storage.
type MovementSyncMessage struct {
	MovementID string    `json:"movement_id"`
	BookID     string    `json:"book_id"`
	Action     string    `json:"action"`
	Version    int64     `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewMovementSyncMessage(movementID, bookID, action string, version int64) *MovementSyncMessage {
	return &MovementSyncMessage{
		MovementID: movementID,
		BookID:     bookID,
		Action:     action,
		Version:    version,
		Timestamp:  time.Now(),
	}
}

// Validate rejects messages a worker could not act on.
func (m *MovementSyncMessage) Validate() error {
	if m.MovementID == "" {
		return fmt.Errorf("movement sync message missing movement_id")
	}
	switch m.Action {
	case ActionCreate, ActionUpdate, ActionDelete:
		return nil
	default:
		return fmt.Errorf("unknown sync action %q", m.Action)
	}
}

func (m *MovementSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MovementSyncMessageFromJSON(data []byte) (*MovementSyncMessage, error) {
	var msg MovementSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
