package amqp

import (
	"strings"
	"testing"
)

func TestMovementSyncMessageValidate(t *testing.T) {
	msg := NewMovementSyncMessage("m1", "b1", ActionCreate, 1)
	if err := msg.Validate(); err != nil {
		t.Fatalf("valid message rejected: %v", err)
	}

	msg = NewMovementSyncMessage("", "b1", ActionCreate, 1)
	if err := msg.Validate(); err == nil {
		t.Fatalf("missing movement id should be rejected")
	}

	msg = NewMovementSyncMessage("m1", "b1", "upsert", 1)
	err := msg.Validate()
	if err == nil || !strings.Contains(err.Error(), "upsert") {
		t.Fatalf("unknown action should be rejected, got %v", err)
	}
}

func TestMovementSyncMessageFromJSON(t *testing.T) {
	body, err := NewMovementSyncMessage("m1", "b1", ActionDelete, 3).ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}

	msg, err := MovementSyncMessageFromJSON(body)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if msg.MovementID != "m1" || msg.BookID != "b1" || msg.Action != ActionDelete || msg.Version != 3 {
		t.Fatalf("round trip: %+v", msg)
	}

	if _, err := MovementSyncMessageFromJSON([]byte("{")); err == nil {
		t.Fatalf("malformed json should fail")
	}
	if _, err := MovementSyncMessageFromJSON([]byte(`{"movement_id":""}`)); err == nil {
		t.Fatalf("invalid payload should fail validation")
	}
}
