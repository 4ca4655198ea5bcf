package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestNew_AssignsIdentity(t *testing.T) {
	at := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	first := New(TypeSaleCreated, "p1", map[string]int{"quantity": 2}, at)
	second := New(TypeSaleCreated, "p1", nil, at)

	if first.ID == "" || first.ID == second.ID {
		t.Errorf("Expected distinct non-empty event ids, got %q and %q", first.ID, second.ID)
	}
	if first.Key != "p1" || first.Type != TypeSaleCreated || !first.Timestamp.Equal(at) {
		t.Errorf("Expected envelope fields to be set, got %+v", first)
	}

	body, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if decoded["event_type"] != TypeSaleCreated {
		t.Errorf("Expected event_type %s, got %v", TypeSaleCreated, decoded["event_type"])
	}
	if _, hasKey := decoded["Key"]; hasKey {
		t.Errorf("Expected partition key to stay out of the payload")
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), New(TypeProductionPrepared, "r1", nil, time.Now())); err != nil {
		t.Errorf("Expected nop publish to succeed, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Expected nop close to succeed, got %v", err)
	}
}
