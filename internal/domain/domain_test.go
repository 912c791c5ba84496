package domain

import (
	"testing"
	"time"
)

func TestPairKeyUnordered(t *testing.T) {
	if PairKey("alice", "bob") != PairKey("bob", "alice") {
		t.Error("PairKey should be order independent")
	}
	if PairKey("alice", "bob") != "alice|bob" {
		t.Errorf("PairKey = %q, want alice|bob", PairKey("alice", "bob"))
	}
}

func TestNewRelationshipCanonicalOrder(t *testing.T) {
	r := NewRelationship("r1", "zoe", "adam", StatePending, time.Now())
	if r.ParticipantA != "adam" || r.ParticipantB != "zoe" {
		t.Errorf("pair = (%q, %q), want lexical order (adam, zoe)", r.ParticipantA, r.ParticipantB)
	}
	if r.RequesterID != "zoe" {
		t.Errorf("RequesterID = %q, want zoe", r.RequesterID)
	}
}

func TestStateForPerspectives(t *testing.T) {
	tests := []struct {
		name   string
		state  State
		viewer string
		want   PerspectiveState
	}{
		{"pending seen by requester", StatePending, "alice", PendingSent},
		{"pending seen by recipient", StatePending, "bob", PendingReceived},
		{"connected seen by requester", StateConnected, "alice", Connected},
		{"connected seen by recipient", StateConnected, "bob", Connected},
		{"rejected seen by requester", StateRejected, "alice", Rejected},
		{"rejected seen by rejecter", StateRejected, "bob", NotConnected},
		{"not connected", StateNotConnected, "alice", NotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRelationship("r1", "alice", "bob", tt.state, time.Now())
			if got := r.StateFor(tt.viewer); got != tt.want {
				t.Errorf("StateFor(%s) = %s, want %s", tt.viewer, got, tt.want)
			}
		})
	}
}

func TestOtherAndInvolves(t *testing.T) {
	r := NewRelationship("r1", "alice", "bob", StateConnected, time.Now())
	if r.Other("alice") != "bob" || r.Other("bob") != "alice" {
		t.Error("Other should return the opposite participant")
	}
	if r.Other("carol") != "" {
		t.Errorf("Other(carol) = %q, want empty", r.Other("carol"))
	}
	if !r.Involves("alice") || r.Involves("carol") {
		t.Error("Involves mismatch")
	}
}

func TestCanAdvanceMonotonic(t *testing.T) {
	forward := []struct{ from, to DeliveryState }{
		{DeliverySending, DeliverySent},
		{DeliverySent, DeliveryDelivered},
		{DeliveryDelivered, DeliveryRead},
		{DeliverySending, DeliveryRead},
	}
	for _, tt := range forward {
		if !CanAdvance(tt.from, tt.to) {
			t.Errorf("CanAdvance(%s, %s) = false, want true", tt.from, tt.to)
		}
	}

	backward := []struct{ from, to DeliveryState }{
		{DeliverySent, DeliverySending},
		{DeliveryRead, DeliveryDelivered},
		{DeliverySent, DeliverySent},
		{DeliveryReceived, DeliverySent},
		{DeliverySent, DeliveryReceived},
	}
	for _, tt := range backward {
		if CanAdvance(tt.from, tt.to) {
			t.Errorf("CanAdvance(%s, %s) = true, want false", tt.from, tt.to)
		}
	}
}

func TestSameLogicalSend(t *testing.T) {
	now := time.Now()
	a := Message{SenderID: "alice", Body: "hello", CreatedAt: now}

	b := Message{SenderID: "alice", Body: "hello", CreatedAt: now.Add(time.Second)}
	if !SameLogicalSend(a, b, 2*time.Second) {
		t.Error("near-equal timestamps should match")
	}

	c := Message{SenderID: "alice", Body: "hello", CreatedAt: now.Add(10 * time.Second)}
	if SameLogicalSend(a, c, 2*time.Second) {
		t.Error("timestamps outside tolerance should not match")
	}

	d := Message{SenderID: "bob", Body: "hello", CreatedAt: now}
	if SameLogicalSend(a, d, 2*time.Second) {
		t.Error("different senders should not match")
	}
}
