package model

import "testing"

func TestDirectKeyOrderIndependent(t *testing.T) {
	if DirectKey("alice", "bob") != DirectKey("bob", "alice") {
		t.Fatal("direct key must not depend on argument order")
	}
	if DirectKey("alice", "bob") != "alice:bob" {
		t.Fatalf("unexpected key: %s", DirectKey("alice", "bob"))
	}
}

func TestDirectKeyDistinctPairs(t *testing.T) {
	if DirectKey("alice", "bob") == DirectKey("alice", "carol") {
		t.Fatal("different pairs must produce different keys")
	}
}

func TestHasParticipant(t *testing.T) {
	c := &Conversation{Participants: []string{"alice", "bob"}}
	if !c.HasParticipant("alice") {
		t.Fatal("alice should be a participant")
	}
	if c.HasParticipant("carol") {
		t.Fatal("carol should not be a participant")
	}
}
