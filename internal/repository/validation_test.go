package repository

import (
	"context"
	"errors"
	"testing"
)

// These paths reject bad input before touching the database, so a nil pool
// is enough.

func TestGetOrCreateDirectRejectsSelfChat(t *testing.T) {
	r := NewConversationRepository(nil)
	if _, _, err := r.GetOrCreateDirect(context.Background(), "alice", "alice"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for self-chat, got %v", err)
	}
}

func TestGetOrCreateDirectRejectsEmptyUser(t *testing.T) {
	r := NewConversationRepository(nil)
	if _, _, err := r.GetOrCreateDirect(context.Background(), "alice", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty user, got %v", err)
	}
}

func TestCreateGroupRejectsEmptyName(t *testing.T) {
	r := NewConversationRepository(nil)
	if _, err := r.CreateGroup(context.Background(), "alice", []string{"bob"}, "", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty name, got %v", err)
	}
}

func TestCreateGroupRejectsNoMembers(t *testing.T) {
	r := NewConversationRepository(nil)
	if _, err := r.CreateGroup(context.Background(), "alice", nil, "team", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty member list, got %v", err)
	}
}

func TestCreateGroupRejectsCreatorOnly(t *testing.T) {
	// Deduplication leaves just the creator: not a group.
	r := NewConversationRepository(nil)
	if _, err := r.CreateGroup(context.Background(), "alice", []string{"alice", ""}, "team", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument when the creator is the only member, got %v", err)
	}
}

func TestToggleReactionRejectsEmptyEmoji(t *testing.T) {
	r := NewMessageRepository(nil)
	if _, err := r.ToggleReaction(context.Background(), "m1", "alice", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty emoji, got %v", err)
	}
}

func TestUpsertRejectsEmptyExternalID(t *testing.T) {
	r := NewUserRepository(nil)
	if _, err := r.Upsert(context.Background(), "", "A", "a@x.io", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty external id, got %v", err)
	}
}
