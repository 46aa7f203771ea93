package model

import "testing"

func TestToggleReactionAdd(t *testing.T) {
	got := ToggleReaction(nil, "u1", "👍")
	if len(got) != 1 || got[0].UserID != "u1" || got[0].Emoji != "👍" {
		t.Fatalf("expected single 👍 reaction for u1, got %+v", got)
	}
}

func TestToggleReactionRemoveSameEmoji(t *testing.T) {
	reactions := []Reaction{{UserID: "u1", Emoji: "👍"}}
	got := ToggleReaction(reactions, "u1", "👍")
	if len(got) != 0 {
		t.Fatalf("toggling the same emoji should remove it, got %+v", got)
	}
}

func TestToggleReactionReplacesPreviousEmoji(t *testing.T) {
	reactions := []Reaction{{UserID: "u1", Emoji: "👍"}}
	got := ToggleReaction(reactions, "u1", "❤️")
	if len(got) != 1 {
		t.Fatalf("expected exactly one reaction after replacement, got %+v", got)
	}
	if got[0].Emoji != "❤️" {
		t.Fatalf("expected ❤️ after replacement, got %s", got[0].Emoji)
	}
}

func TestToggleReactionOnePerUser(t *testing.T) {
	var reactions []Reaction
	for _, emoji := range []string{"👍", "❤️", "😂", "❤️"} {
		reactions = ToggleReaction(reactions, "u1", emoji)
	}
	// 👍 -> ❤️ -> 😂 -> ❤️: always at most one entry for u1.
	if len(reactions) != 1 || reactions[0].Emoji != "❤️" {
		t.Fatalf("expected single ❤️ for u1, got %+v", reactions)
	}
}

func TestToggleReactionLeavesOtherUsersAlone(t *testing.T) {
	reactions := []Reaction{
		{UserID: "u1", Emoji: "👍"},
		{UserID: "u2", Emoji: "😂"},
	}
	got := ToggleReaction(reactions, "u1", "👍")
	if len(got) != 1 || got[0].UserID != "u2" || got[0].Emoji != "😂" {
		t.Fatalf("u2's reaction must survive u1's toggle, got %+v", got)
	}
}
