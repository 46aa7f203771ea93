package model

import (
	"testing"
	"time"
)

func TestFreshTypingExcludesCaller(t *testing.T) {
	now := time.Now()
	markers := []TypingMarker{
		{ConversationID: "c1", UserID: "me", LastTyped: now},
		{ConversationID: "c1", UserID: "other", LastTyped: now},
	}
	got := FreshTyping(markers, "me", now)
	if len(got) != 1 || got[0].UserID != "other" {
		t.Fatalf("expected only the other user, got %+v", got)
	}
}

func TestFreshTypingDropsStaleMarkers(t *testing.T) {
	now := time.Now()
	markers := []TypingMarker{
		{ConversationID: "c1", UserID: "fresh", LastTyped: now.Add(-TypingFreshWindow / 2)},
		{ConversationID: "c1", UserID: "boundary", LastTyped: now.Add(-TypingFreshWindow)},
		{ConversationID: "c1", UserID: "stale", LastTyped: now.Add(-2 * TypingFreshWindow)},
	}
	got := FreshTyping(markers, "", now)
	if len(got) != 1 || got[0].UserID != "fresh" {
		t.Fatalf("a marker exactly at the window edge counts as stale, got %+v", got)
	}
}

func TestFreshTypingEmpty(t *testing.T) {
	got := FreshTyping(nil, "me", time.Now())
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
