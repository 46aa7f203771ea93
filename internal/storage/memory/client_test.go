package memory

import (
	"context"
	"testing"
	"time"
)

func TestSetAndListTyping(t *testing.T) {
	c := New()
	ctx := context.Background()
	now := time.Now()

	if err := c.SetTyping(ctx, "conv1", "u1", now); err != nil {
		t.Fatalf("SetTyping failed: %v", err)
	}
	if err := c.SetTyping(ctx, "conv1", "u2", now); err != nil {
		t.Fatalf("SetTyping failed: %v", err)
	}

	markers, err := c.ListTyping(ctx, "conv1")
	if err != nil {
		t.Fatalf("ListTyping failed: %v", err)
	}
	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}

	// Markers are scoped per conversation.
	markers, err = c.ListTyping(ctx, "conv2")
	if err != nil {
		t.Fatalf("ListTyping failed: %v", err)
	}
	if len(markers) != 0 {
		t.Fatalf("expected no markers in conv2, got %d", len(markers))
	}
}

func TestClearTyping(t *testing.T) {
	c := New()
	ctx := context.Background()

	if err := c.SetTyping(ctx, "conv1", "u1", time.Now()); err != nil {
		t.Fatalf("SetTyping failed: %v", err)
	}
	if err := c.ClearTyping(ctx, "conv1", "u1"); err != nil {
		t.Fatalf("ClearTyping failed: %v", err)
	}
	markers, err := c.ListTyping(ctx, "conv1")
	if err != nil {
		t.Fatalf("ListTyping failed: %v", err)
	}
	if len(markers) != 0 {
		t.Fatalf("expected no markers after clear, got %+v", markers)
	}
}

func TestClearTypingAbsentIsNoError(t *testing.T) {
	c := New()
	if err := c.ClearTyping(context.Background(), "conv1", "nobody"); err != nil {
		t.Fatalf("clearing an absent marker must not fail: %v", err)
	}
}

func TestSetTypingUpdatesTimestamp(t *testing.T) {
	c := New()
	ctx := context.Background()
	first := time.Now().Add(-time.Second)
	second := time.Now()

	if err := c.SetTyping(ctx, "conv1", "u1", first); err != nil {
		t.Fatalf("SetTyping failed: %v", err)
	}
	if err := c.SetTyping(ctx, "conv1", "u1", second); err != nil {
		t.Fatalf("SetTyping failed: %v", err)
	}
	markers, err := c.ListTyping(ctx, "conv1")
	if err != nil {
		t.Fatalf("ListTyping failed: %v", err)
	}
	if len(markers) != 1 {
		t.Fatalf("expected one marker per user, got %d", len(markers))
	}
	if !markers[0].LastTyped.Equal(second) {
		t.Fatalf("expected latest timestamp, got %v", markers[0].LastTyped)
	}
}

func TestWritesPruneExpiredMarkers(t *testing.T) {
	c := New()
	ctx := context.Background()
	now := time.Now()

	if err := c.SetTyping(ctx, "conv1", "old", now.Add(-markerTTL-time.Second)); err != nil {
		t.Fatalf("SetTyping failed: %v", err)
	}
	if err := c.SetTyping(ctx, "conv1", "new", now); err != nil {
		t.Fatalf("SetTyping failed: %v", err)
	}
	markers, err := c.ListTyping(ctx, "conv1")
	if err != nil {
		t.Fatalf("ListTyping failed: %v", err)
	}
	if len(markers) != 1 || markers[0].UserID != "new" {
		t.Fatalf("expected only the fresh marker, got %+v", markers)
	}
}
