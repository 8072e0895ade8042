package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestOpenValidatesInput(t *testing.T) {
	if _, err := Open(nil, "redis://localhost:6379/0"); err == nil {
		t.Fatalf("expected error for nil context")
	}
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty url")
	}

	_, err := Open(context.Background(), "http://localhost:6379")
	if err == nil || !strings.Contains(err.Error(), "parse redis url") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestOpenFailsWhenPingFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// Port 1 is reserved and refuses connections.
	_, err := Open(ctx, "redis://127.0.0.1:1/0")
	if err == nil || !strings.Contains(err.Error(), "ping redis") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestCloseToleratesNilClient(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Fatalf("expected nil client close to succeed, got %v", err)
	}
}
