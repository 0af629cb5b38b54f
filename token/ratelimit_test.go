package token

import (
	"testing"
	"time"
)

func TestFixedWindowLimitsPerKey(t *testing.T) {
	now := time.Unix(1000, 0)
	fw := NewFixedWindow(2, time.Minute)
	fw.now = func() time.Time { return now }

	if !fw.Allow("a") || !fw.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if fw.Allow("a") {
		t.Fatal("third request in window should be rejected")
	}
	// Another key has its own bucket.
	if !fw.Allow("b") {
		t.Fatal("independent key should pass")
	}
}

func TestFixedWindowResets(t *testing.T) {
	now := time.Unix(1000, 0)
	fw := NewFixedWindow(1, time.Minute)
	fw.now = func() time.Time { return now }

	if !fw.Allow("a") {
		t.Fatal("first request should pass")
	}
	if fw.Allow("a") {
		t.Fatal("second request should be rejected")
	}

	now = now.Add(time.Minute)
	if !fw.Allow("a") {
		t.Fatal("request in fresh window should pass")
	}
}

func TestFixedWindowRetryAfter(t *testing.T) {
	now := time.Unix(1000, 0)
	fw := NewFixedWindow(1, time.Minute)
	fw.now = func() time.Time { return now }

	if fw.RetryAfter("a") != 0 {
		t.Fatal("unknown key should have no wait")
	}

	fw.Allow("a")
	now = now.Add(40 * time.Second)
	if got := fw.RetryAfter("a"); got != 20*time.Second {
		t.Fatalf("retry after = %s, want 20s", got)
	}

	now = now.Add(time.Hour)
	if got := fw.RetryAfter("a"); got != 0 {
		t.Fatalf("expired window retry after = %s, want 0", got)
	}
}
