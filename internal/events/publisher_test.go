package events

import (
	"context"
	"testing"

	"github.com/modamart/internal/config"
)

func TestSubject(t *testing.T) {
	cases := map[string]string{
		"":       "order.split",
		"mm":     "mm.order.split",
		".mm.":   "mm.order.split",
		" shop ": "shop.order.split",
	}
	for prefix, want := range cases {
		if got := Subject(prefix, "order.split"); got != want {
			t.Fatalf("Subject(%q) = %q, want %q", prefix, got, want)
		}
	}
}

func TestNewDisabledReturnsNoop(t *testing.T) {
	pub, err := New(&config.EventsConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("new publisher failed: %v", err)
	}
	if _, ok := pub.(NoopPublisher); !ok {
		t.Fatalf("expected noop publisher, got %T", pub)
	}
	if err := pub.Publish(context.Background(), "order.split", map[string]int{"a": 1}); err != nil {
		t.Fatalf("noop publish failed: %v", err)
	}
	pub.Close()
}
