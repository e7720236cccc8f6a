package live

import (
	"context"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/roster/internal/replicate"
	"github.com/MrWong99/roster/internal/roster"
)

func TestPublishDropsSlowClient(t *testing.T) {
	t.Parallel()
	h := NewHub(func(context.Context) ([]roster.Character, error) { return nil, nil }, WithBuffer(1))

	slow := &client{send: make(chan []byte, 1), gone: make(chan struct{})}
	fast := &client{send: make(chan []byte, 4), gone: make(chan struct{})}
	h.add(slow)
	h.add(fast)

	ch := replicate.Change{Characters: roster.DefaultCharacters(), At: time.Now()}
	h.Publish(ch)
	h.Publish(ch)

	select {
	case <-slow.gone:
	default:
		t.Fatal("slow client was not dropped")
	}
	if slow.status != websocket.StatusPolicyViolation {
		t.Errorf("status = %v, want %v", slow.status, websocket.StatusPolicyViolation)
	}
	if got := len(fast.send); got != 2 {
		t.Errorf("fast client queued %d messages, want 2", got)
	}
	if got := h.Clients(); got != 1 {
		t.Errorf("Clients = %d, want 1", got)
	}
}
