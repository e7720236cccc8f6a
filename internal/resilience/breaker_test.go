package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/roster/pkg/kv"
)

var errTest = errors.New("test error")

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg BreakerConfig) (*Breaker, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker(cfg)
	b.now = c.now
	return b, c
}

func fail() error    { return errTest }
func succeed() error { return nil }

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test"})
	if b.maxFailures != 5 {
		t.Errorf("maxFailures = %d, want 5", b.maxFailures)
	}
	if b.cooldown != 30*time.Second {
		t.Errorf("cooldown = %v, want 30s", b.cooldown)
	}
	if b.probes != 2 {
		t.Errorf("probes = %d, want 2", b.probes)
	}
	if b.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", b.State())
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{MaxFailures: 3})

	for range 2 {
		_ = b.Do(fail)
	}
	// A success in between resets the count.
	_ = b.Do(succeed)
	for range 2 {
		_ = b.Do(fail)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed after non-consecutive failures", b.State())
	}

	if err := b.Do(fail); !errors.Is(err, errTest) {
		t.Fatalf("Do: want the call's own error, got %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Do: want ErrOpen, got %v", err)
	}
	if called {
		t.Error("fn was called while open")
	}
}

func TestBreaker_HalfOpen(t *testing.T) {
	tests := []struct {
		name   string
		probes []func() error
		want   State
	}{
		{name: "successful probes close", probes: []func() error{succeed, succeed}, want: StateClosed},
		{name: "failed probe re-opens", probes: []func() error{succeed, fail}, want: StateOpen},
		{name: "one probe is not enough", probes: []func() error{succeed}, want: StateHalfOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, c := newTestBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Minute, Probes: 2})
			_ = b.Do(fail)
			c.advance(time.Minute)
			if b.State() != StateHalfOpen {
				t.Fatalf("state = %v, want half-open after cooldown", b.State())
			}
			for _, p := range tt.probes {
				_ = b.Do(p)
			}
			if got := b.State(); got != tt.want {
				t.Errorf("state = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	b, c := newTestBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Second, Probes: 1})
	_ = b.Do(fail)
	c.advance(time.Second)

	release := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- b.Do(func() error { <-release; return nil })
	}()
	// Wait until the probe is admitted.
	for {
		b.mu.Lock()
		started := b.started
		b.mu.Unlock()
		if started == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if err := b.Do(succeed); !errors.Is(err, ErrOpen) {
		t.Errorf("second probe: want ErrOpen, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe: unexpected error: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{MaxFailures: 1})
	_ = b.Do(fail)
	b.Reset()
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
	if err := b.Do(succeed); err != nil {
		t.Errorf("Do: unexpected error: %v", err)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(9): "unknown"} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

// ─── GuardStore ──────────────────────────────────────────────────────────────

// flakyStore fails every call while down is set.
type flakyStore struct {
	*kv.MemStore
	down  bool
	calls int
}

func (f *flakyStore) Save(ctx context.Context, key, value string) error {
	f.calls++
	if f.down {
		return errTest
	}
	return f.MemStore.Save(ctx, key, value)
}

func (f *flakyStore) Ping(context.Context) error {
	if f.down {
		return errTest
	}
	return nil
}

func TestGuardStore(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{MemStore: kv.NewMemStore()}
	b, c := newTestBreaker(BreakerConfig{MaxFailures: 2, Cooldown: time.Minute, Probes: 1, IsFailure: StoreFailure})
	s := GuardStore(inner, b)

	// Missing keys are not failures.
	for range 3 {
		if _, err := s.Load(ctx, kv.KeyCharacters); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("Load: want ErrNotFound, got %v", err)
		}
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed after not-found loads", b.State())
	}

	inner.down = true
	_ = s.Save(ctx, kv.KeyBadges, "[]")
	_ = s.Save(ctx, kv.KeyBadges, "[]")
	if err := s.Save(ctx, kv.KeyBadges, "[]"); !errors.Is(err, ErrOpen) {
		t.Fatalf("Save: want ErrOpen, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
	if err := s.(kv.Pinger).Ping(ctx); !errors.Is(err, ErrOpen) {
		t.Errorf("Ping: want ErrOpen, got %v", err)
	}

	inner.down = false
	c.advance(time.Minute)
	if err := s.Save(ctx, kv.KeyBadges, "[]"); err != nil {
		t.Fatalf("Save after recovery: unexpected error: %v", err)
	}
	got, err := s.Load(ctx, kv.KeyBadges)
	if err != nil || got != "[]" {
		t.Errorf("Load = %q, %v; want [] and no error", got, err)
	}
	if err := s.(kv.Closer).Close(); err != nil {
		t.Errorf("Close: unexpected error: %v", err)
	}
}

func TestStoreFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{kv.ErrNotFound, false},
		{context.Canceled, false},
		{errTest, true},
		{context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		if got := StoreFailure(tt.err); got != tt.want {
			t.Errorf("StoreFailure(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
