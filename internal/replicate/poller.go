package replicate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/roster/internal/roster"
)

// Poller periodically copies the persisted roster into a [Target].
type Poller struct {
	source   Source
	target   Target
	interval time.Duration
	onChange func(Change)
	now      func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	exited    chan struct{}
}

// PollerOption configures a [Poller].
type PollerOption func(*Poller)

// WithInterval sets the polling interval. Non-positive values are ignored.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithOnChange registers a callback invoked after every replacement.
func WithOnChange(fn func(Change)) PollerOption {
	return func(p *Poller) { p.onChange = fn }
}

// NewPoller returns a stopped poller.
func NewPoller(source Source, target Target, opts ...PollerOption) *Poller {
	p := &Poller{
		source:   source,
		target:   target,
		interval: DefaultInterval,
		now:      time.Now,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Interval returns the polling interval.
func (p *Poller) Interval() time.Duration { return p.interval }

// Start begins polling in a background goroutine. Polling ends when ctx is
// cancelled or Stop is called. Calling Start more than once has no effect.
func (p *Poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		go p.run(ctx)
	})
}

// Stop ends polling and waits for the background goroutine to exit. It is
// idempotent and safe to call on a poller that was never started.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	started := true
	p.startOnce.Do(func() {
		started = false
		close(p.exited)
	})
	if started {
		<-p.exited
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.exited)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Check(ctx); err != nil {
				slog.Debug("replicate: poll skipped", "err", err)
			}
		}
	}
}

// Check performs a single poll and reports whether the target was replaced.
// A missing or malformed document returns an error and leaves the target
// untouched.
func (p *Poller) Check(ctx context.Context) (bool, error) {
	var (
		remote   []roster.Character
		replaced bool
	)
	err := p.target.Replicate(ctx, func(local []roster.Character) ([]roster.Character, bool, error) {
		doc, ok, err := p.source.Fetch(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		cs, remoteEnc, err := canonical(doc)
		if err != nil {
			return nil, false, fmt.Errorf("replicate: decode remote roster: %w", err)
		}
		localEnc, err := roster.Encode(local)
		if err != nil {
			return nil, false, fmt.Errorf("replicate: encode local roster: %w", err)
		}
		if localEnc == remoteEnc {
			return nil, false, nil
		}
		remote, replaced = cs, true
		return cs, true, nil
	})
	if err != nil || !replaced {
		return false, err
	}
	slog.Info("replicate: roster reloaded", "characters", len(remote))

	if p.onChange != nil {
		p.onChange(Change{Characters: remote, At: p.now()})
	}
	return true, nil
}
