package replicate

import (
	"context"
	"sync"
	"time"
)

// Compile-time assertion that Controller satisfies the Notifier interface.
var _ Notifier = (*Controller)(nil)

// Controller owns the live-view toggle. Each switch to live starts a fresh
// [Poller]; switching off stops it. Subscriptions outlive individual pollers.
type Controller struct {
	source   Source
	target   Target
	interval time.Duration

	mu     sync.Mutex
	poller *Poller
	cancel context.CancelFunc
	subs   map[int]func(Change)
	nextID int
}

// NewController returns a controller with polling off.
func NewController(source Source, target Target, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Controller{
		source:   source,
		target:   target,
		interval: interval,
		subs:     make(map[int]func(Change)),
	}
}

// SetLive turns polling on or off. Repeating the current setting is a no-op.
// The poller runs until SetLive(false), Close, or cancellation of ctx.
func (c *Controller) SetLive(ctx context.Context, on bool) {
	c.mu.Lock()
	if on == (c.poller != nil) {
		c.mu.Unlock()
		return
	}
	if !on {
		p := c.detachLocked()
		c.mu.Unlock()
		p.Stop()
		return
	}
	pctx, cancel := context.WithCancel(ctx)
	c.poller = NewPoller(c.source, c.target, WithInterval(c.interval), WithOnChange(c.publish))
	c.cancel = cancel
	c.poller.Start(pctx)
	c.mu.Unlock()
}

// Live reports whether polling is on.
func (c *Controller) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poller != nil
}

// SetInterval changes the polling interval. A running poller is restarted
// with the new interval.
func (c *Controller) SetInterval(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.interval = d
	running := c.poller != nil
	c.mu.Unlock()

	if running {
		c.SetLive(ctx, false)
		c.SetLive(ctx, true)
	}
}

// Interval returns the configured polling interval.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Subscribe implements [Notifier].
func (c *Controller) Subscribe(fn func(Change)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Close stops polling.
func (c *Controller) Close() error {
	c.mu.Lock()
	p := c.detachLocked()
	c.mu.Unlock()
	if p != nil {
		p.Stop()
	}
	return nil
}

// detachLocked cancels the running poller and forgets it. The caller stops
// it after releasing the lock, since a poller mid-publish needs the lock to
// finish.
func (c *Controller) detachLocked() *Poller {
	p := c.poller
	if p == nil {
		return nil
	}
	c.cancel()
	c.poller = nil
	c.cancel = nil
	return p
}

// publish runs on the poller goroutine. Subscribers are called outside the
// lock so they may call back into the controller.
func (c *Controller) publish(ch Change) {
	c.mu.Lock()
	fns := make([]func(Change), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
}
