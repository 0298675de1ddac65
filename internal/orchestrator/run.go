package orchestrator

import (
	"context"
	"time"

	"github.com/joescharf/zenclock/internal/models"
)

// Recorder persists events emitted while Run drives the engines.
type Recorder interface {
	RecordEvent(ctx context.Context, ev models.Event, at time.Time) error
}

// Update is published to subscribers after every command and tick.
type Update struct {
	Snapshot models.Snapshot `json:"snapshot"`
	Events   []models.Event  `json:"events,omitempty"`
}

type result struct {
	events []models.Event
	err    error
}

type request struct {
	cmd   Command
	reply chan result
}

// subscriberBuffer bounds how far a slow subscriber may lag before updates are dropped.
const subscriberBuffer = 16

// Run is the single driver: it serializes queued commands and clock ticks
// until ctx is canceled, then stops playback and closes every subscription.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := o.clock.NewTicker(o.opts.TickInterval)
	defer ticker.Stop()
	defer o.closeSubscribers()
	defer func() {
		if err := o.Close(); err != nil {
			o.logger.Warn("audio shutdown failed", "error", err)
		}
	}()

	o.logger.Info("orchestrator started", "tick_interval", o.opts.TickInterval, "mode", o.timer.Config().Mode)
	last := o.clock.Now()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator stopped")
			return nil

		case req := <-o.requests:
			events, err := o.Dispatch(req.cmd)
			o.publish(ctx, events)
			req.reply <- result{events: events, err: err}

		case <-ticker.Chan():
			now := o.clock.Now()
			delta := now.Sub(last)
			last = now
			o.publish(ctx, o.Tick(delta))
		}
	}
}

// Submit queues cmd for the Run loop and waits for its result. Latest
// already reflects the command when Submit returns.
func (o *Orchestrator) Submit(ctx context.Context, cmd Command) ([]models.Event, error) {
	req := request{cmd: cmd, reply: make(chan result, 1)}
	select {
	case o.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.events, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe returns a channel of updates and a function that ends the
// subscription. Updates are dropped rather than blocking the driver.
func (o *Orchestrator) Subscribe() (<-chan Update, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSub
	o.nextSub++
	ch := make(chan Update, subscriberBuffer)
	o.subs[id] = ch

	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if c, ok := o.subs[id]; ok {
			close(c)
			delete(o.subs, id)
		}
	}
}

func (o *Orchestrator) publish(ctx context.Context, events []models.Event) {
	snap := o.Snapshot()
	o.record(ctx, events, snap.At)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.latest = snap
	for _, ch := range o.subs {
		select {
		case ch <- Update{Snapshot: snap, Events: events}:
		default:
		}
	}
}

func (o *Orchestrator) record(ctx context.Context, events []models.Event, at time.Time) {
	if o.recorder == nil {
		return
	}
	for _, ev := range events {
		if ev.Kind == models.EventFadeCompleted {
			continue
		}
		if err := o.recorder.RecordEvent(ctx, ev, at); err != nil {
			o.logger.Warn("failed to record event", "kind", ev.Kind, "error", err)
		}
	}
}

func (o *Orchestrator) closeSubscribers() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, ch := range o.subs {
		close(ch)
		delete(o.subs, id)
	}
}
