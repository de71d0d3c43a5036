// Package realtime keeps one debate room observed over two independent
// channels: a best-effort WebSocket push subscription and a fixed-interval
// REST poll loop. Both normalize to the same Event vocabulary on a single
// channel; no ordering is guaranteed between them, so every snapshot is
// total state and consumers must tolerate duplicates.
package realtime

import (
	"context"
	"log/slog"
	"sync"
)

type DualChannel struct {
	events chan Event
	push   *push
	poll   *poller
	log    *slog.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

func NewDualChannel(cfg Config, backend Backend, debateID, userID string, joined func() bool, log *slog.Logger) *DualChannel {
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.withDefaults()
	log = log.With("component", "sync", "debate_id", debateID)

	events := make(chan Event, cfg.EventBuffer)
	return &DualChannel{
		events: events,
		push:   newPush(cfg, debateID, userID, events, log),
		poll:   newPoller(cfg, backend, debateID, joined, events, log),
		log:    log,
	}
}

// Start launches both producers. Events() delivers until Close.
func (d *DualChannel) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		d.cancel = cancel

		d.wg.Add(2)
		go func() {
			defer d.wg.Done()
			d.push.run(runCtx)
		}()
		go func() {
			defer d.wg.Done()
			d.poll.run(runCtx)
		}()
	})
}

func (d *DualChannel) Events() <-chan Event {
	return d.events
}

// PushConnected reports the push subscription state. It is informational
// only; a down push channel is not an error condition.
func (d *DualChannel) PushConnected() bool {
	return d.push.IsConnected()
}

// Close tears down both producers and closes the event channel once they
// have drained.
func (d *DualChannel) Close() {
	d.closeOnce.Do(func() {
		if d.cancel != nil {
			d.cancel()
		}
		d.wg.Wait()
		close(d.events)
	})
}
