package state

import (
	"context"
	"time"

	"opencodeweb/pkg/logger"
)

// reconnectDelay is fixed rather than backing off: for an operator-scale
// deployment bounded recovery latency matters more than load shedding.
const reconnectDelay = 5 * time.Second

// Run drives the bootstrap-and-stream loop until ctx is cancelled. Each
// cycle bootstraps the snapshot, consumes the event stream until it ends,
// then waits out the reconnect delay. A server-side dispose event flips the
// status to partial via the reducer; the stream close that follows brings
// the loop back here. Listeners survive across reconnects.
func (st *Store) Run(ctx context.Context) {
	for {
		st.Bootstrap(ctx)
		if err := st.consumeStream(ctx); err != nil {
			logger.Warn("stream_disconnected", "error", err)
		}
		st.setStatus(StatusPartial)

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// consumeStream opens the event stream and applies every event in arrival
// order until the stream ends or ctx is cancelled.
func (st *Store) consumeStream(ctx context.Context) error {
	events, errs, err := st.c.Subscribe(ctx)
	if err != nil {
		return err
	}
	logger.Info("stream_connected")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			st.Apply(ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return err
			}
		}
	}
}
