package engine

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// SnapshotBroadcaster publishes the latest book snapshots on a fixed
// period. It only reads the streams' atomic snapshot pointers, so it never
// contends with matching.
type SnapshotBroadcaster struct {
	engine   *Engine
	pubs     []Publisher
	channel  string
	interval time.Duration
}

func NewSnapshotBroadcaster(e *Engine, channel string, interval time.Duration, pubs ...Publisher) *SnapshotBroadcaster {
	if channel == "" {
		channel = "orderbook"
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &SnapshotBroadcaster{
		engine:   e,
		pubs:     pubs,
		channel:  channel,
		interval: interval,
	}
}

func (b *SnapshotBroadcaster) Start(ctx context.Context) {
	go b.run(ctx)
}

func (b *SnapshotBroadcaster) run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.broadcast(ctx)
		}
	}
}

func (b *SnapshotBroadcaster) broadcast(ctx context.Context) {
	for _, snap := range b.engine.Snapshots() {
		payload, err := json.Marshal(snap)
		if err != nil {
			zap.S().Errorw("marshal snapshot", "symbol", snap.Symbol, "err", err)
			continue
		}
		for _, pub := range b.pubs {
			// no retry: the next tick carries a fresher snapshot
			if err := pub.Publish(ctx, b.channel, snap.Symbol, payload); err != nil {
				zap.S().Warnw("publish snapshot", "symbol", snap.Symbol, "err", err)
			}
		}
	}
}
