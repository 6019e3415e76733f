package engine

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/quantex/exchange-core/pkg/engine/model"
)

// Ingester consumes inbound order events from the orders channel and feeds
// them to the engine. Unparseable and malformed events are dropped here
// and never reach a matching stream.
type Ingester struct {
	rdb     *redis.Client
	channel string
	engine  *Engine
}

func NewIngester(rdb *redis.Client, channel string, e *Engine) *Ingester {
	if channel == "" {
		channel = "orders"
	}
	return &Ingester{
		rdb:     rdb,
		channel: channel,
		engine:  e,
	}
}

func (i *Ingester) Run(ctx context.Context) error {
	sub := i.rdb.Subscribe(ctx, i.channel)
	defer sub.Close()

	zap.S().Infow("subscribed to order events", "channel", i.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev model.OrderEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				zap.S().Warnw("drop unparseable order event", "err", err)
				continue
			}
			if err := i.engine.Submit(ctx, &ev); err != nil {
				if errors.Is(err, ErrInvalidEvent) {
					zap.S().Warnw("drop invalid order event",
						"event_id", ev.EventID, "err", err)
					continue
				}
				return err
			}
		}
	}
}
