package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gammazero/deque"
	"go.uber.org/zap"

	"github.com/quantex/exchange-core/pkg/engine/model"
)

// Publisher hands an encoded event to an outbound transport. key selects
// the partition when the transport supports one.
type Publisher interface {
	Publish(ctx context.Context, channel, key string, payload []byte) error
}

type EmitterConfig struct {
	TradesChannel string
	AcksChannel   string

	// RetryInterval is the initial publish retry delay. Zero keeps the
	// backoff default.
	RetryInterval time.Duration
}

// TradeEmitter forwards trades and acks in production order with
// at-least-once delivery. It owns an unbounded queue so a slow transport
// never blocks the matching streams; downstream de-duplicates by trade id.
type TradeEmitter struct {
	cfg  EmitterConfig
	pubs []Publisher

	mu    sync.Mutex
	queue deque.Deque[*outbound]
	wake  chan struct{}
}

type outbound struct {
	channel string
	key     string
	payload any
}

func NewTradeEmitter(cfg EmitterConfig, pubs ...Publisher) *TradeEmitter {
	if cfg.TradesChannel == "" {
		cfg.TradesChannel = "trades"
	}
	if cfg.AcksChannel == "" {
		cfg.AcksChannel = "order_acks"
	}
	return &TradeEmitter{
		cfg:  cfg,
		pubs: pubs,
		wake: make(chan struct{}, 1),
	}
}

func (t *TradeEmitter) EmitTrade(ev *model.TradeEvent) {
	t.enqueue(&outbound{channel: t.cfg.TradesChannel, key: ev.Symbol, payload: ev})
}

func (t *TradeEmitter) EmitAck(ev *model.AckEvent) {
	t.enqueue(&outbound{channel: t.cfg.AcksChannel, key: ev.Symbol, payload: ev})
}

func (t *TradeEmitter) enqueue(ev *outbound) {
	t.mu.Lock()
	t.queue.PushBack(ev)
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *TradeEmitter) next() (*outbound, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.queue.Len() == 0 {
		return nil, false
	}
	return t.queue.PopFront(), true
}

func (t *TradeEmitter) Start(ctx context.Context) {
	go t.run(ctx)
}

func (t *TradeEmitter) run(ctx context.Context) {
	for {
		ev, ok := t.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-t.wake:
				continue
			}
		}
		t.deliver(ctx, ev)
	}
}

// deliver publishes to every transport, retrying each with exponential
// backoff until it succeeds or the context is cancelled. The queue only
// ever advances past a delivered event, so a transport outage stalls the
// head instead of losing it.
func (t *TradeEmitter) deliver(ctx context.Context, ev *outbound) {
	payload, err := json.Marshal(ev.payload)
	if err != nil {
		zap.S().Errorw("marshal outbound event", "channel", ev.channel, "err", err)
		return
	}
	for _, pub := range t.pubs {
		op := func() error {
			return pub.Publish(ctx, ev.channel, ev.key, payload)
		}
		boff := backoff.NewExponentialBackOff()
		boff.MaxElapsedTime = 0
		if t.cfg.RetryInterval > 0 {
			boff.InitialInterval = t.cfg.RetryInterval
		}
		if err := backoff.Retry(op, backoff.WithContext(boff, ctx)); err != nil {
			zap.S().Errorw("publish outbound event abandoned on shutdown",
				"channel", ev.channel, "err", err)
		}
	}
}
