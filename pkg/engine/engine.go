package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantex/exchange-core/pkg/engine/model"
	"github.com/quantex/exchange-core/pkg/orderbook"
)

type Config struct {
	StreamBuffer    int
	SnapshotDepth   int
	DedupeCacheSize int
}

func (c *Config) withDefaults() *Config {
	out := &Config{}
	if c != nil {
		*out = *c
	}
	if out.StreamBuffer <= 0 {
		out.StreamBuffer = 1024
	}
	if out.SnapshotDepth <= 0 {
		out.SnapshotDepth = 5
	}
	if out.DedupeCacheSize <= 0 {
		out.DedupeCacheSize = 8192
	}
	return out
}

// Sink receives everything the matching streams produce.
type Sink interface {
	EmitTrade(ev *model.TradeEvent)
	EmitAck(ev *model.AckEvent)
}

// Engine routes each inbound event to its symbol's serial processing
// stream. Within a symbol events apply in strict sequence order; books of
// different symbols share no mutable state and run concurrently.
type Engine struct {
	cfg  *Config
	sink Sink

	ctx     context.Context
	streams sync.Map // symbol -> *symbolStream
}

// New builds an engine whose streams live until ctx is cancelled.
func New(ctx context.Context, cfg *Config, sink Sink) *Engine {
	return &Engine{
		cfg:  cfg.withDefaults(),
		sink: sink,
		ctx:  ctx,
	}
}

// Submit validates an inbound event and hands it to the symbol stream.
// Malformed events are rejected with ErrInvalidEvent and never reach
// matching.
func (e *Engine) Submit(ctx context.Context, ev *model.OrderEvent) error {
	if err := validate(ev); err != nil {
		return err
	}
	st := e.stream(ev.Symbol)
	select {
	case st.msgs <- streamMsg{event: ev}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.ctx.Done():
		return e.ctx.Err()
	}
}

// OrderStatus answers the synchronous reconciliation query. The lookup is
// served through the stream channel so the id index keeps a single writer.
func (e *Engine) OrderStatus(ctx context.Context, symbol, orderID string) (*model.OrderStatus, error) {
	v, ok := e.streams.Load(symbol)
	if !ok {
		return nil, orderbook.ErrOrderNotFound
	}
	st := v.(*symbolStream)

	q := &statusQuery{orderID: orderID, reply: make(chan statusReply, 1)}
	select {
	case st.msgs <- streamMsg{query: q}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-q.reply:
		return r.status, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshots returns the latest published snapshot of every active book.
// Reads only touch atomic pointers and never contend with matching.
func (e *Engine) Snapshots() []*model.SnapshotEvent {
	var snaps []*model.SnapshotEvent
	e.streams.Range(func(_, v any) bool {
		if s := v.(*symbolStream).snapshot.Load(); s != nil {
			snaps = append(snaps, s)
		}
		return true
	})
	return snaps
}

func (e *Engine) stream(symbol string) *symbolStream {
	if v, ok := e.streams.Load(symbol); ok {
		return v.(*symbolStream)
	}
	st := newSymbolStream(e, symbol)
	actual, loaded := e.streams.LoadOrStore(symbol, st)
	if !loaded {
		go st.run(e.ctx)
	}
	return actual.(*symbolStream)
}

func validate(ev *model.OrderEvent) error {
	if ev.EventID == "" || ev.Symbol == "" || ev.OrderID == "" {
		return fmt.Errorf("%w: missing identifiers", ErrInvalidEvent)
	}
	switch ev.Action {
	case model.ActionCancel:
		return nil
	case model.ActionPlace:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidEvent, ev.Action)
	}

	if s := orderbook.Side(ev.Side); s != orderbook.BUY && s != orderbook.SELL {
		return fmt.Errorf("%w: bad side %q", ErrInvalidEvent, ev.Side)
	}
	switch orderbook.OrderType(ev.Type) {
	case orderbook.LIMIT:
		if _, err := orderbook.ToTicks(ev.Price); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
	case orderbook.MARKET:
	default:
		return fmt.Errorf("%w: bad type %q", ErrInvalidEvent, ev.Type)
	}
	if ev.Quantity <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, orderbook.ErrInvalidQty)
	}
	return nil
}
