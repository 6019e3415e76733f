package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	"go.uber.org/zap"

	"github.com/quantex/exchange-core/pkg/engine/model"
	"github.com/quantex/exchange-core/pkg/orderbook"
)

type streamMsg struct {
	event *model.OrderEvent
	query *statusQuery
}

type statusQuery struct {
	orderID string
	reply   chan statusReply
}

type statusReply struct {
	status *model.OrderStatus
	err    error
}

// symbolStream is the single writer for one book: it assigns sequence
// numbers, drops duplicate events, runs matching and publishes an
// immutable snapshot after every applied event.
type symbolStream struct {
	symbol string
	engine *Engine
	book   *orderbook.Book
	msgs   chan streamMsg

	seq    uint64
	halted bool

	recentIDs  map[string]struct{}
	recentFIFO deque.Deque[string]

	snapshot atomic.Pointer[model.SnapshotEvent]
}

func newSymbolStream(e *Engine, symbol string) *symbolStream {
	return &symbolStream{
		symbol:    symbol,
		engine:    e,
		book:      orderbook.NewBook(symbol),
		msgs:      make(chan streamMsg, e.cfg.StreamBuffer),
		recentIDs: make(map[string]struct{}),
	}
}

func (st *symbolStream) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-st.msgs:
			if msg.query != nil {
				msg.query.reply <- st.orderStatus(msg.query.orderID)
				continue
			}
			st.apply(msg.event)
		}
	}
}

func (st *symbolStream) orderStatus(orderID string) statusReply {
	o, ok := st.book.Lookup(orderID)
	if !ok {
		return statusReply{err: orderbook.ErrOrderNotFound}
	}
	return statusReply{status: &model.OrderStatus{
		OrderID:           o.ID,
		Status:            string(o.Status),
		RemainingQuantity: o.Remaining,
	}}
}

func (st *symbolStream) apply(ev *model.OrderEvent) {
	if st.halted {
		st.reject(ev, ErrHalted.Error())
		return
	}
	if st.seen(ev.EventID) {
		zap.S().Debugw("duplicate event dropped",
			"symbol", st.symbol, "event_id", ev.EventID)
		return
	}

	st.seq++
	switch ev.Action {
	case model.ActionPlace:
		st.applyPlace(ev)
	case model.ActionCancel:
		st.applyCancel(ev)
	}
	st.publishSnapshot()
}

func (st *symbolStream) applyPlace(ev *model.OrderEvent) {
	order := &orderbook.Order{
		ID:        ev.OrderID,
		Symbol:    st.symbol,
		Side:      orderbook.Side(ev.Side),
		Type:      orderbook.OrderType(ev.Type),
		Qty:       ev.Quantity,
		Remaining: ev.Quantity,
		Owner:     ev.OwnerID,
		Seq:       st.seq,
	}
	if order.Type == orderbook.LIMIT {
		ticks, err := orderbook.ToTicks(ev.Price)
		if err != nil {
			st.reject(ev, err.Error())
			return
		}
		order.Price = ticks
	}

	result, err := st.book.Match(order)
	for i := range result.Trades {
		st.emitTrade(&result.Trades[i])
	}

	switch {
	case err == nil:
		st.ack(ev)
	case errors.Is(err, orderbook.ErrInsufficientLiquidity):
		st.reject(ev, err.Error())
	case errors.Is(err, orderbook.ErrCrossedBook):
		st.halt(err)
	}
}

func (st *symbolStream) applyCancel(ev *model.OrderEvent) {
	if _, err := st.book.Remove(ev.OrderID); err != nil {
		st.reject(ev, err.Error())
		return
	}
	st.ack(ev)
}

// halt stops this symbol's processing after an invariant violation.
// Other symbols keep running.
func (st *symbolStream) halt(err error) {
	st.halted = true
	zap.S().Errorw("book invariant violated, halting symbol stream",
		"symbol", st.symbol, "seq", st.seq, "err", err)
}

// seen drops retransmitted events idempotently using a bounded FIFO of
// recent event ids.
func (st *symbolStream) seen(eventID string) bool {
	if _, ok := st.recentIDs[eventID]; ok {
		return true
	}
	st.recentIDs[eventID] = struct{}{}
	st.recentFIFO.PushBack(eventID)
	for st.recentFIFO.Len() > st.engine.cfg.DedupeCacheSize {
		delete(st.recentIDs, st.recentFIFO.PopFront())
	}
	return false
}

func (st *symbolStream) emitTrade(tr *orderbook.Trade) {
	st.engine.sink.EmitTrade(&model.TradeEvent{
		TradeID:           tr.ID,
		Symbol:            tr.Symbol,
		RestingOrderID:    tr.RestingOrderID,
		AggressingOrderID: tr.AggressingOrderID,
		Price:             orderbook.FromTicks(tr.Price),
		Quantity:          tr.Qty,
		Timestamp:         tr.Timestamp,
		SequenceNumber:    tr.Seq,
	})
}

func (st *symbolStream) ack(ev *model.OrderEvent) {
	st.engine.sink.EmitAck(&model.AckEvent{
		EventID: ev.EventID,
		OrderID: ev.OrderID,
		Symbol:  st.symbol,
		Status:  model.AckOK,
	})
}

func (st *symbolStream) reject(ev *model.OrderEvent, reason string) {
	st.engine.sink.EmitAck(&model.AckEvent{
		EventID: ev.EventID,
		OrderID: ev.OrderID,
		Symbol:  st.symbol,
		Status:  model.AckRejected,
		Reason:  reason,
	})
}

func (st *symbolStream) publishSnapshot() {
	depth := st.book.Depth(st.engine.cfg.SnapshotDepth)
	st.snapshot.Store(&model.SnapshotEvent{
		Symbol:              st.symbol,
		LastAppliedSequence: st.seq,
		Timestamp:           time.Now(),
		Bids:                toSnapshotLevels(depth.Bids),
		Asks:                toSnapshotLevels(depth.Asks),
	})
}

func toSnapshotLevels(levels []orderbook.Level) []model.SnapshotLevel {
	out := make([]model.SnapshotLevel, 0, len(levels))
	for _, lv := range levels {
		out = append(out, model.SnapshotLevel{
			Price:    orderbook.FromTicks(lv.Price),
			Quantity: lv.Qty,
			Count:    lv.Count,
		})
	}
	return out
}
