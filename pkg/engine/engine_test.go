package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantex/exchange-core/pkg/engine/model"
	"github.com/quantex/exchange-core/pkg/orderbook"
)

type captureSink struct {
	mu     sync.Mutex
	trades []*model.TradeEvent
	acks   []*model.AckEvent
}

func (s *captureSink) EmitTrade(ev *model.TradeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, ev)
}

func (s *captureSink) EmitAck(ev *model.AckEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acks = append(s.acks, ev)
}

func (s *captureSink) snapshot() ([]*model.TradeEvent, []*model.AckEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.TradeEvent(nil), s.trades...), append([]*model.AckEvent(nil), s.acks...)
}

func newTestEngine(t *testing.T) (*Engine, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	e := New(ctx, &Config{SnapshotDepth: 5}, sink)
	return e, sink
}

func place(eventID, symbol, orderID, side string, price string, qty int64) *model.OrderEvent {
	return &model.OrderEvent{
		EventID:   eventID,
		Action:    model.ActionPlace,
		Symbol:    symbol,
		OrderID:   orderID,
		Side:      side,
		Type:      string(orderbook.LIMIT),
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
		Timestamp: time.Now(),
	}
}

func placeMarket(eventID, symbol, orderID, side string, qty int64) *model.OrderEvent {
	return &model.OrderEvent{
		EventID:   eventID,
		Action:    model.ActionPlace,
		Symbol:    symbol,
		OrderID:   orderID,
		Side:      side,
		Type:      string(orderbook.MARKET),
		Quantity:  qty,
		Timestamp: time.Now(),
	}
}

func cancel(eventID, symbol, orderID string) *model.OrderEvent {
	return &model.OrderEvent{
		EventID:   eventID,
		Action:    model.ActionCancel,
		Symbol:    symbol,
		OrderID:   orderID,
		Timestamp: time.Now(),
	}
}

// flush waits until every previously submitted event for symbol has been
// applied. Status queries travel the same channel as events, so the reply
// implies the queue ahead of it drained.
func flush(t *testing.T, e *Engine, symbol string) {
	t.Helper()
	ctx, done := context.WithTimeout(context.Background(), 2*time.Second)
	defer done()
	_, err := e.OrderStatus(ctx, symbol, "__flush__")
	if err != nil && !errors.Is(err, orderbook.ErrOrderNotFound) {
		t.Fatalf("flush failed: %v", err)
	}
}

func submit(t *testing.T, e *Engine, ev *model.OrderEvent) {
	t.Helper()
	if err := e.Submit(context.Background(), ev); err != nil {
		t.Fatalf("submit %s: %v", ev.EventID, err)
	}
}

func TestSubmitRejectsMalformedEvents(t *testing.T) {
	e, _ := newTestEngine(t)

	cases := []struct {
		name string
		ev   *model.OrderEvent
	}{
		{"missing ids", &model.OrderEvent{Action: model.ActionPlace}},
		{"unknown action", &model.OrderEvent{EventID: "e", Symbol: "ABC", OrderID: "o", Action: "amend"}},
		{"bad side", place("e", "ABC", "o", "HOLD", "10.00", 1)},
		{"bad type", func() *model.OrderEvent {
			ev := place("e", "ABC", "o", "BUY", "10.00", 1)
			ev.Type = "STOP"
			return ev
		}()},
		{"zero price limit", place("e", "ABC", "o", "BUY", "0", 1)},
		{"zero quantity", place("e", "ABC", "o", "BUY", "10.00", 0)},
	}
	for _, tc := range cases {
		if err := e.Submit(context.Background(), tc.ev); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("%s: expected ErrInvalidEvent, got %v", tc.name, err)
		}
	}
}

func TestPlaceMatchAndStatus(t *testing.T) {
	e, sink := newTestEngine(t)

	// buy 100@10.00, then sell 50@10.00
	submit(t, e, place("e1", "ABC", "A", "BUY", "10.00", 100))
	submit(t, e, place("e2", "ABC", "B", "SELL", "10.00", 50))
	flush(t, e, "ABC")

	trades, acks := sink.snapshot()
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if !tr.Price.Equal(decimal.RequireFromString("10.00")) || tr.Quantity != 50 {
		t.Errorf("expected 50@10.00, got %s/%d", tr.Price, tr.Quantity)
	}
	if tr.RestingOrderID != "A" || tr.AggressingOrderID != "B" {
		t.Errorf("incorrect trade parties: %+v", tr)
	}
	if len(acks) != 2 || acks[0].Status != model.AckOK || acks[1].Status != model.AckOK {
		t.Errorf("expected 2 ok acks, got %+v", acks)
	}

	st, err := e.OrderStatus(context.Background(), "ABC", "A")
	if err != nil {
		t.Fatalf("status query: %v", err)
	}
	if st.Status != string(orderbook.StatusPartiallyFilled) || st.RemainingQuantity != 50 {
		t.Errorf("expected partially filled with 50 remaining, got %+v", st)
	}
}

func TestMarketOrderAgainstEmptySideRejected(t *testing.T) {
	e, sink := newTestEngine(t)

	submit(t, e, placeMarket("e1", "ABC", "M1", "BUY", 50))
	flush(t, e, "ABC")

	trades, acks := sink.snapshot()
	if len(trades) != 0 {
		t.Errorf("expected no trades, got %d", len(trades))
	}
	if len(acks) != 1 || acks[0].Status != model.AckRejected {
		t.Fatalf("expected rejected ack, got %+v", acks)
	}
	if acks[0].Reason != orderbook.ErrInsufficientLiquidity.Error() {
		t.Errorf("unexpected reason %q", acks[0].Reason)
	}
}

func TestMarketOrderPartialFillStands(t *testing.T) {
	e, sink := newTestEngine(t)

	submit(t, e, place("e1", "ABC", "C", "SELL", "11.00", 100))
	submit(t, e, placeMarket("e2", "ABC", "D", "BUY", 50))
	flush(t, e, "ABC")

	trades, acks := sink.snapshot()
	if len(trades) != 1 || trades[0].Quantity != 50 ||
		!trades[0].Price.Equal(decimal.RequireFromString("11.00")) {
		t.Fatalf("expected one trade 50@11.00, got %+v", trades)
	}
	if len(acks) != 2 || acks[1].Status != model.AckOK {
		t.Errorf("expected market order acked ok, got %+v", acks)
	}

	st, err := e.OrderStatus(context.Background(), "ABC", "C")
	if err != nil || st.RemainingQuantity != 50 {
		t.Errorf("expected C remaining 50, got %+v (%v)", st, err)
	}
}

func TestDuplicateEventDropped(t *testing.T) {
	e, sink := newTestEngine(t)

	ev := place("e1", "ABC", "A", "BUY", "10.00", 10)
	submit(t, e, ev)
	submit(t, e, ev)
	flush(t, e, "ABC")

	_, acks := sink.snapshot()
	if len(acks) != 1 {
		t.Fatalf("expected single ack for retransmitted event, got %d", len(acks))
	}

	snaps := e.Snapshots()
	if len(snaps) != 1 || snaps[0].LastAppliedSequence != 1 {
		t.Errorf("expected one applied event, got %+v", snaps)
	}
}

func TestCancelLifecycle(t *testing.T) {
	e, sink := newTestEngine(t)

	submit(t, e, place("e1", "ABC", "A", "BUY", "10.00", 10))
	submit(t, e, cancel("e2", "ABC", "A"))
	submit(t, e, cancel("e3", "ABC", "A"))
	submit(t, e, cancel("e4", "ABC", "GHOST"))
	flush(t, e, "ABC")

	_, acks := sink.snapshot()
	if len(acks) != 4 {
		t.Fatalf("expected 4 acks, got %d", len(acks))
	}
	if acks[1].Status != model.AckOK {
		t.Errorf("first cancel should succeed, got %+v", acks[1])
	}
	if acks[2].Status != model.AckRejected || acks[2].Reason != orderbook.ErrAlreadyDone.Error() {
		t.Errorf("repeat cancel should reject with already-done, got %+v", acks[2])
	}
	if acks[3].Status != model.AckRejected || acks[3].Reason != orderbook.ErrOrderNotFound.Error() {
		t.Errorf("cancel of unknown order should reject with not-found, got %+v", acks[3])
	}

	st, err := e.OrderStatus(context.Background(), "ABC", "A")
	if err != nil || st.Status != string(orderbook.StatusCancelled) {
		t.Errorf("expected cancelled status, got %+v (%v)", st, err)
	}
}

func TestOrderStatusUnknownSymbol(t *testing.T) {
	e, _ := newTestEngine(t)

	if _, err := e.OrderStatus(context.Background(), "NOPE", "A"); !errors.Is(err, orderbook.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestSnapshotReflectsAppliedSequence(t *testing.T) {
	e, _ := newTestEngine(t)

	submit(t, e, place("e1", "ABC", "B1", "BUY", "9.90", 10))
	submit(t, e, place("e2", "ABC", "B2", "BUY", "9.90", 5))
	submit(t, e, place("e3", "ABC", "S1", "SELL", "10.10", 7))
	flush(t, e, "ABC")

	snaps := e.Snapshots()
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	snap := snaps[0]
	if snap.LastAppliedSequence != 3 {
		t.Errorf("expected last applied sequence 3, got %d", snap.LastAppliedSequence)
	}
	if len(snap.Bids) != 1 || snap.Bids[0].Quantity != 15 || snap.Bids[0].Count != 2 {
		t.Errorf("expected aggregated bid level 15/2, got %+v", snap.Bids)
	}
	if len(snap.Asks) != 1 || snap.Asks[0].Quantity != 7 {
		t.Errorf("expected ask level of 7, got %+v", snap.Asks)
	}
}

func TestSymbolsRunIndependently(t *testing.T) {
	e, sink := newTestEngine(t)

	submit(t, e, place("e1", "ABC", "A1", "BUY", "10.00", 10))
	submit(t, e, place("e2", "XYZ", "X1", "SELL", "20.00", 5))
	submit(t, e, place("e3", "XYZ", "X2", "BUY", "20.00", 5))
	flush(t, e, "ABC")
	flush(t, e, "XYZ")

	trades, _ := sink.snapshot()
	if len(trades) != 1 || trades[0].Symbol != "XYZ" {
		t.Fatalf("expected one XYZ trade, got %+v", trades)
	}
	// per-symbol sequences are independent
	for _, snap := range e.Snapshots() {
		switch snap.Symbol {
		case "ABC":
			if snap.LastAppliedSequence != 1 {
				t.Errorf("ABC sequence: got %d", snap.LastAppliedSequence)
			}
		case "XYZ":
			if snap.LastAppliedSequence != 2 {
				t.Errorf("XYZ sequence: got %d", snap.LastAppliedSequence)
			}
		}
	}
}

func TestTradeSequenceStrictlyIncreasing(t *testing.T) {
	e, sink := newTestEngine(t)

	for _, id := range []string{"S1", "S2", "S3"} {
		submit(t, e, place("es"+id, "ABC", id, "SELL", "10.00", 5))
	}
	submit(t, e, place("eb", "ABC", "B1", "BUY", "10.00", 15))
	flush(t, e, "ABC")

	trades, _ := sink.snapshot()
	if len(trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(trades))
	}
	for i := 1; i < len(trades); i++ {
		if trades[i].SequenceNumber < trades[i-1].SequenceNumber {
			t.Errorf("trade sequence regressed: %d after %d",
				trades[i].SequenceNumber, trades[i-1].SequenceNumber)
		}
	}
}

func TestHaltedStreamRejectsWhileOthersMatch(t *testing.T) {
	e, sink := newTestEngine(t)

	submit(t, e, place("e1", "ABC", "A", "BUY", "10.00", 10))
	flush(t, e, "ABC")

	// the write is ordered before the next channel send, so the stream
	// goroutine observes it when the following event arrives
	e.stream("ABC").halt(orderbook.ErrCrossedBook)

	submit(t, e, place("e2", "ABC", "B", "SELL", "10.00", 10))
	submit(t, e, place("e3", "XYZ", "X1", "SELL", "20.00", 5))
	submit(t, e, place("e4", "XYZ", "X2", "BUY", "20.00", 5))
	flush(t, e, "ABC")
	flush(t, e, "XYZ")

	trades, acks := sink.snapshot()

	ackByEvent := make(map[string]*model.AckEvent, len(acks))
	for _, a := range acks {
		ackByEvent[a.EventID] = a
	}
	halted := ackByEvent["e2"]
	if halted == nil || halted.Status != model.AckRejected || halted.Reason != ErrHalted.Error() {
		t.Errorf("expected e2 rejected as halted, got %+v", halted)
	}
	for _, id := range []string{"e3", "e4"} {
		if a := ackByEvent[id]; a == nil || a.Status != model.AckOK {
			t.Errorf("expected %s acked ok on the healthy symbol, got %+v", id, a)
		}
	}

	if len(trades) != 1 || trades[0].Symbol != "XYZ" {
		t.Fatalf("expected only the XYZ trade, got %+v", trades)
	}

	// the rejected event never reached the halted book
	if _, err := e.OrderStatus(context.Background(), "ABC", "B"); !errors.Is(err, orderbook.ErrOrderNotFound) {
		t.Errorf("expected order B absent from halted book, got %v", err)
	}
}
