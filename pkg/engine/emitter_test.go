package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantex/exchange-core/pkg/engine/model"
)

type capturePublisher struct {
	mu        sync.Mutex
	published []published
	failures  int
	attempts  int
}

type published struct {
	channel string
	key     string
	payload []byte
}

func (p *capturePublisher) Publish(_ context.Context, channel, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.attempts <= p.failures {
		return errors.New("transport unavailable")
	}
	p.published = append(p.published, published{channel: channel, key: key, payload: payload})
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func (p *capturePublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.published...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestEmitterPreservesOrder(t *testing.T) {
	pub := &capturePublisher{}
	em := NewTradeEmitter(EmitterConfig{}, pub)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	em.Start(ctx)

	for _, id := range []string{"t1", "t2", "t3"} {
		em.EmitTrade(&model.TradeEvent{TradeID: id, Symbol: "ABC", Price: decimal.New(1000, -2)})
	}
	em.EmitAck(&model.AckEvent{EventID: "e1", Symbol: "ABC", Status: model.AckOK})

	waitFor(t, 2*time.Second, func() bool { return pub.count() == 4 })

	msgs := pub.all()
	for i, want := range []string{"t1", "t2", "t3"} {
		if msgs[i].channel != "trades" || msgs[i].key != "ABC" {
			t.Errorf("message %d routed to %s/%s", i, msgs[i].channel, msgs[i].key)
		}
		var ev model.TradeEvent
		if err := json.Unmarshal(msgs[i].payload, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.TradeID != want {
			t.Errorf("expected %s at position %d, got %s", want, i, ev.TradeID)
		}
	}
	if msgs[3].channel != "order_acks" {
		t.Errorf("ack routed to %s", msgs[3].channel)
	}
}

func TestEmitterRetriesFailedPublish(t *testing.T) {
	pub := &capturePublisher{failures: 1}
	em := NewTradeEmitter(EmitterConfig{RetryInterval: 10 * time.Millisecond}, pub)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	em.Start(ctx)

	em.EmitTrade(&model.TradeEvent{TradeID: "t1", Symbol: "ABC"})
	em.EmitTrade(&model.TradeEvent{TradeID: "t2", Symbol: "ABC"})

	// first attempt fails, retry delivers, ordering survives
	waitFor(t, 5*time.Second, func() bool { return pub.count() == 2 })

	msgs := pub.all()
	var first model.TradeEvent
	if err := json.Unmarshal(msgs[0].payload, &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first.TradeID != "t1" {
		t.Errorf("expected t1 delivered first after retry, got %s", first.TradeID)
	}
}

func TestEmitterDeliversThroughSustainedOutage(t *testing.T) {
	// more failures than one backoff attempt: the event must survive the
	// outage, not be dropped when a retry budget runs out
	pub := &capturePublisher{failures: 6}
	em := NewTradeEmitter(EmitterConfig{RetryInterval: 5 * time.Millisecond}, pub)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	em.Start(ctx)

	em.EmitTrade(&model.TradeEvent{TradeID: "t1", Symbol: "ABC"})

	waitFor(t, 10*time.Second, func() bool { return pub.count() == 1 })

	var ev model.TradeEvent
	if err := json.Unmarshal(pub.all()[0].payload, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.TradeID != "t1" {
		t.Errorf("expected t1 delivered after outage, got %s", ev.TradeID)
	}
}
