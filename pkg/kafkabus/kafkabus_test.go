package kafkabus

import (
	"context"
	"errors"
	"testing"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

func TestBackoffDurationBounded(t *testing.T) {
	min := 100 * time.Millisecond
	max := time.Second

	for attempt := 0; attempt < 10; attempt++ {
		d := backoffDuration(min, max, attempt)
		if d < 0 || d > max {
			t.Errorf("attempt %d: duration %s out of [0, %s]", attempt, d, max)
		}
	}
}

func TestWrapMessage(t *testing.T) {
	m := kafka.Message{
		Topic:     "trades",
		Partition: 3,
		Offset:    42,
		Key:       []byte("ABC"),
		Value:     []byte(`{}`),
		Headers:   []kafka.Header{{Key: "source", Value: []byte("engine")}},
	}

	w := wrapMessage(m)
	if w.Topic != "trades" || w.Partition != 3 || w.Offset != 42 {
		t.Errorf("unexpected envelope: %+v", w)
	}
	if w.Headers["source"] != "engine" {
		t.Errorf("unexpected headers: %+v", w.Headers)
	}
}

func TestRunReturnsAfterCancel(t *testing.T) {
	cg, err := NewConsumerGroup(ConsumerConfig{
		Brokers:     []string{"127.0.0.1:1"},
		GroupID:     "test-group",
		Topic:       "trades",
		WorkerCount: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cg.Close() // nolint

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- cg.Run(ctx, func(context.Context, []Message) error { return nil })
	}()

	// every worker must exit once the context ends, unreachable broker or not
	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context deadline error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
