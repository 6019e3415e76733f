package worker

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/quantex/exchange-core/pkg/engine/model"
	"github.com/quantex/exchange-core/pkg/engine/repo"
	"github.com/quantex/exchange-core/pkg/kafkabus"
)

// Worker drains the durable trade log into postgres. Inserts are keyed by
// trade id, so redelivered messages are no-ops.
type Worker struct {
	trade repo.ITrade
}

func NewWorker(r repo.IRepo) *Worker {
	return &Worker{
		trade: r.Trade(),
	}
}

func (w *Worker) Run(ctx context.Context, cg *kafkabus.ConsumerGroup) error {
	return cg.Run(ctx, w.handleBatch)
}

func (w *Worker) handleBatch(ctx context.Context, msgs []kafkabus.Message) error {
	records := make([]*repo.TradeRecord, 0, len(msgs))
	for _, m := range msgs {
		var ev model.TradeEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			zap.S().Warnw("skip unparseable trade event", "offset", m.Offset, "err", err)
			continue
		}
		records = append(records, &repo.TradeRecord{
			ID:                ev.TradeID,
			Symbol:            ev.Symbol,
			RestingOrderID:    ev.RestingOrderID,
			AggressingOrderID: ev.AggressingOrderID,
			Price:             ev.Price,
			Quantity:          ev.Quantity,
			SequenceNumber:    int64(ev.SequenceNumber),
			ExecutedAt:        ev.Timestamp,
		})
	}
	return w.trade.BulkCreate(ctx, records)
}
