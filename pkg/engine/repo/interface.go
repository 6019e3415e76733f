package repo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is the persistent form of an executed trade.
type TradeRecord struct {
	ID                string          `gorm:"column:id;primaryKey"`
	Symbol            string          `gorm:"column:symbol"`
	RestingOrderID    string          `gorm:"column:resting_order_id"`
	AggressingOrderID string          `gorm:"column:aggressing_order_id"`
	Price             decimal.Decimal `gorm:"column:price;type:numeric(20,2)"`
	Quantity          int64           `gorm:"column:quantity"`
	SequenceNumber    int64           `gorm:"column:sequence_number"`
	ExecutedAt        time.Time       `gorm:"column:executed_at"`
	CreatedAt         time.Time       `gorm:"column:created_at"`
}

func (TradeRecord) TableName() string {
	return "trades"
}

type ITrade interface {
	Create(ctx context.Context, record *TradeRecord) error
	BulkCreate(ctx context.Context, records []*TradeRecord) error
}
