package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TradeSQLRepo struct {
	db *gorm.DB
}

func NewTradeSQLRepo(db *gorm.DB) *TradeSQLRepo {
	return &TradeSQLRepo{
		db: db,
	}
}

func (s *TradeSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Create inserts one trade. Replays of the same trade id are ignored so
// at-least-once delivery stays idempotent.
func (s *TradeSQLRepo) Create(ctx context.Context, record *TradeRecord) error {
	return s.dbWithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(record).Error
}

func (s *TradeSQLRepo) BulkCreate(ctx context.Context, records []*TradeRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.dbWithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&records).Error
}
