package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionPlace  Action = "place"
	ActionCancel Action = "cancel"
)

// OrderEvent is the inbound wire format published by the upstream order API.
// Cancels carry only event_id, symbol, order_id and timestamp.
type OrderEvent struct {
	EventID   string          `json:"event_id"`
	Action    Action          `json:"action"`
	Symbol    string          `json:"symbol"`
	OrderID   string          `json:"order_id"`
	Side      string          `json:"side,omitempty"`
	Type      string          `json:"type,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity,omitempty"`
	OwnerID   string          `json:"owner_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// TradeEvent is the outbound execution record for persistence and
// client notification.
type TradeEvent struct {
	TradeID           string          `json:"trade_id"`
	Symbol            string          `json:"symbol"`
	RestingOrderID    string          `json:"resting_order_id"`
	AggressingOrderID string          `json:"aggressing_order_id"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int64           `json:"quantity"`
	Timestamp         time.Time       `json:"timestamp"`
	SequenceNumber    uint64          `json:"sequence_number"`
}

type SnapshotLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Count    int             `json:"count"`
}

// SnapshotEvent is a periodic aggregated rendering of one book. Consumers
// detect staleness by comparing last_applied_sequence.
type SnapshotEvent struct {
	Symbol              string          `json:"symbol"`
	LastAppliedSequence uint64          `json:"last_applied_sequence"`
	Timestamp           time.Time       `json:"timestamp"`
	Bids                []SnapshotLevel `json:"bids"`
	Asks                []SnapshotLevel `json:"asks"`
}

const (
	AckOK       = "ok"
	AckRejected = "rejected"
)

// AckEvent reports the per-event outcome back to the originator.
type AckEvent struct {
	EventID string `json:"event_id"`
	OrderID string `json:"order_id"`
	Symbol  string `json:"symbol"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// OrderStatus is the reply of the synchronous status query used by
// upstream reconciliation.
type OrderStatus struct {
	OrderID           string `json:"order_id"`
	Status            string `json:"status"`
	RemainingQuantity int64  `json:"remaining_quantity"`
}
