package orderbook

import "errors"

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrAlreadyDone           = errors.New("order already filled or cancelled")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrCrossedBook           = errors.New("crossed book")
	ErrInvalidPrice          = errors.New("invalid order price")
	ErrInvalidQty            = errors.New("invalid order quantity")
)
