package orderbook

import (
	"container/heap"
	"time"

	"github.com/google/uuid"
)

// Trade records one execution. Immutable once created.
type Trade struct {
	ID                string
	Symbol            string
	RestingOrderID    string
	AggressingOrderID string
	Price             int64
	Qty               int64
	Seq               uint64
	Timestamp         time.Time
}

// MatchResult is the outcome of one matching pass: the trades in execution
// order, the aggressing order's final state, and the price levels touched
// on each side.
type MatchResult struct {
	Trades      []Trade
	Taker       *Order
	TouchedBids []int64
	TouchedAsks []int64
}

func (r *MatchResult) touch(side Side, price int64) {
	touched := &r.TouchedBids
	if side == SELL {
		touched = &r.TouchedAsks
	}
	for _, p := range *touched {
		if p == price {
			return
		}
	}
	*touched = append(*touched, price)
}

func opposite(s Side) Side {
	if s == BUY {
		return SELL
	}
	return BUY
}

// Match applies an incoming order against the opposite side by price-time
// priority. Fills execute at the resting order's price. A limit remainder
// rests in the book; a market remainder is killed with
// ErrInsufficientLiquidity since market orders never rest. Any fills
// already executed stand.
func (ob *Book) Match(incoming *Order) (*MatchResult, error) {
	counterSide := opposite(incoming.Side)
	counterBook, counterHeap := ob.sideMaps(counterSide)

	priceOK := func(counterPrice int64) bool {
		if incoming.Type == MARKET {
			return true
		}
		if incoming.Side == BUY {
			return counterPrice <= incoming.Price
		}
		return counterPrice >= incoming.Price
	}

	result := &MatchResult{Taker: incoming}
	incoming.Status = StatusNew
	ob.orders[incoming.ID] = incoming

	for incoming.Remaining > 0 {
		bestPrice, ok := counterHeap.Peek()
		if !ok {
			break
		}
		lv := counterBook[bestPrice]
		if lv == nil || lv.orders.Len() == 0 {
			heap.Pop(counterHeap)
			delete(counterBook, bestPrice)
			continue
		}
		if !priceOK(bestPrice) {
			break
		}

		resting := lv.orders.Front()
		matchQty := min(incoming.Remaining, resting.Remaining)
		incoming.Remaining -= matchQty
		resting.Remaining -= matchQty
		lv.volume -= matchQty

		result.Trades = append(result.Trades, Trade{
			ID:                uuid.NewString(),
			Symbol:            ob.symbol,
			RestingOrderID:    resting.ID,
			AggressingOrderID: incoming.ID,
			Price:             resting.Price,
			Qty:               matchQty,
			Seq:               incoming.Seq,
			Timestamp:         time.Now(),
		})
		result.touch(counterSide, bestPrice)

		if resting.Remaining == 0 {
			lv.orders.PopFront()
			resting.Status = StatusFilled
		} else {
			resting.Status = StatusPartiallyFilled
		}
		if lv.orders.Len() == 0 {
			delete(counterBook, bestPrice)
		}
	}

	if incoming.Remaining == 0 {
		incoming.Status = StatusFilled
		return result, ob.checkCrossed()
	}

	if incoming.Type == MARKET {
		incoming.Status = StatusCancelled
		return result, ErrInsufficientLiquidity
	}

	ob.Insert(incoming)
	result.touch(incoming.Side, incoming.Price)
	return result, ob.checkCrossed()
}

// checkCrossed verifies that no crossed book survives a matching pass.
func (ob *Book) checkCrossed() error {
	bid, okBid := ob.BestBid()
	ask, okAsk := ob.BestAsk()
	if okBid && okAsk && bid >= ask {
		return ErrCrossedBook
	}
	return nil
}
