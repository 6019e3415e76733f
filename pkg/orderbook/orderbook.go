package orderbook

import (
	"container/heap"
	"sort"

	"github.com/gammazero/deque"
)

// Level is an aggregated, identity-free view of one price level.
type Level struct {
	Price int64
	Qty   int64
	Count int
}

// DepthSnapshot renders both sides of the book outward from the best price.
type DepthSnapshot struct {
	Bids []Level
	Asks []Level
}

type level struct {
	price  int64
	orders deque.Deque[*Order]
	volume int64
}

// Book owns every resting order of one symbol. It is not goroutine safe:
// all mutation goes through the single symbol stream in pkg/engine.
type Book struct {
	symbol string

	bids map[int64]*level
	asks map[int64]*level

	bidHeap *priceHeap
	askHeap *priceHeap

	// id index for O(1) cancel and status queries. Finalized orders stay
	// in the index so a late cancel can be told apart from an unknown id.
	orders map[string]*Order
}

func NewBook(symbol string) *Book {
	return &Book{
		symbol:  symbol,
		bids:    make(map[int64]*level),
		asks:    make(map[int64]*level),
		bidHeap: newPriceHeap(func(i, j int64) bool { return i > j }), // max-heap
		askHeap: newPriceHeap(func(i, j int64) bool { return i < j }), // min-heap
		orders:  make(map[string]*Order),
	}
}

func (ob *Book) Symbol() string {
	return ob.symbol
}

func (ob *Book) sideMaps(side Side) (map[int64]*level, *priceHeap) {
	if side == BUY {
		return ob.bids, ob.bidHeap
	}
	return ob.asks, ob.askHeap
}

// Insert appends a resting order at the tail of its price level,
// preserving price-then-arrival ordering.
func (ob *Book) Insert(order *Order) {
	book, ph := ob.sideMaps(order.Side)
	lv := book[order.Price]
	if lv == nil {
		lv = &level{price: order.Price}
		book[order.Price] = lv
		heap.Push(ph, order.Price)
	}
	lv.orders.PushBack(order)
	lv.volume += order.Remaining

	if order.Remaining < order.Qty {
		order.Status = StatusPartiallyFilled
	} else {
		order.Status = StatusNew
	}
	ob.orders[order.ID] = order
}

// Remove cancels a resting order. Cancelling an unknown id returns
// ErrOrderNotFound; a finalized order returns ErrAlreadyDone. Neither
// mutates the book.
func (ob *Book) Remove(orderID string) (*Order, error) {
	o, ok := ob.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Done() {
		return o, ErrAlreadyDone
	}

	book, _ := ob.sideMaps(o.Side)
	if lv := book[o.Price]; lv != nil {
		for i := 0; i < lv.orders.Len(); i++ {
			if lv.orders.At(i) == o {
				lv.orders.Remove(i)
				lv.volume -= o.Remaining
				break
			}
		}
		if lv.orders.Len() == 0 {
			delete(book, o.Price)
		}
	}
	o.Status = StatusCancelled
	return o, nil
}

// Lookup consults the id index without mutating state.
func (ob *Book) Lookup(orderID string) (*Order, bool) {
	o, ok := ob.orders[orderID]
	return o, ok
}

func (ob *Book) BestBid() (int64, bool) {
	return ob.bestPrice(BUY)
}

func (ob *Book) BestAsk() (int64, bool) {
	return ob.bestPrice(SELL)
}

func (ob *Book) bestPrice(side Side) (int64, bool) {
	book, ph := ob.sideMaps(side)
	for {
		price, ok := ph.Peek()
		if !ok {
			return 0, false
		}
		if lv := book[price]; lv != nil && lv.orders.Len() > 0 {
			return price, true
		}
		// stale or emptied level
		heap.Pop(ph)
		delete(book, price)
	}
}

// PeekLevels returns up to depth aggregated levels outward from the best
// price. depth <= 0 returns all levels.
func (ob *Book) PeekLevels(side Side, depth int) []Level {
	book, _ := ob.sideMaps(side)

	prices := make([]int64, 0, len(book))
	for p, lv := range book {
		if lv.orders.Len() == 0 {
			continue
		}
		prices = append(prices, p)
	}
	if side == BUY {
		sort.Slice(prices, func(i, j int) bool { return prices[i] > prices[j] })
	} else {
		sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	}
	if depth > 0 && len(prices) > depth {
		prices = prices[:depth]
	}

	levels := make([]Level, 0, len(prices))
	for _, p := range prices {
		lv := book[p]
		levels = append(levels, Level{Price: p, Qty: lv.volume, Count: lv.orders.Len()})
	}
	return levels
}

// Depth renders both sides for snapshotting.
func (ob *Book) Depth(depth int) *DepthSnapshot {
	return &DepthSnapshot{
		Bids: ob.PeekLevels(BUY, depth),
		Asks: ob.PeekLevels(SELL, depth),
	}
}
