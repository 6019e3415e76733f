package orderbook

type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

type OrderType string

const (
	LIMIT  OrderType = "LIMIT"
	MARKET OrderType = "MARKET"
)

type OrderStatus string

const (
	StatusNew             OrderStatus = "New"
	StatusPartiallyFilled OrderStatus = "PartiallyFilled"
	StatusFilled          OrderStatus = "Filled"
	StatusCancelled       OrderStatus = "Cancelled"
)

type Order struct {
	ID        string
	Symbol    string
	Side      Side
	Type      OrderType
	Price     int64 // price in ticks; ignored for MARKET orders
	Qty       int64
	Remaining int64
	Owner     string
	Seq       uint64
	Status    OrderStatus
}

// FilledQty is the quantity executed so far.
func (o *Order) FilledQty() int64 {
	return o.Qty - o.Remaining
}

// Done reports whether the order can no longer trade or be cancelled.
func (o *Order) Done() bool {
	return o.Status == StatusFilled || o.Status == StatusCancelled
}
