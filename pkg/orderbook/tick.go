package orderbook

import "github.com/shopspring/decimal"

// tickScale is the number of decimal places carried by book prices.
// All book arithmetic is on int64 ticks so fills and level volumes stay exact.
const tickScale = 2

// ToTicks converts a decimal price to ticks, truncating extra precision.
func ToTicks(p decimal.Decimal) (int64, error) {
	if p.Sign() <= 0 {
		return 0, ErrInvalidPrice
	}
	return p.Shift(tickScale).Truncate(0).IntPart(), nil
}

// FromTicks converts ticks back to a decimal price.
func FromTicks(t int64) decimal.Decimal {
	return decimal.New(t, -tickScale)
}
