// Package common holds the domain vocabulary shared by the matching core
// and its adapters: prices, quantities, order identities and the
// resting-order and trade records built from them.
package common

import "github.com/google/uuid"

// Price is a signed tick count. There is no floating point in the core;
// adapters are responsible for converting to/from a display price.
type Price int64

// Quantity is a resting or in-flight order size. Zero means fully
// consumed and must be removed from the book.
type Quantity uint64

// OrderID is minted once per order and never reused.
type OrderID uuid.UUID

// NewOrderID mints a fresh, unique order identity.
func NewOrderID() OrderID {
	return OrderID(uuid.New())
}

func (id OrderID) String() string {
	return uuid.UUID(id).String()
}

// Revision is a per-OrderID monotonic counter. It starts at 0 and is
// incremented on every mutation (an accepted Modify that applies at
// least one override, or a partial fill).
type Revision uint64

// Side is which side of the book an order rests on.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}
