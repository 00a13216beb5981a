package common

import "fmt"

// Order is a resting or in-flight limit order.
type Order struct {
	ID       OrderID
	Price    Price
	Quantity Quantity
	Side     Side
	Revision Revision
}

func (o Order) String() string {
	return fmt.Sprintf(
		`ID:       %s
Side:     %s
Price:    %d
Quantity: %d
Revision: %d`,
		o.ID, o.Side, o.Price, o.Quantity, o.Revision,
	)
}

// OrderEntry is a creation intent: everything needed to mint a new Order
// except the identity and revision, which belong to the book.
type OrderEntry struct {
	Price    Price
	Quantity Quantity
	Side     Side
}

// ToOrder mints a fresh OrderID and starts the order at revision 0.
func (e OrderEntry) ToOrder() Order {
	return Order{
		ID:       NewOrderID(),
		Price:    e.Price,
		Quantity: e.Quantity,
		Side:     e.Side,
		Revision: 0,
	}
}
