package common

import (
	"fmt"
	"time"
)

// Trade records one fill between a resting maker and an incoming taker.
// Price is always the maker's resting price: price improvement accrues
// to the taker.
type Trade struct {
	Price    Price
	Quantity Quantity
	MakerID  OrderID
	TakerID  OrderID
	ExecTime int64 // nanoseconds since the Unix epoch
}

// NewTrade stamps the trade with the current wall-clock time.
func NewTrade(price Price, quantity Quantity, makerID, takerID OrderID) Trade {
	return Trade{
		Price:    price,
		Quantity: quantity,
		MakerID:  makerID,
		TakerID:  takerID,
		ExecTime: time.Now().UnixNano(),
	}
}

func (t Trade) String() string {
	return fmt.Sprintf(
		`Price:    %d
Quantity: %d
Maker:    %s
Taker:    %s
ExecTime: %d`,
		t.Price, t.Quantity, t.MakerID, t.TakerID, t.ExecTime,
	)
}
