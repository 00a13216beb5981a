package engine

import "fenrir/internal/common"

// Command is the tagged vocabulary the Engine Loop accepts from
// producers. The three concrete types below are the only implementers.
type Command interface {
	isCommand()
}

// CreateCommand mints and matches a new order.
type CreateCommand struct {
	Entry common.OrderEntry
}

// ModifyCommand re-prices and/or re-sizes the order currently keyed by
// (ID, Revision). A nil override leaves that field untouched.
type ModifyCommand struct {
	ID          common.OrderID
	Revision    common.Revision
	NewPrice    *common.Price
	NewQuantity *common.Quantity
}

// DeleteCommand removes the order currently keyed by (ID, Revision).
type DeleteCommand struct {
	ID       common.OrderID
	Revision common.Revision
}

func (CreateCommand) isCommand() {}
func (ModifyCommand) isCommand() {}
func (DeleteCommand) isCommand() {}
