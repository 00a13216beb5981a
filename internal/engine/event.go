package engine

import "fenrir/internal/common"

// Event is the tagged vocabulary broadcast after each command. The four
// concrete types below are the only implementers.
type Event interface {
	isEvent()
}

// OrderCreatedEvent is emitted before the new order is matched — it
// records intent, not resting state, so it fires even for orders that
// end up fully marketable and never rest.
type OrderCreatedEvent struct {
	Order common.Order
}

// TradeExecutedEvent is emitted once per generated trade, in generation
// order.
type TradeExecutedEvent struct {
	Trade common.Trade
}

// OrderModifiedEvent carries no payload: subscribers reconstruct the
// order's new state via (ID, Revision+1), or via the unchanged (ID,
// Revision) when the modify applied neither override.
type OrderModifiedEvent struct{}

// OrderDeletedEvent carries the order as it stood the instant before
// removal.
type OrderDeletedEvent struct {
	Order common.Order
}

func (OrderCreatedEvent) isEvent()  {}
func (TradeExecutedEvent) isEvent() {}
func (OrderModifiedEvent) isEvent() {}
func (OrderDeletedEvent) isEvent()  {}
