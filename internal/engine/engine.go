// Package engine implements the matching core: the Order Book, the
// Command/Event vocabulary, the single-consumer Engine Loop, and the
// lossy Event Broadcast that fans its output out to subscribers.
package engine

import (
	"github.com/rs/zerolog/log"
)

// Engine owns exactly one OrderBook and the Broadcast events are
// published on. It is driven by a single goroutine calling Run; no
// other goroutine may touch the book.
type Engine struct {
	book      *OrderBook
	broadcast *Broadcast
}

// New constructs an Engine with an empty book and a broadcast of the
// given per-subscriber ring capacity.
func New(broadcastCapacity int) *Engine {
	return &Engine{
		book:      NewOrderBook(),
		broadcast: NewBroadcast(broadcastCapacity),
	}
}

// Subscribe mints a new market-event subscriber.
func (e *Engine) Subscribe() *Subscription {
	return e.broadcast.Subscribe()
}

// BestOfBook exposes a read-only top-of-book snapshot. It is not safe to
// call concurrently with Run from another goroutine, since the book has
// no internal locking.
func (e *Engine) BestOfBook() (bestBid, bestAsk *BookLevel) {
	return e.book.BestOfBook()
}

// Run drains commands until the channel is closed, applying each to the
// book in strict arrival order and publishing the mandated events for
// it before starting the next. It returns once commands is closed and
// drained — this is the sole way to terminate the loop.
func (e *Engine) Run(commands <-chan Command) {
	for cmd := range commands {
		e.apply(cmd)
	}
}

func (e *Engine) apply(cmd Command) {
	switch c := cmd.(type) {
	case CreateCommand:
		e.applyCreate(c)
	case ModifyCommand:
		e.applyModify(c)
	case DeleteCommand:
		e.applyDelete(c)
	default:
		log.Error().Type("command", cmd).Msg("engine: unrecognised command type")
	}
}

func (e *Engine) applyCreate(c CreateCommand) {
	order := c.Entry.ToOrder()

	// OrderCreated is a record of intent: it fires before matching, even
	// for orders that end up fully marketable and never rest.
	e.broadcast.Publish(OrderCreatedEvent{Order: order})

	trades := e.book.MatchOrder(order)
	for _, t := range trades {
		e.broadcast.Publish(TradeExecutedEvent{Trade: t})
	}
}

func (e *Engine) applyModify(c ModifyCommand) {
	trades, err := e.book.ModifyOrder(c.ID, c.Revision, c.NewPrice, c.NewQuantity)
	if err != nil {
		log.Debug().
			Stringer("orderID", c.ID).
			Uint64("revision", uint64(c.Revision)).
			Msg("engine: modify on unknown order, dropping")
		return
	}

	e.broadcast.Publish(OrderModifiedEvent{})
	for _, t := range trades {
		e.broadcast.Publish(TradeExecutedEvent{Trade: t})
	}
}

func (e *Engine) applyDelete(c DeleteCommand) {
	removed, err := e.book.DeleteOrder(c.ID, c.Revision)
	if err != nil {
		log.Debug().
			Stringer("orderID", c.ID).
			Uint64("revision", uint64(c.Revision)).
			Msg("engine: delete on unknown order, dropping")
		return
	}

	e.broadcast.Publish(OrderDeletedEvent{Order: removed})
}
