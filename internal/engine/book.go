package engine

import (
	"errors"

	"fenrir/internal/common"
	"github.com/tidwall/btree"
)

// ErrOrderNotFound is the only modelled failure of the book: the
// supplied (id, revision) key names no live order. Any other invariant
// breach is a bug in the book itself, not a recoverable condition.
var ErrOrderNotFound = errors.New("engine: order not found")

// PriceLevel is one price's worth of resting orders, in arrival order.
type PriceLevel struct {
	Price  common.Price
	Orders []Handle
}

type indexKey struct {
	id       common.OrderID
	revision common.Revision
}

// BookLevel is a read-only top-of-book summary: a price and the total
// resting quantity sitting at it.
type BookLevel struct {
	Price    common.Price
	Quantity common.Quantity
}

// OrderBook is a single instrument's resting orders, indexed by side,
// price and arrival, plus the generational arena that owns the Order
// records referenced from the price-level queues and the revision
// index. An OrderBook is not safe for concurrent use: it is owned
// exclusively by the Engine Loop that drives it.
type OrderBook struct {
	bids *btree.BTreeG[*PriceLevel] // ordered best (highest) price first
	asks *btree.BTreeG[*PriceLevel] // ordered best (lowest) price first

	index map[indexKey]Handle
	arena *arena
}

// NewOrderBook returns an empty order book.
func NewOrderBook() *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price > b.Price
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price < b.Price
	})
	return &OrderBook{
		bids:  bids,
		asks:  asks,
		index: make(map[indexKey]Handle),
		arena: newArena(),
	}
}

func (b *OrderBook) levelsFor(side common.Side) *btree.BTreeG[*PriceLevel] {
	if side == common.Buy {
		return b.bids
	}
	return b.asks
}

// oppositeLevelsFor returns the price levels an incoming order of side
// must match against: asks for an incoming buy, bids for an incoming
// sell.
func (b *OrderBook) oppositeLevelsFor(side common.Side) *btree.BTreeG[*PriceLevel] {
	if side == common.Buy {
		return b.asks
	}
	return b.bids
}

// crosses reports whether the opposite-side level at levelPrice is still
// marketable against an incoming order of side/price: i.e. whether
// matching should continue rather than stop.
func crosses(side common.Side, price, levelPrice common.Price) bool {
	if side == common.Buy {
		return price >= levelPrice
	}
	return price <= levelPrice
}

// reindex re-keys an order's index entry from its old revision to
// whatever revision it now carries, without disturbing its place in the
// price-level queue.
func (b *OrderBook) reindex(old indexKey, order common.Order, h Handle) {
	delete(b.index, old)
	b.index[indexKey{id: order.ID, revision: order.Revision}] = h
}

// appendToBook inserts order at the tail of its side/price queue and
// registers it in the revision index. Used for residual quantity after
// matching.
func (b *OrderBook) appendToBook(order common.Order) {
	h := b.arena.insert(order)
	b.index[indexKey{id: order.ID, revision: order.Revision}] = h

	levels := b.levelsFor(order.Side)
	level, ok := levels.GetMut(&PriceLevel{Price: order.Price})
	if ok {
		level.Orders = append(level.Orders, h)
		return
	}
	levels.Set(&PriceLevel{Price: order.Price, Orders: []Handle{h}})
}

// MatchOrder matches an incoming order against the opposite side in
// price-time priority, resting any unfilled remainder. order is an
// already identified Order: a freshly minted one (OrderEntry.ToOrder) or
// the re-submitted order of a Modify. Returns the trades generated, or
// nil if none were.
func (b *OrderBook) MatchOrder(order common.Order) []common.Trade {
	levels := b.oppositeLevelsFor(order.Side)

	var trades []common.Trade

	for order.Quantity > 0 {
		level, ok := levels.MinMut()
		if !ok {
			break
		}
		if !crosses(order.Side, order.Price, level.Price) {
			break
		}

		for order.Quantity > 0 && len(level.Orders) > 0 {
			h := level.Orders[0]
			maker, ok := b.arena.get(h)
			if !ok {
				panic("engine: price level references a handle absent from the arena")
			}

			matchQty := min(order.Quantity, maker.Quantity)
			trades = append(trades, common.NewTrade(maker.Price, matchQty, maker.ID, order.ID))

			order.Quantity -= matchQty

			oldKey := indexKey{id: maker.ID, revision: maker.Revision}
			maker.Quantity -= matchQty
			if maker.Quantity > 0 {
				maker.Revision++
				b.reindex(oldKey, *maker, h)
				continue
			}

			// Fully consumed: pop from the queue, free the arena slot,
			// drop the revision index entry.
			level.Orders = level.Orders[1:]
			delete(b.index, oldKey)
			if _, ok := b.arena.remove(h); !ok {
				panic("engine: double-free of a resting order handle")
			}
		}

		if len(level.Orders) == 0 {
			levels.Delete(level)
		}
	}

	if order.Quantity > 0 {
		b.appendToBook(order)
	}

	return trades
}

// DeleteOrder removes the resting order currently keyed by (id,
// revision). Returns ErrOrderNotFound if the key names no live order.
func (b *OrderBook) DeleteOrder(id common.OrderID, revision common.Revision) (common.Order, error) {
	key := indexKey{id: id, revision: revision}
	h, ok := b.index[key]
	if !ok {
		return common.Order{}, ErrOrderNotFound
	}

	removed, ok := b.arena.remove(h)
	if !ok {
		panic("engine: index points at a handle already freed")
	}
	delete(b.index, key)

	levels := b.levelsFor(removed.Side)
	level, ok := levels.GetMut(&PriceLevel{Price: removed.Price})
	if !ok {
		panic("engine: resting order's price level is missing")
	}
	level.Orders = removeHandle(level.Orders, h)
	if len(level.Orders) == 0 {
		levels.Delete(level)
	}

	return removed, nil
}

// ModifyOrder removes the order at (id, revision), applies the
// requested overrides and re-submits the result through MatchOrder.
// Applying at least one override increments the revision; re-submission
// through MatchOrder always forfeits queue priority, even when neither
// override is supplied (see DESIGN.md's Open Question decision).
func (b *OrderBook) ModifyOrder(
	id common.OrderID,
	revision common.Revision,
	newPrice *common.Price,
	newQuantity *common.Quantity,
) ([]common.Trade, error) {
	removed, err := b.DeleteOrder(id, revision)
	if err != nil {
		return nil, err
	}

	if newPrice != nil {
		removed.Price = *newPrice
	}
	if newQuantity != nil {
		removed.Quantity = *newQuantity
	}
	if newPrice != nil || newQuantity != nil {
		removed.Revision++
	}

	return b.MatchOrder(removed), nil
}

// BestOfBook returns the top-of-book level for each side: the extreme
// price and the total resting quantity sitting at it. Either side may
// independently be nil when that side of the book is empty.
func (b *OrderBook) BestOfBook() (bestBid, bestAsk *BookLevel) {
	return b.topOf(b.bids), b.topOf(b.asks)
}

func (b *OrderBook) topOf(levels *btree.BTreeG[*PriceLevel]) *BookLevel {
	level, ok := levels.Min()
	if !ok {
		return nil
	}

	var total common.Quantity
	for _, h := range level.Orders {
		order, ok := b.arena.get(h)
		if !ok {
			panic("engine: price level references a handle absent from the arena")
		}
		total += order.Quantity
	}
	return &BookLevel{Price: level.Price, Quantity: total}
}

func removeHandle(handles []Handle, target Handle) []Handle {
	for i, h := range handles {
		if h == target {
			return append(handles[:i], handles[i+1:]...)
		}
	}
	return handles
}
