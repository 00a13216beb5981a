package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/common"
)

func rest(t *testing.T, book *OrderBook, price common.Price, side common.Side, quantity common.Quantity) common.Order {
	t.Helper()
	entry := common.OrderEntry{Price: price, Quantity: quantity, Side: side}
	order := entry.ToOrder()
	trades := book.MatchOrder(order)
	require.Empty(t, trades, "setup order unexpectedly crossed the book")
	return order
}

// S1 — full cross at maker price.
func TestMatchOrder_FullCrossAtMakerPrice(t *testing.T) {
	book := NewOrderBook()
	rest(t, book, 18, common.Sell, 4)
	rest(t, book, 20, common.Sell, 6)

	taker := common.OrderEntry{Price: 21, Quantity: 4, Side: common.Buy}.ToOrder()
	trades := book.MatchOrder(taker)

	require.Len(t, trades, 1)
	assert.EqualValues(t, 18, trades[0].Price)
	assert.EqualValues(t, 4, trades[0].Quantity)

	_, bestAsk := book.BestOfBook()
	require.NotNil(t, bestAsk)
	assert.EqualValues(t, 20, bestAsk.Price)
	assert.EqualValues(t, 6, bestAsk.Quantity)
}

// S2 — walk the book.
func TestMatchOrder_WalkTheBook(t *testing.T) {
	book := NewOrderBook()
	rest(t, book, 18, common.Sell, 4)
	rest(t, book, 20, common.Sell, 6)

	taker := common.OrderEntry{Price: 21, Quantity: 5, Side: common.Buy}.ToOrder()
	trades := book.MatchOrder(taker)

	require.Len(t, trades, 2)
	assert.EqualValues(t, 18, trades[0].Price)
	assert.EqualValues(t, 4, trades[0].Quantity)
	assert.EqualValues(t, 20, trades[1].Price)
	assert.EqualValues(t, 1, trades[1].Quantity)

	_, bestAsk := book.BestOfBook()
	require.NotNil(t, bestAsk)
	assert.EqualValues(t, 20, bestAsk.Price)
	assert.EqualValues(t, 5, bestAsk.Quantity)
}

// S3 — FIFO within a level.
func TestMatchOrder_FIFOWithinLevel(t *testing.T) {
	book := NewOrderBook()
	rest(t, book, 18, common.Sell, 4)
	rest(t, book, 18, common.Sell, 6)

	taker := common.OrderEntry{Price: 21, Quantity: 5, Side: common.Buy}.ToOrder()
	trades := book.MatchOrder(taker)

	require.Len(t, trades, 2)
	assert.EqualValues(t, 4, trades[0].Quantity, "first arrival filled first")
	assert.EqualValues(t, 1, trades[1].Quantity, "second arrival partially filled second")

	_, bestAsk := book.BestOfBook()
	require.NotNil(t, bestAsk)
	assert.EqualValues(t, 18, bestAsk.Price)
	assert.EqualValues(t, 5, bestAsk.Quantity)
}

// S4 — sell sweeps bids, highest first.
func TestMatchOrder_SellSweepsBidsHighestFirst(t *testing.T) {
	book := NewOrderBook()
	rest(t, book, 18, common.Buy, 4)
	rest(t, book, 20, common.Buy, 6)

	taker := common.OrderEntry{Price: 17, Quantity: 4, Side: common.Sell}.ToOrder()
	trades := book.MatchOrder(taker)

	require.Len(t, trades, 1)
	assert.EqualValues(t, 20, trades[0].Price)
	assert.EqualValues(t, 4, trades[0].Quantity)

	bestBid, _ := book.BestOfBook()
	require.NotNil(t, bestBid)
	assert.EqualValues(t, 20, bestBid.Price)
	assert.EqualValues(t, 2, bestBid.Quantity)
}

// S5 — no cross rests.
func TestMatchOrder_NoCrossRests(t *testing.T) {
	book := NewOrderBook()

	taker := common.OrderEntry{Price: 10, Quantity: 10, Side: common.Buy}.ToOrder()
	trades := book.MatchOrder(taker)
	assert.Empty(t, trades)

	bestBid, bestAsk := book.BestOfBook()
	require.NotNil(t, bestBid)
	assert.EqualValues(t, 10, bestBid.Price)
	assert.EqualValues(t, 10, bestBid.Quantity)
	assert.Nil(t, bestAsk)
}

// S6 — modify to marketable price.
func TestModifyOrder_ToMarketablePrice(t *testing.T) {
	book := NewOrderBook()
	buy := rest(t, book, 100, common.Buy, 10)
	sell := rest(t, book, 120, common.Sell, 10)

	newPrice := common.Price(100)
	trades, err := book.ModifyOrder(sell.ID, sell.Revision, &newPrice, nil)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.EqualValues(t, 100, trades[0].Price)
	assert.EqualValues(t, 10, trades[0].Quantity)
	assert.Equal(t, buy.ID, trades[0].MakerID)

	bestBid, bestAsk := book.BestOfBook()
	assert.Nil(t, bestBid)
	assert.Nil(t, bestAsk)
}

func TestBestOfBook_EmptyBookReturnsNil(t *testing.T) {
	book := NewOrderBook()
	bestBid, bestAsk := book.BestOfBook()
	assert.Nil(t, bestBid)
	assert.Nil(t, bestAsk)
}

func TestDeleteOrder_Idempotent(t *testing.T) {
	book := NewOrderBook()
	order := rest(t, book, 50, common.Buy, 5)

	removed, err := book.DeleteOrder(order.ID, order.Revision)
	require.NoError(t, err)
	assert.Equal(t, order.ID, removed.ID)

	_, err = book.DeleteOrder(order.ID, order.Revision)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	bestBid, _ := book.BestOfBook()
	assert.Nil(t, bestBid)
}

func TestMatchOrder_PartialFillPreservesPriority(t *testing.T) {
	book := NewOrderBook()
	first := rest(t, book, 18, common.Sell, 10)
	rest(t, book, 18, common.Sell, 10)

	taker := common.OrderEntry{Price: 18, Quantity: 4, Side: common.Buy}.ToOrder()
	trades := book.MatchOrder(taker)
	require.Len(t, trades, 1)
	assert.Equal(t, first.ID, trades[0].MakerID)

	// The partially filled first order must still be at the head of the
	// queue: a second taker for the remaining size should match it, not
	// the untouched second order.
	taker2 := common.OrderEntry{Price: 18, Quantity: 6, Side: common.Buy}.ToOrder()
	trades2 := book.MatchOrder(taker2)
	require.Len(t, trades2, 1)
	assert.Equal(t, first.ID, trades2[0].MakerID)
	assert.EqualValues(t, 6, trades2[0].Quantity)
}

func TestModifyOrder_NoOverrides_ForfeitsPriority(t *testing.T) {
	book := NewOrderBook()
	first := rest(t, book, 18, common.Sell, 10)
	second := rest(t, book, 18, common.Sell, 10)

	// Re-submitting first with no overrides still goes through
	// delete+re-match, so it forfeits its place at the head of the
	// queue to second.
	trades, err := book.ModifyOrder(first.ID, first.Revision, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, trades)

	taker := common.OrderEntry{Price: 18, Quantity: 4, Side: common.Buy}.ToOrder()
	matched := book.MatchOrder(taker)
	require.Len(t, matched, 1)
	assert.Equal(t, second.ID, matched[0].MakerID, "second order should now be at the head of the level")
}

func TestModifyOrder_NotFound(t *testing.T) {
	book := NewOrderBook()
	_, err := book.ModifyOrder(common.NewOrderID(), 0, nil, nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMatchOrder_NeverCrossesTheBook(t *testing.T) {
	book := NewOrderBook()
	rest(t, book, 18, common.Sell, 4)
	rest(t, book, 20, common.Sell, 6)
	rest(t, book, 15, common.Buy, 3)

	taker := common.OrderEntry{Price: 19, Quantity: 10, Side: common.Buy}.ToOrder()
	book.MatchOrder(taker)

	bestBid, bestAsk := book.BestOfBook()
	if bestBid != nil && bestAsk != nil {
		assert.Less(t, int64(bestBid.Price), int64(bestAsk.Price))
	}
}
