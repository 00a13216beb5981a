package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/common"
)

func recvEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestEngine_CreateEmitsCreatedThenTrades(t *testing.T) {
	e := New(16)
	sub := e.Subscribe()

	commands := make(chan Command, 4)
	done := make(chan struct{})
	go func() {
		e.Run(commands)
		close(done)
	}()

	commands <- CreateCommand{Entry: common.OrderEntry{Price: 100, Quantity: 10, Side: common.Sell}}
	commands <- CreateCommand{Entry: common.OrderEntry{Price: 100, Quantity: 10, Side: common.Buy}}
	close(commands)

	first := recvEvent(t, sub)
	created, ok := first.(OrderCreatedEvent)
	require.True(t, ok, "expected OrderCreatedEvent, got %T", first)
	assert.EqualValues(t, 10, created.Order.Quantity)

	second := recvEvent(t, sub)
	_, ok = second.(OrderCreatedEvent)
	require.True(t, ok, "expected OrderCreatedEvent, got %T", second)

	third := recvEvent(t, sub)
	trade, ok := third.(TradeExecutedEvent)
	require.True(t, ok, "expected TradeExecutedEvent, got %T", third)
	assert.EqualValues(t, 100, trade.Trade.Price)
	assert.EqualValues(t, 10, trade.Trade.Quantity)

	<-done
}

func TestEngine_ModifyEmitsModifiedThenTrades(t *testing.T) {
	e := New(16)
	sub := e.Subscribe()

	commands := make(chan Command, 8)
	done := make(chan struct{})
	go func() {
		e.Run(commands)
		close(done)
	}()

	commands <- CreateCommand{Entry: common.OrderEntry{Price: 100, Quantity: 10, Side: common.Buy}}
	commands <- CreateCommand{Entry: common.OrderEntry{Price: 120, Quantity: 10, Side: common.Sell}}

	created1, ok := recvEvent(t, sub).(OrderCreatedEvent)
	require.True(t, ok)
	created2, ok := recvEvent(t, sub).(OrderCreatedEvent)
	require.True(t, ok)

	sellOrder := created2.Order
	if sellOrder.Side != common.Sell {
		sellOrder = created1.Order
	}

	newPrice := common.Price(100)
	commands <- ModifyCommand{ID: sellOrder.ID, Revision: sellOrder.Revision, NewPrice: &newPrice}
	close(commands)

	modified := recvEvent(t, sub)
	_, ok = modified.(OrderModifiedEvent)
	require.True(t, ok, "expected OrderModifiedEvent, got %T", modified)

	traded := recvEvent(t, sub)
	trade, ok := traded.(TradeExecutedEvent)
	require.True(t, ok, "expected TradeExecutedEvent, got %T", traded)
	assert.EqualValues(t, 100, trade.Trade.Price)

	<-done
}

func TestEngine_DeleteEmitsDeleted(t *testing.T) {
	e := New(16)
	sub := e.Subscribe()

	commands := make(chan Command, 4)
	done := make(chan struct{})
	go func() {
		e.Run(commands)
		close(done)
	}()

	commands <- CreateCommand{Entry: common.OrderEntry{Price: 50, Quantity: 5, Side: common.Buy}}
	created, ok := recvEvent(t, sub).(OrderCreatedEvent)
	require.True(t, ok)

	commands <- DeleteCommand{ID: created.Order.ID, Revision: created.Order.Revision}
	close(commands)

	deleted := recvEvent(t, sub)
	del, ok := deleted.(OrderDeletedEvent)
	require.True(t, ok, "expected OrderDeletedEvent, got %T", deleted)
	assert.Equal(t, created.Order.ID, del.Order.ID)

	<-done
}

func TestEngine_NotFoundCommandsEmitNothing(t *testing.T) {
	e := New(16)
	sub := e.Subscribe()

	commands := make(chan Command, 2)
	done := make(chan struct{})
	go func() {
		e.Run(commands)
		close(done)
	}()

	commands <- DeleteCommand{ID: common.NewOrderID(), Revision: 0}
	commands <- CreateCommand{Entry: common.OrderEntry{Price: 1, Quantity: 1, Side: common.Buy}}
	close(commands)

	// The delete should be silently dropped: the first observable event
	// is the Create's OrderCreated, not anything from the delete.
	first := recvEvent(t, sub)
	_, ok := first.(OrderCreatedEvent)
	assert.True(t, ok, "expected OrderCreatedEvent, got %T", first)

	<-done
}

func TestEngine_TerminatesWhenCommandsClosed(t *testing.T) {
	e := New(16)
	commands := make(chan Command)
	done := make(chan struct{})
	go func() {
		e.Run(commands)
		close(done)
	}()

	close(commands)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("engine did not terminate after commands channel closed")
	}
}
