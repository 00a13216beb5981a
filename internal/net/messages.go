// Package net is the binary wire adapter around the matching core: it
// frames inbound commands off a TCP connection and serializes outbound
// market events back onto one. None of the matching logic lives here.
package net

import (
	"encoding/binary"
	"errors"

	"github.com/google/uuid"

	"fenrir/internal/common"
	"fenrir/internal/engine"
)

var (
	ErrInvalidMessageType = errors.New("net: invalid message type")
	ErrMessageTooShort    = errors.New("net: message too short for its declared fields")
)

// MessageType tags an inbound command frame.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	ModifyOrder
	CancelOrder
)

// Message format constants. Each length excludes the 2-byte MessageType
// tag, which parseMessage strips before dispatch.
const (
	BaseMessageHeaderLen = 2

	// Side(1) + Price(8) + Quantity(8) + UsernameLen(1)
	NewOrderMessageHeaderLen = 1 + 8 + 8 + 1
	// OrderID(16) + Revision(8) + HasPrice(1) + Price(8) + HasQuantity(1) + Quantity(8)
	ModifyOrderMessageLen = 16 + 8 + 1 + 8 + 1 + 8
	// OrderID(16) + Revision(8)
	CancelOrderMessageLen = 16 + 8
)

// NewOrderMessage requests a new Create command.
type NewOrderMessage struct {
	Side        common.Side
	Price       common.Price
	Quantity    common.Quantity
	UsernameLen uint8
	Username    string
}

// Command converts a parsed NewOrderMessage into a Create command.
func (m NewOrderMessage) Command() engine.Command {
	return engine.CreateCommand{
		Entry: common.OrderEntry{Price: m.Price, Quantity: m.Quantity, Side: m.Side},
	}
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < NewOrderMessageHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}

	m := NewOrderMessage{
		Side:        common.Side(msg[0]),
		Price:       common.Price(int64(binary.BigEndian.Uint64(msg[1:9]))),
		Quantity:    common.Quantity(binary.BigEndian.Uint64(msg[9:17])),
		UsernameLen: msg[17],
	}

	expected := NewOrderMessageHeaderLen + int(m.UsernameLen)
	if len(msg) < expected {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Username = string(msg[NewOrderMessageHeaderLen:expected])
	return m, nil
}

// ModifyOrderMessage requests a Modify command. HasPrice/HasQuantity
// gate whether Price/Quantity carry a real override, since a zero value
// there is ambiguous with "no override".
type ModifyOrderMessage struct {
	OrderID     common.OrderID
	Revision    common.Revision
	HasPrice    bool
	Price       common.Price
	HasQuantity bool
	Quantity    common.Quantity
}

// Command converts a parsed ModifyOrderMessage into a Modify command.
func (m ModifyOrderMessage) Command() engine.Command {
	cmd := engine.ModifyCommand{ID: m.OrderID, Revision: m.Revision}
	if m.HasPrice {
		p := m.Price
		cmd.NewPrice = &p
	}
	if m.HasQuantity {
		q := m.Quantity
		cmd.NewQuantity = &q
	}
	return cmd
}

func parseModifyOrder(msg []byte) (ModifyOrderMessage, error) {
	if len(msg) < ModifyOrderMessageLen {
		return ModifyOrderMessage{}, ErrMessageTooShort
	}

	id, err := uuid.FromBytes(msg[0:16])
	if err != nil {
		return ModifyOrderMessage{}, err
	}

	return ModifyOrderMessage{
		OrderID:     common.OrderID(id),
		Revision:    common.Revision(binary.BigEndian.Uint64(msg[16:24])),
		HasPrice:    msg[24] != 0,
		Price:       common.Price(int64(binary.BigEndian.Uint64(msg[25:33]))),
		HasQuantity: msg[33] != 0,
		Quantity:    common.Quantity(binary.BigEndian.Uint64(msg[34:42])),
	}, nil
}

// CancelOrderMessage requests a Delete command. Unlike the teacher's
// original CancelOrderMessage, which only carried a UUID, this carries
// the Revision the core's DeleteOrder requires to key the order.
type CancelOrderMessage struct {
	OrderID  common.OrderID
	Revision common.Revision
}

// Command converts a parsed CancelOrderMessage into a Delete command.
func (m CancelOrderMessage) Command() engine.Command {
	return engine.DeleteCommand{ID: m.OrderID, Revision: m.Revision}
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < CancelOrderMessageLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}

	id, err := uuid.FromBytes(msg[0:16])
	if err != nil {
		return CancelOrderMessage{}, err
	}

	return CancelOrderMessage{
		OrderID:  common.OrderID(id),
		Revision: common.Revision(binary.BigEndian.Uint64(msg[16:24])),
	}, nil
}

// commandMessage is anything a parsed inbound frame converts into a
// Command for the engine.
type commandMessage interface {
	Command() engine.Command
}

// parseMessage strips the 2-byte type tag and dispatches to the
// matching frame parser.
func parseMessage(msg []byte) (commandMessage, error) {
	if len(msg) < BaseMessageHeaderLen {
		return nil, ErrMessageTooShort
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[BaseMessageHeaderLen:]

	switch typeOf {
	case Heartbeat:
		// No command to apply; callers treat a nil, nil return as a
		// keepalive and simply requeue the connection.
		return nil, nil
	case NewOrder:
		return parseNewOrder(body)
	case ModifyOrder:
		return parseModifyOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	default:
		return nil, ErrInvalidMessageType
	}
}

// EventType tags an outbound event frame.
type EventType uint8

const (
	EventOrderCreated EventType = iota
	EventTradeExecuted
	EventOrderModified
	EventOrderDeleted
	EventError
)

const (
	// Type(1) + Side(1) + Price(8) + Quantity(8) + Revision(8) + OrderID(16)
	orderFrameLen = 1 + 1 + 8 + 8 + 8 + 16
	// Type(1) + Price(8) + Quantity(8) + MakerID(16) + TakerID(16) + ExecTime(8)
	tradeFrameLen = 1 + 8 + 8 + 16 + 16 + 8
	// Type(1)
	modifiedFrameLen = 1
)

// EncodeEvent serializes a market event for the wire. The concrete
// frame layout depends on the underlying Event type; OrderModified
// carries no payload beyond its tag, mirroring the core's semantics
// that subscribers reconstruct state via (ID, Revision+1), or via the
// unchanged (ID, Revision) when the modify applied neither override.
func EncodeEvent(ev engine.Event) ([]byte, error) {
	switch e := ev.(type) {
	case engine.OrderCreatedEvent:
		return encodeOrderFrame(EventOrderCreated, e.Order), nil
	case engine.OrderDeletedEvent:
		return encodeOrderFrame(EventOrderDeleted, e.Order), nil
	case engine.TradeExecutedEvent:
		return encodeTradeFrame(e.Trade), nil
	case engine.OrderModifiedEvent:
		return []byte{byte(EventOrderModified)}, nil
	default:
		return nil, ErrInvalidMessageType
	}
}

func encodeOrderFrame(typeOf EventType, o common.Order) []byte {
	buf := make([]byte, orderFrameLen)
	buf[0] = byte(typeOf)
	buf[1] = byte(o.Side)
	binary.BigEndian.PutUint64(buf[2:10], uint64(o.Price))
	binary.BigEndian.PutUint64(buf[10:18], uint64(o.Quantity))
	binary.BigEndian.PutUint64(buf[18:26], uint64(o.Revision))
	idBytes, _ := uuid.UUID(o.ID).MarshalBinary()
	copy(buf[26:42], idBytes)
	return buf
}

func encodeTradeFrame(tr common.Trade) []byte {
	buf := make([]byte, tradeFrameLen)
	buf[0] = byte(EventTradeExecuted)
	binary.BigEndian.PutUint64(buf[1:9], uint64(tr.Price))
	binary.BigEndian.PutUint64(buf[9:17], uint64(tr.Quantity))
	makerBytes, _ := uuid.UUID(tr.MakerID).MarshalBinary()
	copy(buf[17:33], makerBytes)
	takerBytes, _ := uuid.UUID(tr.TakerID).MarshalBinary()
	copy(buf[33:49], takerBytes)
	binary.BigEndian.PutUint64(buf[49:57], uint64(tr.ExecTime))
	return buf
}

// EncodeErrorFrame wraps err as a wire-level error frame, used to tell
// a client its last message could not be parsed or applied.
func EncodeErrorFrame(err error) []byte {
	msg := err.Error()
	buf := make([]byte, 1+2+len(msg))
	buf[0] = byte(EventError)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(msg)))
	copy(buf[3:], msg)
	return buf
}

// DecodedOrderFrame is the client-side decoding of an order-shaped
// event frame (OrderCreated or OrderDeleted).
type DecodedOrderFrame struct {
	Type     EventType
	Side     common.Side
	Price    common.Price
	Quantity common.Quantity
	Revision common.Revision
	OrderID  common.OrderID
}

// DecodedTradeFrame is the client-side decoding of a TradeExecuted
// frame.
type DecodedTradeFrame struct {
	Price    common.Price
	Quantity common.Quantity
	MakerID  common.OrderID
	TakerID  common.OrderID
	ExecTime int64
}

// DecodeEventFrame parses one event frame read off the wire, returning
// a DecodedOrderFrame, DecodedTradeFrame, EventType (for OrderModified),
// or a string (for EventError), depending on the leading tag byte.
func DecodeEventFrame(buf []byte) (any, error) {
	if len(buf) < 1 {
		return nil, ErrMessageTooShort
	}

	switch EventType(buf[0]) {
	case EventOrderCreated, EventOrderDeleted:
		if len(buf) < orderFrameLen {
			return nil, ErrMessageTooShort
		}
		id, err := uuid.FromBytes(buf[26:42])
		if err != nil {
			return nil, err
		}
		return DecodedOrderFrame{
			Type:     EventType(buf[0]),
			Side:     common.Side(buf[1]),
			Price:    common.Price(int64(binary.BigEndian.Uint64(buf[2:10]))),
			Quantity: common.Quantity(binary.BigEndian.Uint64(buf[10:18])),
			Revision: common.Revision(binary.BigEndian.Uint64(buf[18:26])),
			OrderID:  common.OrderID(id),
		}, nil
	case EventTradeExecuted:
		if len(buf) < tradeFrameLen {
			return nil, ErrMessageTooShort
		}
		maker, err := uuid.FromBytes(buf[17:33])
		if err != nil {
			return nil, err
		}
		taker, err := uuid.FromBytes(buf[33:49])
		if err != nil {
			return nil, err
		}
		return DecodedTradeFrame{
			Price:    common.Price(int64(binary.BigEndian.Uint64(buf[1:9]))),
			Quantity: common.Quantity(binary.BigEndian.Uint64(buf[9:17])),
			MakerID:  common.OrderID(maker),
			TakerID:  common.OrderID(taker),
			ExecTime: int64(binary.BigEndian.Uint64(buf[49:57])),
		}, nil
	case EventOrderModified:
		return EventOrderModified, nil
	case EventError:
		if len(buf) < 3 {
			return nil, ErrMessageTooShort
		}
		msgLen := int(binary.BigEndian.Uint16(buf[1:3]))
		if len(buf) < 3+msgLen {
			return nil, ErrMessageTooShort
		}
		return string(buf[3 : 3+msgLen]), nil
	default:
		return nil, ErrInvalidMessageType
	}
}
