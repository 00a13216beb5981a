package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"fenrir/internal/common"
	fenrirNet "fenrir/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	action := flag.String("action", "place", "Action to perform: ['place', 'modify', 'cancel']")

	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell' (place only)")
	price := flag.Int64("price", 100, "Limit price, in ticks")
	qty := flag.Uint64("qty", 10, "Quantity")

	orderID := flag.String("id", "", "Order UUID (modify/cancel)")
	revision := flag.Uint64("revision", 0, "Order revision (modify/cancel)")
	newPrice := flag.Int64("new-price", 0, "New limit price override (modify, optional)")
	hasNewPrice := flag.Bool("set-new-price", false, "Whether -new-price should be applied")
	newQty := flag.Uint64("new-qty", 0, "New quantity override (modify, optional)")
	hasNewQty := flag.Bool("set-new-qty", false, "Whether -new-qty should be applied")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", *serverAddr)

	go readEvents(conn)

	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}

	switch strings.ToLower(*action) {
	case "place":
		if err := sendPlaceOrder(conn, side, common.Price(*price), common.Quantity(*qty)); err != nil {
			log.Fatalf("failed to place order: %v", err)
		}
		fmt.Printf("-> sent new order: %s %d @ %d\n", strings.ToUpper(*sideStr), *qty, *price)

	case "modify":
		id, revisionVal, err := parseIdentity(*orderID, *revision)
		if err != nil {
			log.Fatal(err)
		}
		if err := sendModifyOrder(conn, id, revisionVal, *hasNewPrice, common.Price(*newPrice), *hasNewQty, common.Quantity(*newQty)); err != nil {
			log.Fatalf("failed to modify order: %v", err)
		}
		fmt.Printf("-> sent modify request for %s\n", *orderID)

	case "cancel":
		id, revisionVal, err := parseIdentity(*orderID, *revision)
		if err != nil {
			log.Fatal(err)
		}
		if err := sendCancelOrder(conn, id, revisionVal); err != nil {
			log.Fatalf("failed to cancel order: %v", err)
		}
		fmt.Printf("-> sent cancel request for %s\n", *orderID)

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("listening for events... (Ctrl+C to exit)")
	select {}
}

func parseIdentity(idStr string, revision uint64) (uuid.UUID, common.Revision, error) {
	if idStr == "" {
		return uuid.UUID{}, 0, fmt.Errorf("-id is required")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.UUID{}, 0, fmt.Errorf("invalid -id: %w", err)
	}
	return id, common.Revision(revision), nil
}

func sendPlaceOrder(conn net.Conn, side common.Side, price common.Price, qty common.Quantity) error {
	owner := os.Getenv("USER")
	body := make([]byte, fenrirNet.NewOrderMessageHeaderLen+len(owner))
	body[0] = byte(side)
	binary.BigEndian.PutUint64(body[1:9], uint64(int64(price)))
	binary.BigEndian.PutUint64(body[9:17], uint64(qty))
	body[17] = uint8(len(owner))
	copy(body[fenrirNet.NewOrderMessageHeaderLen:], owner)

	return writeFrame(conn, fenrirNet.NewOrder, body)
}

func sendModifyOrder(conn net.Conn, id uuid.UUID, revision common.Revision, hasPrice bool, price common.Price, hasQty bool, qty common.Quantity) error {
	body := make([]byte, fenrirNet.ModifyOrderMessageLen)
	idBytes, _ := id.MarshalBinary()
	copy(body[0:16], idBytes)
	binary.BigEndian.PutUint64(body[16:24], uint64(revision))
	if hasPrice {
		body[24] = 1
	}
	binary.BigEndian.PutUint64(body[25:33], uint64(int64(price)))
	if hasQty {
		body[33] = 1
	}
	binary.BigEndian.PutUint64(body[34:42], uint64(qty))

	return writeFrame(conn, fenrirNet.ModifyOrder, body)
}

func sendCancelOrder(conn net.Conn, id uuid.UUID, revision common.Revision) error {
	body := make([]byte, fenrirNet.CancelOrderMessageLen)
	idBytes, _ := id.MarshalBinary()
	copy(body[0:16], idBytes)
	binary.BigEndian.PutUint64(body[16:24], uint64(revision))

	return writeFrame(conn, fenrirNet.CancelOrder, body)
}

func writeFrame(conn net.Conn, typeOf fenrirNet.MessageType, body []byte) error {
	buf := make([]byte, fenrirNet.BaseMessageHeaderLen+len(body))
	binary.BigEndian.PutUint16(buf[0:2], uint16(typeOf))
	copy(buf[fenrirNet.BaseMessageHeaderLen:], body)

	_, err := conn.Write(buf)
	return err
}

// readEvents continuously reads and prints market event frames from the
// server.
func readEvents(conn net.Conn) {
	buf := make([]byte, 4*1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			log.Printf("connection lost: %v", err)
			os.Exit(0)
		}

		decoded, err := fenrirNet.DecodeEventFrame(buf[:n])
		if err != nil {
			log.Printf("error decoding event frame: %v", err)
			continue
		}

		switch v := decoded.(type) {
		case fenrirNet.DecodedOrderFrame:
			kind := "CREATED"
			if v.Type == fenrirNet.EventOrderDeleted {
				kind = "DELETED"
			}
			fmt.Printf("\n[ORDER %s] %s %d @ %d | id=%s rev=%d\n",
				kind, strings.ToUpper(v.Side.String()), v.Quantity, v.Price, v.OrderID, v.Revision)
		case fenrirNet.DecodedTradeFrame:
			fmt.Printf("\n[TRADE] %d @ %d | maker=%s taker=%s t=%s\n",
				v.Quantity, v.Price, v.MakerID, v.TakerID, time.Unix(0, v.ExecTime).Format(time.RFC3339Nano))
		case fenrirNet.EventType:
			fmt.Println("\n[ORDER MODIFIED]")
		case string:
			fmt.Printf("\n[SERVER ERROR] %s\n", v)
		}
	}
}
