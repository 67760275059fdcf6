package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"wachtrij/internal/protocol"
	"wachtrij/internal/queue"
)

// bot stands in for the game client during development: it feeds random recruitment orders
// and logs every PANEL frame the server pushes.
func main() {
	var (
		baseURL = flag.String("url", "http://127.0.0.1:8787", "server base url")
		every   = flag.Duration("every", 10*time.Second, "how often to send a new order feed")
		maxQ    = flag.Int("orders", 5, "max orders per feed")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	base := strings.TrimRight(strings.TrimSpace(*baseURL), "/")

	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Printf("panel closed: %v", err)
				return
			}
			head, err := protocol.DecodeBase(msg)
			if err != nil || head.Type != protocol.TypePanel {
				continue
			}
			var p protocol.PanelMsg
			if err := json.Unmarshal(msg, &p); err != nil {
				continue
			}
			logger.Printf("PANEL key=%s units=%d loading=%v", p.Key, p.Units, p.Loading)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	r := rand.New(rand.NewSource(*seed))
	var units []queue.UnitType
	for _, c := range queue.Catalogs() {
		units = append(units, c.Units...)
	}

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		if err := sendFeed(base, randomFeed(r, units, *maxQ, time.Now())); err != nil {
			logger.Printf("feed: %v", err)
		}
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func randomFeed(r *rand.Rand, units []queue.UnitType, maxOrders int, now time.Time) protocol.OrdersMsg {
	msg := protocol.OrdersMsg{
		Type:            protocol.TypeOrders,
		ProtocolVersion: protocol.Version,
		SentAt:          now.Unix(),
	}
	n := 1 + r.Intn(maxOrders)
	for i := 0; i < n; i++ {
		started := now.Unix() - int64(r.Intn(60))
		msg.Orders = append(msg.Orders, protocol.OrderRecord{
			ID:              fmt.Sprintf("bot_%d_%d", now.Unix(), i),
			UnitID:          string(units[r.Intn(len(units))]),
			Count:           1 + r.Intn(20),
			CreatedAt:       started,
			ToBeCompletedAt: started + 30 + int64(r.Intn(600)),
		})
	}
	return msg
}

func sendFeed(base string, msg protocol.OrdersMsg) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Post(base+"/v1/orders", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e protocol.ErrorMsg
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s: %s %s", resp.Status, e.Code, e.Message)
	}
	return nil
}
