package main

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"wachtrij/internal/protocol"
	"wachtrij/internal/queue"
)

func TestRandomFeedPassesSchema(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	units := []queue.UnitType{"sword", "bireme", "manticore"}
	for i := 0; i < 20; i++ {
		msg := randomFeed(r, units, 5, time.Unix(1_700_000_000, 0))
		raw, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		got, err := protocol.DecodeOrders(raw)
		if err != nil {
			t.Fatalf("schema: %v\n%s", err, raw)
		}
		for _, rec := range got.Orders {
			if _, err := queue.NewOrder(rec.ID, queue.UnitType(rec.UnitID), rec.Count, rec.CreatedAt, rec.ToBeCompletedAt); err != nil {
				t.Fatalf("order %+v: %v", rec, err)
			}
		}
	}
}
