package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"wachtrij/internal/queue"
)

func TestMemoryStore_UnavailableUntilLoaded(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Orders(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	s.Replace(nil, time.Unix(100, 0))
	got, err := s.Orders(context.Background())
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty collection, got %d", len(got))
	}

	s.Reset()
	if _, err := s.Orders(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after Reset, got %v", err)
	}
}

func TestMemoryStore_ReplaceIsKeyedAndCopied(t *testing.T) {
	s := NewMemoryStore()
	rev := s.Replace([]queue.Order{
		{ID: "b", UnitType: "sword", TotalCount: 2, StartedAt: 1, CompletesAt: 3},
		{ID: "a", UnitType: "bireme", TotalCount: 1, StartedAt: 1, CompletesAt: 3},
		{ID: "b", UnitType: "archer", TotalCount: 5, StartedAt: 1, CompletesAt: 3},
	}, time.Unix(50, 0))
	if rev != 1 {
		t.Fatalf("revision=%d want 1", rev)
	}

	got, err := s.Orders(context.Background())
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" || got[1].UnitType != "archer" {
		t.Fatalf("unexpected orders: %+v", got)
	}

	got[0].TotalCount = 99
	again, _ := s.Orders(context.Background())
	if again[0].TotalCount != 1 {
		t.Fatalf("store mutated through returned slice")
	}

	st := s.Stats()
	if !st.Loaded || st.Orders != 2 || st.Revision != 1 || !st.UpdatedAt.Equal(time.Unix(50, 0)) {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestMemoryStore_HonorsContext(t *testing.T) {
	s := NewMemoryStore()
	s.Replace(nil, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Orders(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
