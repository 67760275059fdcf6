package queue

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOrder is returned by NewOrder for records that break the order invariants.
var ErrInvalidOrder = errors.New("invalid production order")

// MaxOrderCount is the largest TotalCount NewOrder accepts.
const MaxOrderCount = 1_000_000

type UnitType string

// Order is a read-only view of one production order in the host game's model store.
// Times are unix seconds.
type Order struct {
	ID          string
	UnitType    UnitType
	TotalCount  int
	StartedAt   int64
	CompletesAt int64
}

func NewOrder(id string, unit UnitType, total int, startedAt, completesAt int64) (Order, error) {
	unit = UnitType(strings.TrimSpace(string(unit)))
	if unit == "" {
		return Order{}, fmt.Errorf("%w: order %q: empty unit type", ErrInvalidOrder, id)
	}
	if total < 1 {
		return Order{}, fmt.Errorf("%w: order %q: count must be >= 1, got %d", ErrInvalidOrder, id, total)
	}
	if total > MaxOrderCount {
		return Order{}, fmt.Errorf("%w: order %q: count must be <= %d, got %d", ErrInvalidOrder, id, MaxOrderCount, total)
	}
	if completesAt < startedAt {
		return Order{}, fmt.Errorf("%w: order %q: completes_at %d before created_at %d", ErrInvalidOrder, id, completesAt, startedAt)
	}
	return Order{
		ID:          id,
		UnitType:    unit,
		TotalCount:  total,
		StartedAt:   startedAt,
		CompletesAt: completesAt,
	}, nil
}
