package orders

import (
	"context"
	"errors"

	"wachtrij/internal/queue"
)

// ErrUnavailable reports that the host game's order collection has not been loaded yet.
var ErrUnavailable = errors.New("order source unavailable")

// Source reads one consistent view of the in-flight production orders.
type Source interface {
	Orders(ctx context.Context) ([]queue.Order, error)
}

type SourceFunc func(ctx context.Context) ([]queue.Order, error)

func (f SourceFunc) Orders(ctx context.Context) ([]queue.Order, error) { return f(ctx) }
