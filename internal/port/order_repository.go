package port

import (
	"context"
	"errors"

	"github.com/rl1809/flash-sale-pipeline/internal/core/domain"
)

var (
	// ErrOrderExists signals the reservation was already persisted; callers
	// treat the write as a successful retry.
	ErrOrderExists = errors.New("order already exists")

	// ErrStockDivergence signals the durable row had no stock left for the
	// decrement even though the counter store accepted the reservation.
	ErrStockDivergence = errors.New("durable stock divergence")
)

type OrderRepository interface {
	// Migrate ensures the products and orders schemas exist.
	Migrate(ctx context.Context) error

	// SeedProduct inserts a product row with the given stock if absent.
	SeedProduct(ctx context.Context, productID string, stock int) error

	// PersistReservation writes the order row and decrements durable stock in
	// one transaction. Returns ErrOrderExists or ErrStockDivergence for the
	// two non-retryable-as-is outcomes.
	PersistReservation(ctx context.Context, r domain.Reservation) error

	// ProductStock reads the durable stock value, nil when the row is absent.
	ProductStock(ctx context.Context, productID string) (*domain.Product, error)
}
