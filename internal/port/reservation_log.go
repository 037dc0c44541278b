package port

import (
	"context"

	"github.com/rl1809/flash-sale-pipeline/internal/core/domain"
)

type ReservationLog interface {
	// Publish appends the reservation to the durable log and waits for the
	// broker acknowledgment.
	Publish(ctx context.Context, r domain.Reservation) error
}
