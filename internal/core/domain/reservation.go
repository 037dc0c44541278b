package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reservation is the envelope produced to the durable log after a successful
// atomic decrement. OrderID is server-generated and becomes the orders primary
// key, which is what makes worker-side persistence idempotent.
type Reservation struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"` // ms since epoch
}

func NewReservation(productID, userID string, now time.Time) Reservation {
	return Reservation{
		OrderID:   uuid.NewString(),
		ProductID: productID,
		UserID:    userID,
		Timestamp: now.UnixMilli(),
	}
}

func (r Reservation) CreatedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}
