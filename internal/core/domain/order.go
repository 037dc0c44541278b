package domain

import "time"

// Order is the durable record written by the fulfillment worker. Its ID is the
// reservation id; rows are insert-only and never updated.
type Order struct {
	ID        string
	ProductID string
	UserID    string
	CreatedAt time.Time
}
