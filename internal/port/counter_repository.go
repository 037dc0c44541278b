package port

import "context"

type CounterRepository interface {
	// SetStock overwrites the stock counter for a product (bootstrap/init).
	SetStock(ctx context.Context, productID string, quantity int) error

	// ReserveStock atomically decrements stock by one, returns false when empty.
	ReserveStock(ctx context.Context, productID string) (bool, error)

	// IncrementRateBucket bumps the per-second admission tally and returns the
	// resulting count for that bucket.
	IncrementRateBucket(ctx context.Context, unixSecond int64) (int64, error)

	// IdempotencySeen reports whether a marker exists for the token.
	IdempotencySeen(ctx context.Context, token string) (bool, error)

	// MarkIdempotency records the token with a short expiry.
	MarkIdempotency(ctx context.Context, token string) error
}
