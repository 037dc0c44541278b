package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/flash-sale-pipeline/internal/core/domain"
	"github.com/rl1809/flash-sale-pipeline/internal/port"
)

var (
	ErrThrottled         = errors.New("admission cap exceeded")
	ErrMissingToken      = errors.New("missing idempotency key")
	ErrInvalidInput      = errors.New("invalid product or user id")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ReservedNotLoggedError reports a reservation that decremented the counter
// store but never reached the durable log. The decrement is not compensated:
// incrementing here would race with concurrent successful reservations, so one
// unit of possible under-sell is accepted and surfaced for reconciliation.
type ReservedNotLoggedError struct {
	Reservation domain.Reservation
	Err         error
}

func (e *ReservedNotLoggedError) Error() string {
	return fmt.Sprintf("reservation %s reserved but not logged: %v", e.Reservation.OrderID, e.Err)
}

func (e *ReservedNotLoggedError) Unwrap() error {
	return e.Err
}

// OrderRequest carries the client inputs for one purchase attempt.
type OrderRequest struct {
	ProductID        string
	UserID           string
	IdempotencyToken string
}

type IngestService struct {
	cache        port.CounterRepository
	resLog       port.ReservationLog
	admissionCap int64
}

func NewIngestService(cache port.CounterRepository, resLog port.ReservationLog, admissionCap int64) *IngestService {
	return &IngestService{
		cache:        cache,
		resLog:       resLog,
		admissionCap: admissionCap,
	}
}

// InitStock overwrites the counter-store stock for a product. Administrative;
// safe to retry.
func (s *IngestService) InitStock(ctx context.Context, productID string, quantity int) error {
	if !validID(productID) || quantity < 0 {
		return ErrInvalidInput
	}

	return s.cache.SetStock(ctx, productID, quantity)
}

// PlaceOrder runs the hot path: admission, validation, idempotency lookup,
// atomic reserve, durable handoff, idempotency mark. The step order is fixed;
// in particular the marker is written only after the log acknowledges the
// reservation, so a produce failure leaves the token unmarked and a retry can
// reserve again.
func (s *IngestService) PlaceOrder(ctx context.Context, req OrderRequest) (domain.Reservation, error) {
	var none domain.Reservation

	count, err := s.cache.IncrementRateBucket(ctx, time.Now().Unix())
	if err != nil {
		// Admission cannot be proven; fail closed.
		return none, fmt.Errorf("admission check failed: %w", err)
	}
	if count > s.admissionCap {
		return none, ErrThrottled
	}

	if req.IdempotencyToken == "" {
		return none, ErrMissingToken
	}
	if !validID(req.ProductID) || !validID(req.UserID) {
		return none, ErrInvalidInput
	}

	seen, err := s.cache.IdempotencySeen(ctx, req.IdempotencyToken)
	if err != nil {
		return none, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	if seen {
		return none, ErrDuplicateRequest
	}

	ok, err := s.cache.ReserveStock(ctx, req.ProductID)
	if err != nil {
		return none, fmt.Errorf("stock reservation failed: %w", err)
	}
	if !ok {
		return none, ErrInsufficientStock
	}

	reservation := domain.NewReservation(req.ProductID, req.UserID, time.Now())
	if err := s.resLog.Publish(ctx, reservation); err != nil {
		return none, &ReservedNotLoggedError{Reservation: reservation, Err: err}
	}

	if err := s.cache.MarkIdempotency(ctx, req.IdempotencyToken); err != nil {
		return none, fmt.Errorf("idempotency mark failed: %w", err)
	}

	return reservation, nil
}

const maxIDLen = 64

func validID(id string) bool {
	if id == "" || len(id) > maxIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
