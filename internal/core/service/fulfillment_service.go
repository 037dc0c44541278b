package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/rl1809/flash-sale-pipeline/internal/core/domain"
	"github.com/rl1809/flash-sale-pipeline/internal/port"
)

type FulfillmentService struct {
	repo port.OrderRepository
}

func NewFulfillmentService(repo port.OrderRepository) *FulfillmentService {
	return &FulfillmentService{repo: repo}
}

// HandleMessage processes one log record and reports whether the consumer
// offset may advance. Unparseable messages are dropped to avoid a poison loop.
// A divergence between the counter store and the durable row holds the offset
// so the message is retried until an operator intervenes.
func (s *FulfillmentService) HandleMessage(ctx context.Context, value []byte) bool {
	var r domain.Reservation
	if err := json.Unmarshal(value, &r); err != nil {
		slog.Error("dropping unparseable reservation", "err", err, "payload", string(value))
		return true
	}
	if r.OrderID == "" || r.ProductID == "" || r.UserID == "" {
		slog.Error("dropping incomplete reservation", "payload", string(value))
		return true
	}

	err := s.repo.PersistReservation(ctx, r)
	switch {
	case err == nil:
		slog.Info("order persisted", "order_id", r.OrderID, "product_id", r.ProductID)
		return true
	case errors.Is(err, port.ErrOrderExists):
		// Redelivery of an already-processed message; the previous run
		// committed the transaction but not the offset.
		slog.Info("order already persisted", "order_id", r.OrderID)
		return true
	case errors.Is(err, port.ErrStockDivergence):
		slog.Error("durable stock divergence, holding offset",
			"order_id", r.OrderID,
			"product_id", r.ProductID,
			"user_id", r.UserID,
			"timestamp", r.Timestamp,
		)
		return false
	default:
		slog.Error("persist reservation failed", "order_id", r.OrderID, "err", err)
		return false
	}
}
