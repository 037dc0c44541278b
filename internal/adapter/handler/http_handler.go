package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rl1809/flash-sale-pipeline/internal/core/service"
)

const idempotencyHeader = "x-idempotency-key"

type HTTPHandler struct {
	ingest         *service.IngestService
	waitingRoomURL string
	callTimeout    time.Duration
}

type InitRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type OrderHTTPRequest struct {
	ProductID string `json:"productId"`
	UserID    string `json:"userId"`
}

type StatusResponse struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(ingest *service.IngestService, waitingRoomURL string, callTimeout time.Duration) *HTTPHandler {
	return &HTTPHandler{
		ingest:         ingest,
		waitingRoomURL: waitingRoomURL,
		callTimeout:    callTimeout,
	}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/init", h.Init)
	mux.HandleFunc("/order", h.Order)
	mux.HandleFunc("/health", h.HealthCheck)
}

func (h *HTTPHandler) Init(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req InitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.callTimeout)
	defer cancel()

	if err := h.ingest.InitStock(ctx, req.ProductID, req.Quantity); err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid product id or quantity"})
			return
		}
		slog.Error("init stock failed", "product_id", req.ProductID, "err", err)
		writeJSON(w, http.StatusInternalServerError, StatusResponse{Status: "error", Msg: "Stock init failed"})
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok", Msg: "Stock initialized"})
}

func (h *HTTPHandler) Order(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req OrderHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.callTimeout)
	defer cancel()

	reservation, err := h.ingest.PlaceOrder(ctx, service.OrderRequest{
		ProductID:        req.ProductID,
		UserID:           req.UserID,
		IdempotencyToken: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		var notLogged *service.ReservedNotLoggedError

		switch {
		case errors.Is(err, service.ErrThrottled):
			http.Redirect(w, r, h.waitingRoomURL, http.StatusFound)
		case errors.Is(err, service.ErrMissingToken):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing Idempotency Key"})
		case errors.Is(err, service.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid product or user id"})
		case errors.Is(err, service.ErrDuplicateRequest):
			writeJSON(w, http.StatusOK, StatusResponse{Status: "ignored", Msg: "Duplicate request"})
		case errors.Is(err, service.ErrInsufficientStock):
			writeJSON(w, http.StatusConflict, StatusResponse{Status: "sold_out", Msg: "Inventory empty"})
		case errors.As(err, &notLogged):
			// Stock is decremented but no event reached the log. Not
			// compensated; reconciled manually from this line.
			slog.Error("reserved but not logged",
				"order_id", notLogged.Reservation.OrderID,
				"product_id", notLogged.Reservation.ProductID,
				"user_id", notLogged.Reservation.UserID,
				"err", notLogged.Err,
			)
			writeJSON(w, http.StatusInternalServerError, StatusResponse{Status: "error", Msg: "Order processing failed"})
		default:
			slog.Error("order failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, StatusResponse{Status: "error", Msg: "Order processing failed"})
		}
		return
	}

	slog.Info("order accepted", "order_id", reservation.OrderID, "product_id", reservation.ProductID)
	writeJSON(w, http.StatusOK, StatusResponse{Status: "success", Msg: "Order accepted"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
