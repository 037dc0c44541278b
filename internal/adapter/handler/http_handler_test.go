package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rl1809/flash-sale-pipeline/internal/core/domain"
	"github.com/rl1809/flash-sale-pipeline/internal/core/service"
)

const testWaitingRoom = "http://localhost:8081/waiting-room.html"

type stubCounter struct {
	mu        sync.Mutex
	stock     map[string]int
	markers   map[string]bool
	rateCount int64
}

func newStubCounter(stock int) *stubCounter {
	return &stubCounter{
		stock:   map[string]int{"iphone-15": stock},
		markers: make(map[string]bool),
	}
}

func (s *stubCounter) SetStock(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[productID] = quantity
	return nil
}

func (s *stubCounter) ReserveStock(ctx context.Context, productID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stock[productID] >= 1 {
		s.stock[productID]--
		return true, nil
	}
	return false, nil
}

func (s *stubCounter) IncrementRateBucket(ctx context.Context, unixSecond int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateCount++
	return s.rateCount, nil
}

func (s *stubCounter) IdempotencySeen(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers[token], nil
}

func (s *stubCounter) MarkIdempotency(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[token] = true
	return nil
}

type stubLog struct {
	err error
}

func (s *stubLog) Publish(ctx context.Context, r domain.Reservation) error {
	return s.err
}

func newTestHandler(stock int, admissionCap int64, logErr error) (*HTTPHandler, *stubCounter) {
	counter := newStubCounter(stock)
	svc := service.NewIngestService(counter, &stubLog{err: logErr}, admissionCap)
	return NewHTTPHandler(svc, testWaitingRoom, 2*time.Second), counter
}

func postOrder(h *HTTPHandler, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(body))
	if token != "" {
		req.Header.Set("x-idempotency-key", token)
	}
	w := httptest.NewRecorder()
	h.Order(w, req)
	return w
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) StatusResponse {
	t.Helper()
	var resp StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestOrder_Accepted(t *testing.T) {
	h, counter := newTestHandler(10, 100, nil)

	w := postOrder(h, "tok-1", `{"productId":"iphone-15","userId":"user-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	resp := decodeStatus(t, w)
	if resp.Status != "success" || resp.Msg != "Order accepted" {
		t.Errorf("unexpected body: %+v", resp)
	}
	if counter.stock["iphone-15"] != 9 {
		t.Errorf("expected stock 9, got %d", counter.stock["iphone-15"])
	}
}

func TestOrder_Duplicate(t *testing.T) {
	h, _ := newTestHandler(10, 100, nil)

	if w := postOrder(h, "tok-1", `{"productId":"iphone-15","userId":"user-1"}`); w.Code != http.StatusOK {
		t.Fatalf("first order: expected 200, got %d", w.Code)
	}

	w := postOrder(h, "tok-1", `{"productId":"iphone-15","userId":"user-1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	resp := decodeStatus(t, w)
	if resp.Status != "ignored" || resp.Msg != "Duplicate request" {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestOrder_SoldOut(t *testing.T) {
	h, _ := newTestHandler(0, 100, nil)

	w := postOrder(h, "tok-1", `{"productId":"iphone-15","userId":"user-1"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	resp := decodeStatus(t, w)
	if resp.Status != "sold_out" || resp.Msg != "Inventory empty" {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestOrder_Throttled(t *testing.T) {
	h, counter := newTestHandler(10, 2, nil)
	counter.rateCount = 2 // cap already consumed this second

	w := postOrder(h, "tok-1", `{"productId":"iphone-15","userId":"user-1"}`)
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != testWaitingRoom {
		t.Errorf("expected Location %q, got %q", testWaitingRoom, loc)
	}
	if counter.stock["iphone-15"] != 10 {
		t.Errorf("throttled request must not touch stock, got %d", counter.stock["iphone-15"])
	}
}

func TestOrder_MissingIdempotencyKey(t *testing.T) {
	h, counter := newTestHandler(10, 100, nil)

	w := postOrder(h, "", `{"productId":"iphone-15","userId":"user-1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "Missing Idempotency Key" {
		t.Errorf("unexpected error body: %+v", resp)
	}

	// Admission runs before validation.
	if counter.rateCount != 1 {
		t.Errorf("expected rate count 1, got %d", counter.rateCount)
	}
	if counter.stock["iphone-15"] != 10 {
		t.Errorf("stock must be untouched, got %d", counter.stock["iphone-15"])
	}
}

func TestOrder_LogFailure(t *testing.T) {
	h, counter := newTestHandler(10, 100, errors.New("broker down"))

	w := postOrder(h, "tok-1", `{"productId":"iphone-15","userId":"user-1"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	resp := decodeStatus(t, w)
	if resp.Status != "error" || resp.Msg != "Order processing failed" {
		t.Errorf("unexpected body: %+v", resp)
	}

	// The reserve happened before the failed handoff and stands.
	if counter.stock["iphone-15"] != 9 {
		t.Errorf("expected stock 9, got %d", counter.stock["iphone-15"])
	}
	if counter.markers["tok-1"] {
		t.Error("marker must not be set after a failed handoff")
	}
}

func TestOrder_InvalidBody(t *testing.T) {
	h, _ := newTestHandler(10, 100, nil)

	w := postOrder(h, "tok-1", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestOrder_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(10, 100, nil)

	req := httptest.NewRequest(http.MethodGet, "/order", nil)
	w := httptest.NewRecorder()
	h.Order(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestInit_Success(t *testing.T) {
	h, counter := newTestHandler(0, 100, nil)

	req := httptest.NewRequest(http.MethodPost, "/init", strings.NewReader(`{"productId":"iphone-15","quantity":100}`))
	w := httptest.NewRecorder()
	h.Init(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeStatus(t, w)
	if resp.Status != "ok" {
		t.Errorf("unexpected body: %+v", resp)
	}
	if counter.stock["iphone-15"] != 100 {
		t.Errorf("expected stock 100, got %d", counter.stock["iphone-15"])
	}
}

func TestInit_InvalidQuantity(t *testing.T) {
	h, _ := newTestHandler(0, 100, nil)

	req := httptest.NewRequest(http.MethodPost, "/init", strings.NewReader(`{"productId":"iphone-15","quantity":-5}`))
	w := httptest.NewRecorder()
	h.Init(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
