// Package order exposes the fulfillment HTTP API: order placement,
// fulfillment status lookup, health and metrics.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"order-fulfillment/internal/fulfillment"
	"order-fulfillment/internal/logger"
	"order-fulfillment/internal/metrics"
	"order-fulfillment/internal/models"
)

// Orchestrator runs one place-order workflow.
type Orchestrator interface {
	PlaceOrder(ctx context.Context, requestID string, req *models.OrderRequest) *models.OrderResult
}

// Handler serves the order service HTTP API.
type Handler struct {
	orchestrator Orchestrator
	store        fulfillment.Store
	logger       *logger.Logger
}

// NewHandler creates the HTTP handler. store may be nil when the service
// runs the synchronous strategy and keeps no saga records.
func NewHandler(orchestrator Orchestrator, store fulfillment.Store, log *logger.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		store:        store,
		logger:       log,
	}
}

// Routes builds the service mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", h.withLogging("orders", h.handlePlaceOrder))
	mux.HandleFunc("/fulfillment/", h.withLogging("fulfillment", h.handleGetFulfillment))
	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request, requestID string) {
	if r.Method != http.MethodPost {
		h.writeError(w, "orders", http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "orders", http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, "orders", http.StatusBadRequest, err.Error())
		return
	}

	result := h.orchestrator.PlaceOrder(r.Context(), requestID, &req)

	status := http.StatusOK
	if result.Status == models.StatusSystemError {
		status = http.StatusInternalServerError
	}
	h.writeJSON(w, "orders", status, result)
}

func (h *Handler) handleGetFulfillment(w http.ResponseWriter, r *http.Request, _ string) {
	if r.Method != http.MethodGet {
		h.writeError(w, "fulfillment", http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.store == nil {
		h.writeError(w, "fulfillment", http.StatusNotFound, "fulfillment tracking is not enabled")
		return
	}

	orderID := strings.TrimPrefix(r.URL.Path, "/fulfillment/")
	if orderID == "" || strings.Contains(orderID, "/") {
		h.writeError(w, "fulfillment", http.StatusBadRequest, "order id is required")
		return
	}

	record, err := h.store.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, fulfillment.ErrNotFound) {
			h.writeError(w, "fulfillment", http.StatusNotFound, fmt.Sprintf("no fulfillment record for order %s", orderID))
			return
		}
		h.logger.Error("fulfillment_lookup_failed", "Failed to load fulfillment record", "", err, map[string]interface{}{
			"order_id": orderID,
		})
		h.writeError(w, "fulfillment", http.StatusInternalServerError, "failed to load fulfillment record")
		return
	}

	h.writeJSON(w, "fulfillment", http.StatusOK, record)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, "health", http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// withLogging assigns a request id and logs the request around the handler.
func (h *Handler) withLogging(name string, next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := logger.GenerateRequestID()
		startTime := time.Now()

		h.logger.Debug("http_request_received", fmt.Sprintf("%s %s", r.Method, r.URL.Path), requestID, map[string]interface{}{
			"handler": name,
			"remote":  r.RemoteAddr,
		})

		next(w, r, requestID)

		h.logger.Debug("http_request_finished", fmt.Sprintf("%s %s", r.Method, r.URL.Path), requestID, map[string]interface{}{
			"handler":     name,
			"duration_ms": time.Since(startTime).Milliseconds(),
		})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, handlerName string, status int, body interface{}) {
	metrics.HTTPRequests.WithLabelValues(handlerName, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("http_response_write_failed", "Failed to write response", "", err, nil)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, handlerName string, status int, message string) {
	h.writeJSON(w, handlerName, status, map[string]string{
		"error": message,
	})
}
