package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Cicerokx7/bean-order-server/internal/auth"
	"github.com/Cicerokx7/bean-order-server/internal/brew"
	"github.com/Cicerokx7/bean-order-server/internal/intake"
	"github.com/Cicerokx7/bean-order-server/internal/limiter"
	"github.com/Cicerokx7/bean-order-server/internal/logger"
	"github.com/Cicerokx7/bean-order-server/internal/metrics"
	"github.com/Cicerokx7/bean-order-server/internal/models"
	"github.com/Cicerokx7/bean-order-server/internal/status"
)

const serviceName = "bean-order-server"

// maxBodySize caps request bodies for security and performance
const maxBodySize = 10 * 1024 // 10KB limit

// Handlers holds the collaborators for the HTTP surface.
type Handlers struct {
	Limiter     *limiter.Limiter
	Auth        *auth.Authenticator
	Sink        status.Sink
	Pipeline    *brew.Pipeline
	Environment string
}

// New wires the HTTP handlers to their collaborators.
func New(l *limiter.Limiter, a *auth.Authenticator, sink status.Sink, pipeline *brew.Pipeline, environment string) *Handlers {
	return &Handlers{
		Limiter:     l,
		Auth:        a,
		Sink:        sink,
		Pipeline:    pipeline,
		Environment: environment,
	}
}

// Health returns service health status
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":            serviceName,
		"status":             "healthy",
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
		"environment":        h.Environment,
		"firebase_available": h.Sink.Available(),
	})
}

// OrderNotification handles order notifications from the cloud trigger. The
// order is validated, enqueued for brewing, and acknowledged immediately;
// brewing progress is reported through the status sink, never through this
// response.
func (h *Handlers) OrderNotification(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w, r) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("failed to read request body", map[string]interface{}{
			"error": err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	order, err := intake.Parse(body)
	if err != nil {
		if errors.Is(err, intake.ErrMissingBody) {
			metrics.RequestsRejectedTotal.WithLabelValues("invalid_payload").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No JSON data provided"})
			return
		}
		logger.Error("failed to parse order payload", map[string]interface{}{
			"error": err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	logger.Info("received order notification", map[string]interface{}{
		"client_ip":   clientIP(r),
		"user_id":     order.UserID,
		"order_id":    order.OrderID,
		"order_count": order.ItemCount,
		"total_value": order.TotalValue,
	})

	if !h.Pipeline.Enqueue(order) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	metrics.OrdersReceivedTotal.Inc()

	h.notifyOrder(order)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Order notification received and processed",
		"status":      "success",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"order_count": order.ItemCount,
		"total_value": order.TotalValue,
		"order_id":    order.OrderID,
	})
}

// SubmitNumber records the pickup number for an already-brewed order. This
// flow is independent of the brew pipeline: it is a second, unguarded status
// write keyed by the same (userId, orderId).
func (h *Handlers) SubmitNumber(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w, r) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	var payload map[string]interface{}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil || payload == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No JSON data provided"})
		return
	}

	userID := stringOr(payload["userId"], "unknown")
	orderID := stringOr(payload["orderId"], "")
	number := stringOr(payload["number"], "")

	sent := h.Sink.Publish(userID, orderID, models.StatusCompleted, "Order completed. Pickup number: "+number)

	logger.Info("pickup number submitted", map[string]interface{}{
		"user_id":   userID,
		"order_id":  orderID,
		"number":    number,
		"published": sent,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Pickup number recorded",
		"status":    "success",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"order_id":  orderID,
		"number":    number,
		"user_id":   userID,
	})
}

// Test is a connectivity probe for the cloud trigger.
func (h *Handlers) Test(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w, r) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, _ := io.ReadAll(r.Body)

	var received interface{}
	if len(body) > 0 {
		_ = json.Unmarshal(body, &received)
	}

	logger.Info("test request received", map[string]interface{}{
		"client_ip": clientIP(r),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":            "Server is online and responding",
		"status":             "success",
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
		"received_data":      received,
		"firebase_available": h.Sink.Available(),
	})
}

// PushStatus lets an operator push a manual status update for an order. It
// authenticates but is not rate limited; success reflects whether the remote
// store accepted the write.
func (h *Handlers) PushStatus(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Authenticate(r.Header.Get("Authorization")); err != nil {
		h.rejectAuth(w, r, err)
		return
	}

	vars := mux.Vars(r)
	userID := vars["userId"]
	orderID := vars["orderId"]

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, _ := io.ReadAll(r.Body)

	statusValue := models.StatusCompleted
	message := ""
	if len(body) > 0 {
		var payload map[string]interface{}
		if json.Unmarshal(body, &payload) == nil {
			statusValue = stringOr(payload["status"], statusValue)
			message = stringOr(payload["message"], "")
		}
	}

	sent := h.Sink.Publish(userID, orderID, statusValue, message)

	resultMessage := "Status update sent"
	if !sent {
		resultMessage = "Status update not delivered"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   sent,
		"message":   resultMessage,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// admit applies the admission gate: rate limit first, then authentication.
// It writes the rejection response itself and reports whether the request
// may proceed.
func (h *Handlers) admit(w http.ResponseWriter, r *http.Request) bool {
	ip := clientIP(r)

	if !h.Limiter.Admit(ip) {
		metrics.RequestsRejectedTotal.WithLabelValues("rate_limited").Inc()
		logger.Warn("rate limited request", map[string]interface{}{
			"client_ip": ip,
			"path":      r.URL.Path,
		})
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Rate limit exceeded"})
		return false
	}

	if err := h.Auth.Authenticate(r.Header.Get("Authorization")); err != nil {
		h.rejectAuth(w, r, err)
		return false
	}

	return true
}

func (h *Handlers) rejectAuth(w http.ResponseWriter, r *http.Request, err error) {
	metrics.RequestsRejectedTotal.WithLabelValues("unauthorized").Inc()
	logger.Warn("unauthorized request", map[string]interface{}{
		"client_ip": clientIP(r),
		"path":      r.URL.Path,
	})

	message := "Missing or invalid authorization header"
	if errors.Is(err, auth.ErrInvalidKey) {
		message = "Invalid API key"
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": message})
}

// notifyOrder stands in for the push/SMS/email notification backend.
func (h *Handlers) notifyOrder(order models.Order) {
	logger.Info("sending order notification", map[string]interface{}{
		"user_id":     order.UserID,
		"order_id":    order.OrderID,
		"items":       len(order.Items),
		"total_value": order.TotalValue,
	})
}

// clientIP extracts the source address used as the rate-limit key.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// stringOr coerces a decoded JSON value to a string; pickup numbers arrive
// as either strings or numbers depending on the client.
func stringOr(v interface{}, fallback string) string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
