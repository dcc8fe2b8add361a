package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Cicerokx7/bean-order-server/internal/logger"
	"github.com/Cicerokx7/bean-order-server/internal/metrics"
	"github.com/Cicerokx7/bean-order-server/internal/models"
)

const eventSource = "bean-order-server"

// Global optimized transport - connection reuse, no allocation per request
var globalTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   500 * time.Millisecond,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   2 * time.Second,
	ExpectContinueTimeout: 100 * time.Millisecond,
}

// FirebaseSink writes status records to a Firebase-style realtime database
// over its REST surface. Each publish is a single PUT that overwrites the
// record at order_status/{userId}/{orderId}; no history is kept.
type FirebaseSink struct {
	baseURL string
	secret  string
	timeout time.Duration
	client  *http.Client
}

// NewFirebaseSink creates a sink for the database at baseURL. The secret, if
// set, is passed as the REST auth parameter. Every write is bounded by
// timeout; a timed-out write counts as any other publish failure.
func NewFirebaseSink(baseURL, secret string, timeout time.Duration) *FirebaseSink {
	return &FirebaseSink{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		timeout: timeout,
		client: &http.Client{
			Transport: globalTransport,
			Timeout:   timeout,
		},
	}
}

// NewSink returns a FirebaseSink when baseURL is configured, or a NoopSink
// otherwise, so callers never branch on initialization success.
func NewSink(baseURL, secret string, timeout time.Duration) Sink {
	if baseURL == "" {
		return NoopSink{}
	}
	return NewFirebaseSink(baseURL, secret, timeout)
}

func (s *FirebaseSink) Available() bool { return true }

// Publish sends a single write-and-forget status record. All failures -
// network, auth, serialization - are logged and converted to a false return;
// they never propagate and are never retried.
func (s *FirebaseSink) Publish(userID, orderID, status, message string) bool {
	event := models.StatusEvent{
		OrderID:   orderID,
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Source:    eventSource,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logFailure(userID, orderID, status, err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.recordURL(userID, orderID), bytes.NewReader(payload))
	if err != nil {
		s.logFailure(userID, orderID, status, err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logFailure(userID, orderID, status, err)
		return false
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.logFailure(userID, orderID, status, fmt.Errorf("remote store returned %d", resp.StatusCode))
		return false
	}

	metrics.StatusPublishTotal.WithLabelValues("ok").Inc()
	return true
}

func (s *FirebaseSink) recordURL(userID, orderID string) string {
	u := fmt.Sprintf("%s/order_status/%s/%s.json", s.baseURL, url.PathEscape(userID), url.PathEscape(orderID))
	if s.secret != "" {
		u += "?auth=" + url.QueryEscape(s.secret)
	}
	return u
}

func (s *FirebaseSink) logFailure(userID, orderID, status string, err error) {
	metrics.StatusPublishTotal.WithLabelValues("failed").Inc()
	logger.Error("failed to publish status", map[string]interface{}{
		"error":    err.Error(),
		"user_id":  userID,
		"order_id": orderID,
		"status":   status,
	})
}
