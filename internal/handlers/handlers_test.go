package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cicerokx7/bean-order-server/internal/auth"
	"github.com/Cicerokx7/bean-order-server/internal/brew"
	"github.com/Cicerokx7/bean-order-server/internal/limiter"
)

const testAPIKey = "test-api-key"

// recordingSink captures published statuses in order.
type recordingSink struct {
	mu        sync.Mutex
	available bool
	events    []string
}

func (s *recordingSink) Publish(userID, orderID, status, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, fmt.Sprintf("%s|%s|%s|%s", userID, orderID, status, message))
	return s.available
}

func (s *recordingSink) Available() bool { return s.available }

func (s *recordingSink) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

type testServer struct {
	router   *mux.Router
	sink     *recordingSink
	pipeline *brew.Pipeline
}

func newTestServer(t *testing.T, maxPerMinute int) *testServer {
	t.Helper()

	sink := &recordingSink{available: true}
	pipeline := brew.New(sink, 0, 16)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	pipeline.Start(ctx)

	h := New(
		limiter.New(maxPerMinute, time.Minute),
		auth.New(testAPIKey),
		sink,
		pipeline,
		"test",
	)

	router := mux.NewRouter()
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/order-notification", h.OrderNotification).Methods(http.MethodPost)
	router.HandleFunc("/submit-number", h.SubmitNumber).Methods(http.MethodPost)
	router.HandleFunc("/test", h.Test).Methods(http.MethodPost)
	router.HandleFunc("/status/{userId}/{orderId}", h.PushStatus).Methods(http.MethodPost)

	return &testServer{router: router, sink: sink, pipeline: pipeline}
}

func (ts *testServer) do(method, path, body, authHeader, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, 10)

	rec := ts.do(http.MethodGet, "/health", "", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "bean-order-server", body["service"])
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["environment"])
	assert.Equal(t, true, body["firebase_available"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestOrderNotificationAuthFailures(t *testing.T) {
	ts := newTestServer(t, 100)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "Missing or invalid authorization header"},
		{"malformed header", "token-without-scheme", "Missing or invalid authorization header"},
		{"wrong key", "Bearer wrong-key", "Invalid API key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/order-notification", `{"orders":[{"name":"Latte"}]}`, tt.header, "")
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.message, decodeBody(t, rec)["error"])
		})
	}

	// No business logic ran for any rejected request.
	assert.Empty(t, ts.sink.recorded())
}

func TestOrderNotificationRateLimit(t *testing.T) {
	ts := newTestServer(t, 10)

	for i := 0; i < 10; i++ {
		rec := ts.do(http.MethodPost, "/order-notification", `{}`, "Bearer "+testAPIKey, "10.0.0.1:5000")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := ts.do(http.MethodPost, "/order-notification", `{}`, "Bearer "+testAPIKey, "10.0.0.1:5000")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded", decodeBody(t, rec)["error"])

	// A different source address is unaffected.
	rec = ts.do(http.MethodPost, "/order-notification", `{}`, "Bearer "+testAPIKey, "10.0.0.2:5000")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderNotificationMissingBody(t *testing.T) {
	ts := newTestServer(t, 100)

	for _, body := range []string{"", "null", "[1,2]", "not json"} {
		rec := ts.do(http.MethodPost, "/order-notification", body, "Bearer "+testAPIKey, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.Equal(t, "No JSON data provided", decodeBody(t, rec)["error"])
	}
}

func TestOrderNotificationEmptyObject(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(http.MethodPost, "/order-notification", `{}`, "Bearer "+testAPIKey, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(0), body["order_count"])
	assert.Equal(t, float64(0), body["total_value"])
	assert.NotEmpty(t, body["order_id"], "order id must be generated when the caller omits it")
}

func TestOrderNotificationBrewsAsynchronously(t *testing.T) {
	ts := newTestServer(t, 100)

	payload := `{"userId":"user-1","orderId":"order-42","orders":[{"name":"Latte"},{"name":"Espresso"}],"orderCount":2,"totalValue":8.5}`
	rec := ts.do(http.MethodPost, "/order-notification", payload, "Bearer "+testAPIKey, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "order-42", body["order_id"], "caller-supplied order id is echoed verbatim")
	assert.Equal(t, float64(2), body["order_count"])
	assert.Equal(t, float64(8.5), body["total_value"])

	assert.Eventually(t, func() bool {
		return len(ts.sink.recorded()) == 4
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{
		"user-1|order-42|preparing|Order received, preparing drinks",
		"user-1|order-42|brewing|Making drink 1 of 2",
		"user-1|order-42|brewing|Making drink 2 of 2",
		"user-1|order-42|ready|All drinks ready for pickup",
	}, ts.sink.recorded())
}

func TestOrderNotificationSucceedsWithoutStore(t *testing.T) {
	ts := newTestServer(t, 100)
	ts.sink.available = false

	rec := ts.do(http.MethodPost, "/order-notification", `{"orders":[{"name":"Latte"}]}`, "Bearer "+testAPIKey, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitNumber(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(http.MethodPost, "/submit-number", `{"userId":"user-1","orderId":"order-42","number":7}`, "Bearer "+testAPIKey, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "order-42", body["order_id"])
	assert.Equal(t, "7", body["number"])
	assert.Equal(t, "user-1", body["user_id"])

	events := ts.sink.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, "user-1|order-42|completed|Order completed. Pickup number: 7", events[0])
}

func TestSubmitNumberMissingBody(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(http.MethodPost, "/submit-number", "", "Bearer "+testAPIKey, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No JSON data provided", decodeBody(t, rec)["error"])
}

func TestTestEndpoint(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(http.MethodPost, "/test", `{"probe":true}`, "Bearer "+testAPIKey, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, map[string]interface{}{"probe": true}, body["received_data"])
	assert.Equal(t, true, body["firebase_available"])
}

func TestPushStatus(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(http.MethodPost, "/status/user-1/order-42", `{"status":"ready","message":"Counter 3"}`, "Bearer "+testAPIKey, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["timestamp"])

	events := ts.sink.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, "user-1|order-42|ready|Counter 3", events[0])
}

func TestPushStatusRequiresAuth(t *testing.T) {
	ts := newTestServer(t, 100)

	rec := ts.do(http.MethodPost, "/status/user-1/order-42", `{}`, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, ts.sink.recorded())
}

func TestPushStatusNotRateLimited(t *testing.T) {
	// The manual status route bypasses the rate limiter entirely.
	ts := newTestServer(t, 1)

	for i := 0; i < 5; i++ {
		rec := ts.do(http.MethodPost, "/status/user-1/order-42", `{"status":"ready"}`, "Bearer "+testAPIKey, "10.0.0.9:1000")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
}

func TestPushStatusReportsStoreFailure(t *testing.T) {
	ts := newTestServer(t, 100)
	ts.sink.available = false

	rec := ts.do(http.MethodPost, "/status/user-1/order-42", `{"status":"ready"}`, "Bearer "+testAPIKey, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
}
