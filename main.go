package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Cicerokx7/bean-order-server/internal/auth"
	"github.com/Cicerokx7/bean-order-server/internal/brew"
	"github.com/Cicerokx7/bean-order-server/internal/config"
	"github.com/Cicerokx7/bean-order-server/internal/handlers"
	"github.com/Cicerokx7/bean-order-server/internal/limiter"
	"github.com/Cicerokx7/bean-order-server/internal/logger"
	"github.com/Cicerokx7/bean-order-server/internal/metrics"
	"github.com/Cicerokx7/bean-order-server/internal/status"
)

var (
	// Standard HTTP metrics - can't be manipulated as they're recorded by middleware
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	metrics.Register()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Admission gate and brew worker
	rateLimiter := limiter.New(cfg.MaxRequestsPerMinute, cfg.RateLimitWindow)
	rateLimiter.Start(ctx, cfg.RateLimitWindow)

	authenticator := auth.New(cfg.APIKey)

	sink := status.NewSink(cfg.FirebaseURL, cfg.FirebaseSecret, cfg.PublishTimeout)

	pipeline := brew.New(sink, cfg.BrewDelay, cfg.BrewQueueSize)
	pipeline.Start(ctx)

	h := handlers.New(rateLimiter, authenticator, sink, pipeline, cfg.Environment)

	// HTTP routes with instrumentation middleware
	router := mux.NewRouter()
	router.HandleFunc("/health", instrumentHandler("health", h.Health)).Methods(http.MethodGet)
	router.HandleFunc("/order-notification", instrumentHandler("order-notification", h.OrderNotification)).Methods(http.MethodPost)
	router.HandleFunc("/submit-number", instrumentHandler("submit-number", h.SubmitNumber)).Methods(http.MethodPost)
	router.HandleFunc("/test", instrumentHandler("test", h.Test)).Methods(http.MethodPost)
	router.HandleFunc("/status/{userId}/{orderId}", instrumentHandler("push-status", h.PushStatus)).Methods(http.MethodPost)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,  // Max time to read request
		WriteTimeout: 10 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Keep-alive timeout
	}

	logger.Info("starting order notification server", map[string]interface{}{
		"port":               cfg.Port,
		"environment":        cfg.Environment,
		"api_key_configured": cfg.KeyConfigured(),
		"rate_limit":         cfg.MaxRequestsPerMinute,
		"rate_window":        cfg.RateLimitWindow.String(),
		"firebase_available": sink.Available(),
		"brew_delay":         cfg.BrewDelay.String(),
	})

	// Start server with graceful shutdown handling
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	logger.Info("shutting down server", nil)

	// Stop the brew worker and limiter sweep before closing the listener.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	logger.Info("server shutdown complete", nil)
}

// instrumentHandler wraps an HTTP handler with Prometheus instrumentation
func instrumentHandler(handlerName string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		// Call the actual handler
		handler(wrapped, r)

		// Record metrics
		duration := time.Since(startTime).Seconds()
		httpRequestDuration.WithLabelValues(handlerName, r.Method).Observe(duration)
		httpRequestsTotal.WithLabelValues(handlerName, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
