package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	bookingsConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_confirmed_total",
			Help: "Confirmed bookings per event",
		},
		[]string{"event_id"},
	)

	paymentCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Checkout widget callbacks by outcome",
		},
		[]string{"outcome"},
	)

	checkoutOrders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_orders_total",
			Help: "Checkout gateway order creations",
		},
		[]string{"provider", "status"},
	)

	checkinScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_scans_total",
			Help: "QR check-in scans by result",
		},
		[]string{"result"},
	)

	activeScanSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_scan_sessions",
			Help: "Currently open check-in scan sessions",
		},
	)

	activeEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_events",
			Help: "Events currently marked active",
		},
	)

	pendingCheckouts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_checkouts",
			Help: "Checkout orders awaiting a widget callback",
		},
	)

	checkoutOrderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_order_duration_seconds",
			Help:    "Gateway order creation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

// Track bookings
func TrackBooking(eventID string) {
	bookingsConfirmed.WithLabelValues(eventID).Inc()
}

// Track payment callbacks
func TrackPaymentCallback(outcome string) {
	paymentCallbacks.WithLabelValues(outcome).Inc()
}

// Track checkout order creation
func TrackCheckoutOrder(provider, status string) {
	checkoutOrders.WithLabelValues(provider, status).Inc()
}

// Track check-in scans
func TrackScan(result string) {
	checkinScans.WithLabelValues(result).Inc()
}

// Observe gateway order creation latency
func ObserveCheckoutOrderDuration(provider string, seconds float64) {
	checkoutOrderDuration.WithLabelValues(provider).Observe(seconds)
}

func SetActiveScanSessions(n int) {
	activeScanSessions.Set(float64(n))
}

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	return &Monitor{redis: redisClient}
}

// Collect polls Redis-derived gauges until the context is cancelled.
func (m *Monitor) Collect(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectOnce(ctx)
		}
	}
}

func (m *Monitor) collectOnce(ctx context.Context) {
	if n, err := m.redis.SCard(ctx, "active_events").Result(); err == nil {
		activeEvents.Set(float64(n))
	}

	checkoutKeys, err := m.redis.Keys(ctx, "checkout:*").Result()
	if err == nil {
		pendingCheckouts.Set(float64(len(checkoutKeys)))
	}
}
