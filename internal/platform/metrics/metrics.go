// Package metrics exposes Prometheus collectors for HTTP traffic and clinic
// activity.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klinik_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "klinik_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "klinik_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	patientsRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klinik_patients_registered_total",
			Help: "Total number of patients registered",
		},
		[]string{"category"},
	)

	queueTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klinik_queue_transitions_total",
			Help: "Total number of queue status changes",
		},
		[]string{"from_status", "to_status"},
	)

	queueCheckIns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "klinik_queue_check_ins_total",
			Help: "Total number of queue check-ins",
		},
	)

	medicalRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klinik_medical_records_total",
			Help: "Medical record lifecycle events",
		},
		[]string{"status"},
	)

	stockMovements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klinik_stock_movements_total",
			Help: "Total number of stock movements",
		},
		[]string{"type"},
	)

	transactionsAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klinik_transactions_amount_total",
			Help: "Sum of recorded transaction amounts",
		},
		[]string{"type"},
	)

	vitalAlerts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klinik_vital_alerts_total",
			Help: "Abnormal vital-sign interpretations",
		},
		[]string{"alert"},
	)
)

// Handler serves the Prometheus scrape endpoint.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// Middleware records request counts and latencies. The route label uses the
// registered path template so IDs do not blow up cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func RecordPatientRegistered(category string) {
	patientsRegistered.WithLabelValues(category).Inc()
}

func RecordQueueCheckIn() {
	queueCheckIns.Inc()
}

func RecordQueueTransition(from, to string) {
	queueTransitions.WithLabelValues(from, to).Inc()
}

func RecordMedicalRecord(status string) {
	medicalRecords.WithLabelValues(status).Inc()
}

func RecordStockMovement(movementType string) {
	stockMovements.WithLabelValues(movementType).Inc()
}

func RecordTransaction(txType string, amount float64) {
	transactionsAmount.WithLabelValues(txType).Add(amount)
}

func RecordVitalAlert(alert string) {
	vitalAlerts.WithLabelValues(alert).Inc()
}
