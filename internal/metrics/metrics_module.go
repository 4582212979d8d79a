package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the metrics components: a Prometheus registry, the CLOB
// counter/histogram set, and the HTTP handler lifecycle hook.
var Module = fx.Options(
	fx.Provide(NewPrometheusRegistry),
	fx.Provide(NewMatchingMetrics),
	fx.Invoke(RegisterMetricsHandler),
)

// NewPrometheusRegistry creates a new Prometheus registry.
func NewPrometheusRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// MetricsParams contains parameters for metrics components.
type MetricsParams struct {
	fx.In

	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// Port is the metrics HTTP listen port, supplied by the caller via
// fx.Supply so it can follow Monitoring.PrometheusPort instead of a
// hardcoded default.
type Port int

// MatchingMetrics are the counters and histograms recorded by OrderBook's
// limit-order, cancel and take-order operations.
type MatchingMetrics struct {
	LimitOrdersInserted  *prometheus.CounterVec
	LimitOrdersEvicted   *prometheus.CounterVec
	LimitOrdersCancelled *prometheus.CounterVec
	TakeOrdersFilled     *prometheus.CounterVec
	TakeOrdersRejected   *prometheus.CounterVec
	FeesAccrued          *prometheus.CounterVec
	TakeOrderLatency     *prometheus.HistogramVec
}

// NewMatchingMetrics registers and returns the CLOB metric set.
func NewMatchingMetrics(params MetricsParams) *MatchingMetrics {
	m := &MatchingMetrics{
		LimitOrdersInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_limit_orders_inserted_total",
			Help: "Limit orders successfully inserted into a book, by side.",
		}, []string{"side"}),
		LimitOrdersEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_limit_orders_evicted_total",
			Help: "Resting orders evicted to make room for a better-priced insert.",
		}, []string{"side"}),
		LimitOrdersCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_limit_orders_cancelled_total",
			Help: "Limit orders cancelled by their owning market maker.",
		}, []string{"side"}),
		TakeOrdersFilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_take_orders_filled_total",
			Help: "Take orders that met their minimum output and committed.",
		}, []string{"side"}),
		TakeOrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_take_orders_rejected_total",
			Help: "Take orders rejected for not meeting minimum output.",
		}, []string{"side"}),
		FeesAccrued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_fees_accrued_total",
			Help: "Taker fee accrued into the sweepable fee accumulator, by asset.",
		}, []string{"asset"}),
		TakeOrderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clob_take_order_latency_seconds",
			Help:    "Wall-clock latency of SubmitTakeOrder, lock held.",
			Buckets: prometheus.DefBuckets,
		}, []string{"side"}),
	}

	params.Registry.MustRegister(
		m.LimitOrdersInserted,
		m.LimitOrdersEvicted,
		m.LimitOrdersCancelled,
		m.TakeOrdersFilled,
		m.TakeOrdersRejected,
		m.FeesAccrued,
		m.TakeOrderLatency,
	)

	return m
}

// RegisterMetricsHandler registers the metrics HTTP handler and ties its
// lifecycle to the fx app.
func RegisterMetricsHandler(
	lifecycle fx.Lifecycle,
	registry *prometheus.Registry,
	logger *zap.Logger,
	port Port,
) {
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting metrics server", zap.String("addr", server.Addr))

			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("metrics server error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping metrics server")
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("metrics server shutdown: %w", err)
			}
			return nil
		},
	})
}
