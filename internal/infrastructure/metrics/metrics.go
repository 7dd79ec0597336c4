package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yamclicker/core/internal/domain/entities"
)

// Collector holds the Prometheus registry for the game and HTTP series.
type Collector struct {
	Registry *prometheus.Registry

	count     prometheus.Gauge
	rate      prometheus.Gauge
	clicks    prometheus.Counter
	purchases *prometheus.CounterVec
	unlocked  prometheus.Counter

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a collector with every series registered
func New() *Collector {
	c := &Collector{
		Registry: prometheus.NewRegistry(),
		count: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yams_count",
			Help: "Current number of yams",
		}),
		rate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yams_rate",
			Help: "Yams produced per second",
		}),
		clicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yams_clicks_total",
			Help: "Total number of clicks",
		}),
		purchases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yams_purchases_total",
				Help: "Total number of market purchases",
			},
			[]string{"item"},
		),
		unlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yams_items_unlocked_total",
			Help: "Total number of market items unlocked",
		}),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	c.Registry.MustRegister(c.count, c.rate, c.clicks, c.purchases, c.unlocked, c.RequestsTotal, c.RequestDuration)
	return c
}

// Observe folds one engine event into the game series.
func (c *Collector) Observe(ev entities.Event) {
	c.count.Set(ev.Count)
	c.rate.Set(ev.Rate)

	switch ev.Type {
	case entities.EventClicked:
		c.clicks.Inc()
	case entities.EventItemPurchased:
		if ev.ItemID != nil {
			c.purchases.WithLabelValues(strconv.Itoa(*ev.ItemID)).Inc()
		}
	case entities.EventItemUnlocked:
		c.unlocked.Inc()
	}
}

// SetState primes the gauges before the first event arrives.
func (c *Collector) SetState(count, rate float64) {
	c.count.Set(count)
	c.rate.Set(rate)
}

// Run consumes events until ctx is done or the channel is closed.
func (c *Collector) Run(ctx context.Context, events <-chan entities.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.Observe(ev)
		}
	}
}
