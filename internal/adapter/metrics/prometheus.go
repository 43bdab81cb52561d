package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
)

const namespace = "storefront"

// Prometheus records checkout outcomes and live stock on its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	checkoutsTotal  *prometheus.CounterVec
	itemsSold       prometheus.Counter
	revenueTotal    prometheus.Counter
	savingsTotal    prometheus.Counter
	orderSize       prometheus.Histogram
	stockLevel      *prometheus.GaugeVec
	stockChanges    *prometheus.CounterVec
	archiveFailures prometheus.Counter
}

func New() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		checkoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome",
		}, []string{"outcome", "reason"}),
		itemsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_sold_total",
			Help:      "Units settled by successful checkouts",
		}),
		revenueTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revenue_total",
			Help:      "Sum of settled order subtotals",
		}),
		savingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_savings_total",
			Help:      "Sum of discounts granted on settled orders",
		}),
		orderSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_items",
			Help:      "Units per settled order",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		stockLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stock_level",
			Help:      "Current stock per product",
		}, []string{"product_id"}),
		stockChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_changes_total",
			Help:      "Ledger mutations by reason",
		}, []string{"reason"}),
		archiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_archive_failures_total",
			Help:      "Settled orders that could not be archived",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.checkoutsTotal,
		m.itemsSold,
		m.revenueTotal,
		m.savingsTotal,
		m.orderSize,
		m.stockLevel,
		m.stockChanges,
		m.archiveFailures,
	)
	return m
}

func (m *Prometheus) CheckoutSucceeded(order domain.Order) {
	m.checkoutsTotal.WithLabelValues("success", "").Inc()
	m.itemsSold.Add(float64(order.TotalItems))
	m.revenueTotal.Add(order.Subtotal.InexactFloat64())
	m.savingsTotal.Add(order.Savings.InexactFloat64())
	m.orderSize.Observe(float64(order.TotalItems))
}

func (m *Prometheus) CheckoutRejected(reason string) {
	m.checkoutsTotal.WithLabelValues("rejected", reason).Inc()
}

// ObserveInventory is an OnChange callback for the ledger.
func (m *Prometheus) ObserveInventory(e domain.InventoryEvent) {
	m.stockLevel.WithLabelValues(e.ProductID).Set(float64(e.Stock))
	m.stockChanges.WithLabelValues(string(e.Reason)).Inc()
}

// SeedStock sets the gauges from a ledger snapshot taken before subscribing.
func (m *Prometheus) SeedStock(snapshot map[string]int) {
	for id, stock := range snapshot {
		m.stockLevel.WithLabelValues(id).Set(float64(stock))
	}
}

func (m *Prometheus) ArchiveFailed() {
	m.archiveFailures.Inc()
}

func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
