package observability

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"nftmarket/core/ledger"
	"nftmarket/native/market"
)

// MarketMetrics tracks ledger throughput and marketplace activity.
type MarketMetrics struct {
	transactions *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	rejections   *prometheus.CounterVec
	listings     *prometheus.CounterVec
	sales        *prometheus.CounterVec
	volume       *prometheus.CounterVec
	fees         *prometheus.CounterVec
	withdrawals  *prometheus.CounterVec
}

var (
	marketMetricsOnce sync.Once
	marketRegistry    *MarketMetrics
)

// Market returns the lazily-initialised marketplace metrics registered on the
// default prometheus registry.
func Market() *MarketMetrics {
	marketMetricsOnce.Do(func() {
		marketRegistry = newMarketMetrics()
		prometheus.MustRegister(marketRegistry.collectors()...)
	})
	return marketRegistry
}

func newMarketMetrics() *MarketMetrics {
	return &MarketMetrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Submitted transactions segmented by type and outcome.",
		}, []string{"type", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nftmarket",
			Subsystem: "ledger",
			Name:      "transaction_duration_seconds",
			Help:      "Latency distribution for transaction execution and commit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "ledger",
			Name:      "rejections_total",
			Help:      "Rejected transactions segmented by type and error code.",
		}, []string{"type", "code"}),
		listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "market",
			Name:      "listings_total",
			Help:      "Listings created segmented by marketplace.",
		}, []string{"marketplace"}),
		sales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "market",
			Name:      "sales_total",
			Help:      "Executed sales segmented by marketplace.",
		}, []string{"marketplace"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "market",
			Name:      "sale_volume_total",
			Help:      "Sum of sale prices in base currency units segmented by currency.",
		}, []string{"currency"}),
		fees: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "market",
			Name:      "fees_collected_total",
			Help:      "Marketplace fees collected in base currency units segmented by marketplace.",
		}, []string{"marketplace"}),
		withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nftmarket",
			Subsystem: "market",
			Name:      "fees_withdrawn_total",
			Help:      "Fees withdrawn by marketplace owners in base currency units.",
		}, []string{"marketplace"}),
	}
}

func (m *MarketMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.transactions, m.latency, m.rejections,
		m.listings, m.sales, m.volume, m.fees, m.withdrawals,
	}
}

// Observe implements ledger.Observer.
func (m *MarketMetrics) Observe(txType string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(txType)
	if op == "" {
		op = "unknown"
	}
	outcome := "committed"
	if err != nil {
		outcome = "rejected"
		m.rejections.WithLabelValues(op, rejectionCode(err)).Inc()
	}
	m.transactions.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// rejectionCode keeps label cardinality bounded: only known sentinels get
// their own code.
func rejectionCode(err error) string {
	if code := market.ErrorCode(err); code != "" {
		return code
	}
	switch {
	case errors.Is(err, ledger.ErrAlreadyApplied):
		return "AlreadyApplied"
	case errors.Is(err, ledger.ErrInvalidSignature):
		return "InvalidSignature"
	case errors.Is(err, ledger.ErrUnknownTransaction):
		return "UnknownTransaction"
	}
	return "other"
}
