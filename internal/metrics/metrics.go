package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Instrumentation for the quoting and settlement paths. Registered on the
// default registry and served by the web server's /metrics endpoint.
var (
	SwapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dmm",
		Name:      "swaps_total",
		Help:      "Number of swap attempts by side and outcome.",
	}, []string{"side", "outcome"})

	QuotesServed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dmm",
		Name:      "quotes_served_total",
		Help:      "Number of quote requests served by the web API.",
	})

	PoolLiquidity = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dmm",
		Name:      "pool_liquidity",
		Help:      "Current total pool liquidity in quote-token units.",
	})

	InventorySkew = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dmm",
		Name:      "inventory_skew",
		Help:      "Current net inventory skew reported by the pricing engine.",
	})

	BidFeeBps = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dmm",
		Name:      "bid_fee_bps",
		Help:      "Last quoted bid fee in basis points.",
	})

	AskFeeBps = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dmm",
		Name:      "ask_fee_bps",
		Help:      "Last quoted ask fee in basis points.",
	})
)
