package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(creditsChargedTotal) }

var creditsChargedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "credits_charged_total",
		Help: "Credits deducted from accounts, labeled by pool.",
	},
	[]string{"pool"}, // 'promotional', 'allocation'
)

func AddCreditsCharged(promotional, allocation int64) {
	if promotional > 0 {
		creditsChargedTotal.WithLabelValues("promotional").Add(float64(promotional))
	}
	if allocation > 0 {
		creditsChargedTotal.WithLabelValues("allocation").Add(float64(allocation))
	}
}
