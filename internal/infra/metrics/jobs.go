package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(scrapeJobsTotal, scrapeJobLatencyMs, gatewayErrorsTotal) }

var scrapeJobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scrape_jobs_total",
		Help: "Scrape jobs reaching a terminal state, labeled by platform and status.",
	},
	[]string{"platform", "status"}, // 'completed', 'failed'
)

var scrapeJobLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "scrape_job_latency_ms",
		Help:    "Submission-to-terminal latency distribution in milliseconds.",
		Buckets: []float64{500, 1000, 2500, 5000, 10000, 30000, 60000, 120000, 300000},
	},
	[]string{"platform", "method"},
)

var gatewayErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_errors_total",
		Help: "Transient extraction-gateway errors, labeled by operation.",
	},
	[]string{"op"}, // 'submit', 'poll', 'fetch'
)

func IncScrapeJob(platform, status string) {
	scrapeJobsTotal.WithLabelValues(norm(platform), norm(status)).Inc()
}

func ObserveJobLatency(platform, method string, ms float64) {
	scrapeJobLatencyMs.WithLabelValues(norm(platform), norm(method)).Observe(ms)
}

func IncGatewayError(op string) {
	gatewayErrorsTotal.WithLabelValues(norm(op)).Inc()
}
