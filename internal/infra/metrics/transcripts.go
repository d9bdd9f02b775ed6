package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(transcriptResolutionsTotal, transcriptStrategyFailures) }

var transcriptResolutionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "transcript_resolutions_total",
		Help: "Transcript chain outcomes, labeled by platform and source ('none' when unresolved).",
	},
	[]string{"platform", "source"},
)

var transcriptStrategyFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "transcript_strategy_failures_total",
		Help: "Swallowed per-strategy failures inside the transcript chain.",
	},
	[]string{"strategy"},
)

func IncTranscriptResolution(platform, source string) {
	if source == "" {
		source = "none"
	}
	transcriptResolutionsTotal.WithLabelValues(norm(platform), norm(source)).Inc()
}

func IncTranscriptStrategyFailure(strategy string) {
	transcriptStrategyFailures.WithLabelValues(norm(strategy)).Inc()
}
