// Package metrics exposes pipeline counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/katakuxiko/luminarag/internal/model"
)

var (
	answers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumina_answers_total",
		Help: "Answers produced, by branch and outcome.",
	}, []string{"path", "outcome"})

	ingested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumina_ingest_total",
		Help: "Uploaded documents, by ingestion status.",
	}, []string{"status"})

	providerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumina_provider_errors_total",
		Help: "Failures of external providers, by kind.",
	}, []string{"kind"})
)

// ObserveAnswer counts one answer.
func ObserveAnswer(a model.Answer) {
	outcome := "ok"
	if a.Failed() {
		outcome = "error"
		providerErrors.WithLabelValues(string(a.Kind)).Inc()
	}
	answers.WithLabelValues(string(a.Path), outcome).Inc()
}

// ObserveIngest counts one ingestion result.
func ObserveIngest(r model.IngestResult) {
	ingested.WithLabelValues(string(r.Status)).Inc()
	if r.Err != nil {
		providerErrors.WithLabelValues(string(r.Kind)).Inc()
	}
}

// ObserveSearchFailure counts a web search that degraded to no results.
func ObserveSearchFailure() {
	providerErrors.WithLabelValues(string(model.KindSearch)).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
