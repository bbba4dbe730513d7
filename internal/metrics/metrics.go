// Package metrics exposes Prometheus counters for rounds and guesses.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "numguess"

// Guess outcomes.
const (
	OutcomeTooLow  = "too_low"
	OutcomeTooHigh = "too_high"
	OutcomeCorrect = "correct"
	OutcomeInvalid = "invalid"
)

type Metrics struct {
	reg *prometheus.Registry

	roundsStarted  *prometheus.CounterVec
	roundsFinished *prometheus.CounterVec
	guesses        *prometheus.CounterVec
	bestImproved   prometheus.Counter
	liveRounds     prometheus.Gauge
}

// New registers the collectors on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		roundsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_started_total",
			Help:      "Rounds started, by difficulty.",
		}, []string{"difficulty"}),
		roundsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_finished_total",
			Help:      "Rounds that reached a terminal phase, by difficulty and phase.",
		}, []string{"difficulty", "phase"}),
		guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guesses_total",
			Help:      "Guess submissions, by outcome.",
		}, []string{"outcome"}),
		bestImproved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_score_improvements_total",
			Help:      "Wins that set a new best score.",
		}),
		liveRounds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_rounds",
			Help:      "Player round loops currently running.",
		}),
	}
	reg.MustRegister(
		m.roundsStarted, m.roundsFinished, m.guesses, m.bestImproved, m.liveRounds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) RoundStarted(difficulty string) {
	if m == nil {
		return
	}
	m.roundsStarted.WithLabelValues(difficulty).Inc()
}

func (m *Metrics) RoundFinished(difficulty, phase string) {
	if m == nil {
		return
	}
	m.roundsFinished.WithLabelValues(difficulty, phase).Inc()
}

func (m *Metrics) Guess(outcome string) {
	if m == nil {
		return
	}
	m.guesses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) BestImproved() {
	if m == nil {
		return
	}
	m.bestImproved.Inc()
}

func (m *Metrics) RoundLoopStarted() {
	if m == nil {
		return
	}
	m.liveRounds.Inc()
}

func (m *Metrics) RoundLoopStopped() {
	if m == nil {
		return
	}
	m.liveRounds.Dec()
}
