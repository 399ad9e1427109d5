package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	menuMatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dineline_menu_match_total",
		Help: "Menu match queries, labeled by the strategy of the top result",
	}, []string{"strategy"})

	dialogTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dineline_dialog_turns_total",
		Help: "Dialog turns processed, labeled by resulting state",
	}, []string{"state"})

	paymentLinksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dineline_payment_links_total",
		Help: "Payment links issued and verified",
	}, []string{"event"})

	noticeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dineline_notices_total",
		Help: "Outbound notices, labeled by result",
	}, []string{"template", "result"})

	externalLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dineline_external_call_duration_seconds",
		Help:    "Latency of calls to external providers",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"provider", "operation"})
)
