package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var gateDecisionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_gate_decisions",
	Help: "Number of gate decisions, by content kind and outcome",
}, []string{"kind", "outcome"})
