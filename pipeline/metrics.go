package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var submissionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pipeline_submissions",
	Help: "Number of submissions rejected or flagged, by kind and outcome.",
}, []string{"kind", "outcome"})

var reviewCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pipeline_reviews",
	Help: "Number of admin review decisions, by action.",
}, []string{"action"})
