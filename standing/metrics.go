package standing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var checkCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "standing_checks",
	Help: "Number of standing checks, by outcome.",
}, []string{"outcome"})

var issuedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "standing_warnings_issued",
	Help: "Number of warnings issued, by type.",
}, []string{"type"})
