package points

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pointsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "points_applied_total",
	Help: "Absolute points applied, by reason.",
}, []string{"reason"})
