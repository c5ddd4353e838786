package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sentCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notifier_events",
	Help: "Number of notification deliveries attempted, by event and status.",
}, []string{"event", "status"})
