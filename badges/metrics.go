package badges

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var awardCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "badges_awarded",
	Help: "Number of badges awarded, by badge name.",
}, []string{"badge"})
