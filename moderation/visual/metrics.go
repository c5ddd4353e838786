package visual

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var classifierAPIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "moderation_image_classifier_duration_sec",
	Help: "Duration of image classification API calls",
})

var classifierAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_image_classifier_count",
	Help: "Number of image classification API calls, by HTTP status code",
}, []string{"status"})
