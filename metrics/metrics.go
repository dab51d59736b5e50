// Package metrics records Prometheus metrics for chunk scans.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pretok"

// Scan collects metrics for chunk scans. A nil *Scan records nothing.
type Scan struct {
	chunks    *prometheus.CounterVec
	bytes     prometheus.Counter
	pretokens prometheus.Counter
	duration  prometheus.Histogram
}

// NewScan registers scan metrics with reg.
func NewScan(reg prometheus.Registerer) *Scan {
	f := promauto.With(reg)
	return &Scan{
		chunks: f.NewCounterVec(counterOpts("chunks_total", "Number of chunks scanned"), []string{"status"}),
		bytes:  f.NewCounter(counterOpts("bytes_total", "Number of bytes read by chunk scans")),
		pretokens: f.NewCounter(counterOpts("pretokens_total",
			"Number of pretokens counted, with repeats")),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Time taken to scan one chunk",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}

func counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scan",
		Name:      name,
		Help:      help,
	}
}

// Observe records one finished scan that read n bytes and counted
// pretokens pretokens. Failed scans only count towards the error status.
func (s *Scan) Observe(n int64, pretokens int, d time.Duration, err error) {
	if s == nil {
		return
	}

	if err != nil {
		s.chunks.WithLabelValues("error").Inc()
		return
	}

	s.chunks.WithLabelValues("success").Inc()
	s.bytes.Add(float64(n))
	s.pretokens.Add(float64(pretokens))
	s.duration.Observe(d.Seconds())
}
