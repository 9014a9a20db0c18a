package comicrepack

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "comicrepack"

// Metrics holds the Prometheus collectors updated by a Pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	documents *prometheus.CounterVec
	pages     *prometheus.CounterVec
	duration  prometheus.Histogram
	outBytes  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "documents_total",
				Help:      "Documents processed by result (success, failure)",
			},
			[]string{"result"},
		),
		pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "pages_total",
				Help:      "Pages seen by outcome (kept, blank, failed)",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "document_duration_seconds",
				Help:      "Wall-clock time to repack one document",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		outBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "output_bytes_total",
				Help:      "Total size of compiled documents",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.documents, m.pages, m.duration, m.outBytes)
	}
	return m
}

func (m *Metrics) observeDocument(res *DocumentResult) {
	if m == nil || res == nil {
		return
	}
	result := "success"
	if res.Err != nil {
		result = "failure"
	}
	m.documents.WithLabelValues(result).Inc()
	m.duration.Observe(res.Duration.Seconds())
	m.outBytes.Add(float64(res.OutputSize))
}

func (m *Metrics) observePages(s PageStats) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues("kept").Add(float64(s.Kept))
	m.pages.WithLabelValues("blank").Add(float64(s.Blank))
	m.pages.WithLabelValues("failed").Add(float64(s.Failed))
}
