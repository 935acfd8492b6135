// Package metrics exports engine progress events as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
)

// Namespace prefixes every metric name.
const Namespace = "bubbleocr"

// Observer implements bubble.Observer on Prometheus vectors and records
// request-level outcomes for the callers of an engine.
type Observer struct {
	chunksTotal    *prometheus.CounterVec
	chunkLines     *prometheus.HistogramVec
	boxesDetected  *prometheus.HistogramVec
	regionFailures *prometheus.CounterVec
	bubblesEmitted *prometheus.HistogramVec
	ocrRequests    *prometheus.CounterVec
	ocrDuration    *prometheus.HistogramVec
}

var _ bubble.Observer = (*Observer)(nil)

// New registers the engine metrics on reg.
func New(reg prometheus.Registerer) *Observer {
	f := promauto.With(reg)
	return &Observer{
		chunksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "chunks_processed_total",
				Help:      "Total number of image chunks sent to a line recognizer",
			},
			[]string{"engine"},
		),
		chunkLines: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "chunk_lines",
				Help:      "Number of lines kept per chunk",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"engine"},
		),
		boxesDetected: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "boxes_detected",
				Help:      "Number of text boxes retained by the detection stage",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
			[]string{"engine"},
		),
		regionFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "region_failures_total",
				Help:      "Total number of regions skipped because recognition failed",
			},
			[]string{"engine"},
		),
		bubblesEmitted: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "bubbles_emitted",
				Help:      "Number of bubbles returned per OCR call",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
			[]string{"engine"},
		),
		ocrRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "ocr_requests_total",
				Help:      "Total number of OCR calls",
			},
			[]string{"engine", "status"},
		),
		ocrDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "ocr_duration_seconds",
				Help:      "OCR call duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 25, 50},
			},
			[]string{"engine"},
		),
	}
}

func (o *Observer) ChunkProcessed(engine string, _ int, lines int) {
	o.chunksTotal.WithLabelValues(engine).Inc()
	o.chunkLines.WithLabelValues(engine).Observe(float64(lines))
}

func (o *Observer) BoxesDetected(engine string, n int) {
	o.boxesDetected.WithLabelValues(engine).Observe(float64(n))
}

func (o *Observer) RegionFailed(engine string, _ int, _ error) {
	o.regionFailures.WithLabelValues(engine).Inc()
}

func (o *Observer) BubblesEmitted(engine string, n int) {
	o.bubblesEmitted.WithLabelValues(engine).Observe(float64(n))
}

// ObserveOCR records the outcome and duration of one OCR call.
func (o *Observer) ObserveOCR(engine string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	o.ocrRequests.WithLabelValues(engine, status).Inc()
	o.ocrDuration.WithLabelValues(engine).Observe(d.Seconds())
}
