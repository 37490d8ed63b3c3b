package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	jobStartedTotal   atomic.Uint64
	jobCompletedTotal atomic.Uint64
	jobFailedTotal    atomic.Uint64

	framesProcessedTotal atomic.Uint64
	framesRejectedTotal  atomic.Uint64

	insightRetriesTotal atomic.Uint64

	frameLatency = newHistogram([]float64{1, 2, 5, 10, 25, 50, 100, 250, 500})
	jobDuration  = newHistogram([]float64{500, 1000, 2500, 5000, 10000, 30000, 60000, 120000, 300000})
)

// IncJobStarted increments the started counter.
func IncJobStarted() {
	jobStartedTotal.Add(1)
}

// IncJobCompleted increments the completed counter.
func IncJobCompleted() {
	jobCompletedTotal.Add(1)
}

// IncJobFailed increments the failed counter.
func IncJobFailed() {
	jobFailedTotal.Add(1)
}

// IncFrameProcessed increments the processed-frame counter.
func IncFrameProcessed() {
	framesProcessedTotal.Add(1)
}

// IncFrameRejected increments the rejected-frame counter.
func IncFrameRejected() {
	framesRejectedTotal.Add(1)
}

// IncInsightRetry increments the insight retry counter.
func IncInsightRetry() {
	insightRetriesTotal.Add(1)
}

// ObserveFrameLatencyMs records one frame's end-to-end processing time.
func ObserveFrameLatencyMs(value float64) {
	if value < 0 {
		value = 0
	}
	frameLatency.Observe(value)
}

// ObserveJobDurationMs records a finished job's duration in milliseconds.
func ObserveJobDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	jobDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "analysis_job_started_total", "Total analysis jobs started", jobStartedTotal.Load())
	writeCounter(&buf, "analysis_job_completed_total", "Total analysis jobs completed", jobCompletedTotal.Load())
	writeCounter(&buf, "analysis_job_failed_total", "Total analysis jobs failed", jobFailedTotal.Load())
	writeCounter(&buf, "frames_processed_total", "Total frames analyzed", framesProcessedTotal.Load())
	writeCounter(&buf, "frames_rejected_total", "Total frames rejected as malformed", framesRejectedTotal.Load())
	writeCounter(&buf, "insight_retries_total", "Total insight gateway retries", insightRetriesTotal.Load())
	writeHistogram(&buf, "frame_latency_ms", "Frame processing latency in milliseconds", frameLatency.Snapshot())
	writeHistogram(&buf, "analysis_job_duration_ms", "Analysis job duration in milliseconds", jobDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
