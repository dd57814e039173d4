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
	cycleStartedTotal   atomic.Uint64
	cycleCompletedTotal atomic.Uint64
	cycleFailedTotal    atomic.Uint64
	cycleSkippedTotal   atomic.Uint64
	toastDroppedTotal   atomic.Uint64

	messagesReceivedTotal  atomic.Uint64
	messagesDiscardedTotal atomic.Uint64

	backendDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncCycleStarted increments the started-cycle counter.
func IncCycleStarted() {
	cycleStartedTotal.Add(1)
}

// IncCycleCompleted increments the completed-cycle counter (success or
// no-main-product outcomes).
func IncCycleCompleted() {
	cycleCompletedTotal.Add(1)
}

// IncCycleFailed increments the failed-cycle counter.
func IncCycleFailed() {
	cycleFailedTotal.Add(1)
}

// IncCycleSkipped increments the skipped counter (ineligible or disabled).
func IncCycleSkipped() {
	cycleSkippedTotal.Add(1)
}

// IncToastDropped increments the dropped-toast counter (no active page).
func IncToastDropped() {
	toastDroppedTotal.Add(1)
}

// IncMessagesReceived increments the queue-message counter.
func IncMessagesReceived() {
	messagesReceivedTotal.Add(1)
}

// IncMessagesDiscarded increments the unrecoverable-message counter
// (empty, undecodable or unsupported payloads).
func IncMessagesDiscarded() {
	messagesDiscardedTotal.Add(1)
}

// ObserveBackendDurationMs records a backend call duration in milliseconds.
func ObserveBackendDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	backendDuration.Observe(value)
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
	writeCounter(&buf, "analysis_cycle_started_total", "Total analysis cycles started", cycleStartedTotal.Load())
	writeCounter(&buf, "analysis_cycle_completed_total", "Total analysis cycles completed", cycleCompletedTotal.Load())
	writeCounter(&buf, "analysis_cycle_failed_total", "Total analysis cycles failed", cycleFailedTotal.Load())
	writeCounter(&buf, "analysis_cycle_skipped_total", "Total analysis cycles skipped", cycleSkippedTotal.Load())
	writeCounter(&buf, "toast_dropped_total", "Total toast pushes with no active page", toastDroppedTotal.Load())
	writeCounter(&buf, "dispatch_messages_received_total", "Total queue messages received", messagesReceivedTotal.Load())
	writeCounter(&buf, "dispatch_messages_discarded_total", "Total queue messages discarded as unrecoverable", messagesDiscardedTotal.Load())
	writeHistogram(&buf, "backend_call_duration_ms", "Analysis backend call duration in milliseconds", backendDuration.Snapshot())
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
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
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

// NowMillis returns current time in milliseconds, useful for callers without
// time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
