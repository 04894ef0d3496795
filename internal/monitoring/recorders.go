package monitoring

import (
	"math"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() { enabled.Store(true) }

// SetEnabled toggles metric recording at runtime.
func SetEnabled(on bool) { enabled.Store(on) }

// Enabled reports whether recorders are active.
func Enabled() bool { return enabled.Load() }

func seconds(d time.Duration) float64 {
	s := d.Seconds()
	if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
		return 0
	}
	return s
}

// RecordAPICall records one logical API call.
func RecordAPICall(method, outcome string, dur time.Duration) {
	if !Enabled() {
		return
	}
	APIRequestsTotal.WithLabelValues(method, outcome).Inc()
	APIRequestDuration.WithLabelValues(method).Observe(seconds(dur))
}

// RecordRefresh records a refresh attempt: success, rejected, no_token or error.
func RecordRefresh(result string) {
	if !Enabled() {
		return
	}
	TokenRefreshesTotal.WithLabelValues(result).Inc()
}

func RecordSessionInvalidated() {
	if !Enabled() {
		return
	}
	SessionInvalidationsTotal.Inc()
}

// RecordQueueEvent adds n to the offline counter for event.
func RecordQueueEvent(event string, n int) {
	if !Enabled() || n <= 0 {
		return
	}
	OfflineMutationsTotal.WithLabelValues(event).Add(float64(n))
}

func SetQueueDepth(n int) {
	if !Enabled() {
		return
	}
	OfflineQueueDepth.Set(float64(n))
}

func RecordUpload(source string, ok bool) {
	if !Enabled() {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	UploadsTotal.WithLabelValues(source, result).Inc()
}

func RecordStorageOp(backend, op string, dur time.Duration, err error) {
	if !Enabled() {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	StorageOperationsTotal.WithLabelValues(backend, op, result).Inc()
	StorageOperationDuration.WithLabelValues(backend, op).Observe(seconds(dur))
}
