package lockmgr

import (
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// lockMetrics are the counters of one variant
type lockMetrics struct {
	acquired *metrics.Counter
	attempts *metrics.Counter
	timeouts *metrics.Counter
	missing  *metrics.Counter
	released *metrics.Counter
	wait     *metrics.Histogram
}

func newLockMetrics(v *Variant) *lockMetrics {
	label := fmt.Sprintf(`{variant=%q}`, v.Name)
	return &lockMetrics{
		acquired: metrics.GetOrCreateCounter("xslock_acquire_total" + label),
		attempts: metrics.GetOrCreateCounter("xslock_acquire_attempts_total" + label),
		timeouts: metrics.GetOrCreateCounter("xslock_acquire_timeouts_total" + label),
		missing:  metrics.GetOrCreateCounter("xslock_release_missing_total" + label),
		released: metrics.GetOrCreateCounter("xslock_release_total" + label),
		wait:     metrics.GetOrCreateHistogram("xslock_acquire_wait_seconds" + label),
	}
}

func (m *lockMetrics) observeAcquired(start time.Time, attempts int) {
	m.acquired.Inc()
	m.attempts.Add(attempts)
	m.wait.UpdateDuration(start)
}

func (m *lockMetrics) observeTimeout(attempts int) {
	m.timeouts.Inc()
	m.attempts.Add(attempts)
}
