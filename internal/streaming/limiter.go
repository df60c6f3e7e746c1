package streaming

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Limiter caps the number of videos being streamed at once.
type Limiter struct {
	max    int64
	active atomic.Int64

	gauge    prometheus.Gauge
	rejected prometheus.Counter
}

// NewLimiter returns a limiter allowing max concurrent streams. The collectors
// are optional.
func NewLimiter(max int, gauge prometheus.Gauge, rejected prometheus.Counter) *Limiter {
	return &Limiter{max: int64(max), gauge: gauge, rejected: rejected}
}

// TryAcquire takes a slot if one is free. The returned release gives the slot
// back; calling it more than once is a no-op. A rejected call takes nothing
// and returns a nil release.
func (l *Limiter) TryAcquire() (release func(), ok bool) {
	for {
		cur := l.active.Load()
		if cur >= l.max {
			if l.rejected != nil {
				l.rejected.Inc()
			}
			return nil, false
		}
		if l.active.CompareAndSwap(cur, cur+1) {
			break
		}
	}
	if l.gauge != nil {
		l.gauge.Inc()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.active.Add(-1)
			if l.gauge != nil {
				l.gauge.Dec()
			}
		})
	}, true
}

func (l *Limiter) Active() int {
	return int(l.active.Load())
}

func (l *Limiter) Max() int {
	return int(l.max)
}
