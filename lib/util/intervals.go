package util

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Interval is the time a single holder held a lock
type Interval struct {
	Worker    string
	Exclusive bool
	Start     time.Time
	End       time.Time
}

// Overlaps reports whether two intervals share any instant
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

func (i Interval) String() string {
	kind := "shared"
	if i.Exclusive {
		kind = "exclusive"
	}
	return fmt.Sprintf("%s %s [%s, %s]", i.Worker, kind,
		i.Start.Format(time.StampMicro), i.End.Format(time.StampMicro))
}

// IntervalLog collects intervals of many workers.
//
// Thread-safe: all methods are safe for concurrent use
type IntervalLog struct {
	mu        sync.Mutex
	intervals []Interval
}

// NewIntervalLog creates an empty log
func NewIntervalLog() *IntervalLog {
	return &IntervalLog{}
}

// Add records an interval
func (l *IntervalLog) Add(interval Interval) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intervals = append(l.intervals, interval)
}

// Intervals returns a copy of all intervals sorted by start
func (l *IntervalLog) Intervals() []Interval {
	l.mu.Lock()
	out := append([]Interval(nil), l.intervals...)
	l.mu.Unlock()

	sort.Slice(out, func(a, b int) bool {
		return out[a].Start.Before(out[b].Start)
	})
	return out
}

// Len returns the number of recorded intervals
func (l *IntervalLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.intervals)
}

// Violations returns every pair of overlapping intervals where at least one side is exclusive.
// An empty result means the lock kept its guarantees.
func (l *IntervalLog) Violations() [][2]Interval {
	intervals := l.Intervals()
	var violations [][2]Interval

	for a := range intervals {
		for b := a + 1; b < len(intervals); b++ {
			// sorted by start: no later interval can overlap a
			if !intervals[b].Start.Before(intervals[a].End) {
				break
			}
			if (intervals[a].Exclusive || intervals[b].Exclusive) && intervals[a].Overlaps(intervals[b]) {
				violations = append(violations, [2]Interval{intervals[a], intervals[b]})
			}
		}
	}
	return violations
}

// SharedOverlaps returns the number of pairs of shared intervals that overlapped
func (l *IntervalLog) SharedOverlaps() int {
	intervals := l.Intervals()
	count := 0

	for a := range intervals {
		for b := a + 1; b < len(intervals); b++ {
			if !intervals[b].Start.Before(intervals[a].End) {
				break
			}
			if !intervals[a].Exclusive && !intervals[b].Exclusive {
				count++
			}
		}
	}
	return count
}

// MaxConcurrency returns the largest number of intervals held at the same instant
func (l *IntervalLog) MaxConcurrency() int {
	type event struct {
		at    time.Time
		delta int
	}

	intervals := l.Intervals()
	events := make([]event, 0, 2*len(intervals))
	for _, i := range intervals {
		events = append(events, event{i.Start, 1}, event{i.End, -1})
	}
	// ends before starts at the same instant, touching intervals do not overlap
	sort.Slice(events, func(a, b int) bool {
		if events[a].at.Equal(events[b].at) {
			return events[a].delta < events[b].delta
		}
		return events[a].at.Before(events[b].at)
	})

	current, peak := 0, 0
	for _, e := range events {
		current += e.delta
		if current > peak {
			peak = current
		}
	}
	return peak
}

// PerWorker returns the number of intervals of every worker
func (l *IntervalLog) PerWorker() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[string]int)
	for _, i := range l.intervals {
		counts[i.Worker]++
	}
	return counts
}
