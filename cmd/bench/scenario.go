package bench

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/xslock/lib/lockmgr"
	"github.com/ValentinKolb/xslock/lib/util"
	gometrics "github.com/rcrowley/go-metrics"
)

// Scenario describes the workers competing for one lock key.
// Every worker loops: acquire, hold, release, pause.
type Scenario struct {
	Key string

	ExclusiveWorkers int
	ExclusiveRounds  int
	ExclusiveHold    time.Duration
	ExclusivePause   time.Duration

	SharedWorkers int
	SharedRounds  int
	SharedHold    time.Duration
	SharedPause   time.Duration

	// Options are applied to every lock
	Options []lockmgr.Option
}

// DefaultScenario returns the scenario with 2 exclusive workers doing 25 rounds
// and 4 shared workers doing 50 rounds
func DefaultScenario() Scenario {
	return Scenario{
		Key:              "bench",
		ExclusiveWorkers: 2,
		ExclusiveRounds:  25,
		ExclusiveHold:    200 * time.Millisecond,
		ExclusivePause:   10 * time.Millisecond,
		SharedWorkers:    4,
		SharedRounds:     50,
		SharedHold:       100 * time.Millisecond,
		SharedPause:      50 * time.Millisecond,
	}
}

// Result is the outcome of a scenario run
type Result struct {
	Mode     string
	Elapsed  time.Duration
	Errors   []error
	Interval *util.IntervalLog

	// wait timers per kind ("exclusive", "shared") and per worker ("x0", "s1", ...)
	Registry gometrics.Registry
}

// Violations returns the pairs of holders that broke the lock guarantees
func (r *Result) Violations() [][2]util.Interval {
	return r.Interval.Violations()
}

// Wait returns the wait timer of a kind or worker
func (r *Result) Wait(name string) gometrics.Timer {
	return gometrics.GetOrRegisterTimer("wait."+name, r.Registry)
}

// Workers returns the sorted names of all workers
func (r *Result) Workers() []string {
	var workers []string
	r.Registry.Each(func(name string, _ interface{}) {
		worker := strings.TrimPrefix(name, "wait.")
		if worker != name && worker != "exclusive" && worker != "shared" {
			workers = append(workers, worker)
		}
	})
	sort.Strings(workers)
	return workers
}

// Fairness compares the mean wait time of the workers of one kind
func (r *Result) Fairness(exclusive bool) util.FairnessStats {
	var waits []float64
	for _, w := range r.Workers() {
		if (w[0] == 'x') == exclusive {
			waits = append(waits, r.Wait(w).Snapshot().Mean())
		}
	}
	return util.NewFairnessStats(waits)
}

// Run runs the scenario with locks of the factory and waits for all workers
func (s Scenario) Run(ctx context.Context, factory *lockmgr.Factory) *Result {
	result := &Result{
		Mode:     factory.Mode(),
		Interval: util.NewIntervalLog(),
		Registry: gometrics.NewRegistry(),
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		opts = append([]lockmgr.Option{lockmgr.WithKey(s.Key)}, s.Options...)
	)

	worker := func(name string, exclusive bool, rounds int, hold, pause time.Duration) {
		defer wg.Done()
		kind := lockmgr.KindShared
		if exclusive {
			kind = lockmgr.KindExclusive
		}
		kindTimer := result.Wait(kind.String())
		workerTimer := result.Wait(name)

		for i := 0; i < rounds && ctx.Err() == nil; i++ {
			var (
				l   lockmgr.ILock
				err error
			)
			if exclusive {
				l, err = factory.ExclusiveLock(opts...)
			} else {
				l, err = factory.SharedLock(opts...)
			}

			requested := time.Now()
			if err == nil {
				err = lockmgr.WithLock(ctx, l, func(ctx context.Context) error {
					kindTimer.UpdateSince(requested)
					workerTimer.UpdateSince(requested)

					start := time.Now()
					select {
					case <-time.After(hold):
					case <-ctx.Done():
					}
					result.Interval.Add(util.Interval{Worker: name, Exclusive: exclusive, Start: start, End: time.Now()})
					return nil
				})
			}
			if err != nil {
				mu.Lock()
				result.Errors = append(result.Errors, fmt.Errorf("%s round %d: %w", name, i, err))
				mu.Unlock()
			}

			select {
			case <-time.After(pause):
			case <-ctx.Done():
			}
		}
	}

	start := time.Now()
	for i := 0; i < s.ExclusiveWorkers; i++ {
		wg.Add(1)
		go worker(fmt.Sprintf("x%d", i), true, s.ExclusiveRounds, s.ExclusiveHold, s.ExclusivePause)
	}
	for i := 0; i < s.SharedWorkers; i++ {
		wg.Add(1)
		go worker(fmt.Sprintf("s%d", i), false, s.SharedRounds, s.SharedHold, s.SharedPause)
	}
	wg.Wait()
	result.Elapsed = time.Since(start)

	return result
}
