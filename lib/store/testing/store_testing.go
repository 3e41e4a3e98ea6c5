package testing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/xslock/lib/script"
	"github.com/ValentinKolb/xslock/lib/store"
)

// Harness is a store under test together with a way to move its clock forward
type Harness struct {
	// Store is a fresh, empty store.
	Store store.IStore
	// Advance moves the store's clock (Time and TTLs) forward by d.
	Advance func(d time.Duration)
}

// Factory creates a new harness for every test
type Factory func(t *testing.T) Harness

// RunStoreTests runs a comprehensive test suite for a store implementation.
func RunStoreTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("ScriptCacheFallback", func(t *testing.T) {
			testScriptCacheFallback(t, factory(t))
		})

		t.Run("Time", func(t *testing.T) {
			testTime(t, factory(t))
		})

		t.Run("ExistsDelete", func(t *testing.T) {
			testExistsDelete(t, factory(t))
		})

		t.Run("SimpleExclusive", func(t *testing.T) {
			testSimpleExclusive(t, factory(t))
		})

		t.Run("SimpleShared", func(t *testing.T) {
			testSimpleShared(t, factory(t))
		})

		t.Run("IDExclusive", func(t *testing.T) {
			testIDExclusive(t, factory(t))
		})

		t.Run("IDShared", func(t *testing.T) {
			testIDShared(t, factory(t))
		})

		t.Run("SafeExclusive", func(t *testing.T) {
			testSafeExclusive(t, factory(t))
		})

		t.Run("SafeShared", func(t *testing.T) {
			testSafeShared(t, factory(t))
		})

		t.Run("InitOnError", func(t *testing.T) {
			testInitOnError(t, factory(t))
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, factory(t))
		})

		t.Run("WrongType", func(t *testing.T) {
			testWrongType(t, factory(t))
		})

		t.Run("ConcurrentCounter", func(t *testing.T) {
			testConcurrentCounter(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// ManualClock is a clock that only moves when told to
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock standing at start
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current time of the clock
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// run executes a script and fails the test on error
func run(t testing.TB, s store.IStore, sc *script.Script, key string, args ...string) int64 {
	t.Helper()
	result, err := sc.Execute(context.Background(), s, key, args...)
	if err != nil {
		t.Fatalf("%s on %s failed: %v", sc.Name, key, err)
	}
	return result
}

// expect executes a script and checks its result
func expect(t testing.TB, s store.IStore, want int64, sc *script.Script, key string, args ...string) {
	t.Helper()
	if got := run(t, s, sc, key, args...); got != want {
		t.Errorf("%s%v on %s: expected %d, got %d", sc.Name, args, key, want, got)
	}
}

// exists checks whether a record exists for key
func exists(t testing.TB, s store.IStore, key string, want bool) {
	t.Helper()
	ok, err := s.Exists(context.Background(), key)
	if err != nil {
		t.Fatalf("Exists(%s) failed: %v", key, err)
	}
	if ok != want {
		t.Errorf("Expected Exists(%s)=%t, got %t", key, want, ok)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testScriptCacheFallback(t *testing.T, h Harness) {
	defer h.Store.Close()
	ctx := context.Background()
	sc := script.AcquireSharedSimple

	_, err := h.Store.EvalSha(ctx, sc.Hash, []string{"cache"}, "10")
	if !store.IsNoScript(err) {
		t.Fatalf("Expected a NoScript error for an unknown script, got %v", err)
	}

	// Execute hides the miss
	expect(t, h.Store, script.ResultOK, sc, "cache", "10")
	expect(t, h.Store, script.ResultOK, sc, "cache", "10")

	result, err := h.Store.Eval(ctx, sc.Source, []string{"cache"}, "10")
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if result != script.ResultOK {
		t.Errorf("Expected %d, got %d", script.ResultOK, result)
	}
}

func testTime(t *testing.T, h Harness) {
	defer h.Store.Close()
	ctx := context.Background()

	t0, err := h.Store.Time(ctx)
	if err != nil {
		t.Fatalf("Time failed: %v", err)
	}
	if t0.IsZero() {
		t.Fatalf("Time returned the zero time")
	}

	h.Advance(10 * time.Second)

	t1, err := h.Store.Time(ctx)
	if err != nil {
		t.Fatalf("Time failed: %v", err)
	}
	if d := t1.Sub(t0); d < 10*time.Second {
		t.Errorf("Expected the server time to move at least 10s, moved %s", d)
	}
}

func testExistsDelete(t *testing.T, h Harness) {
	defer h.Store.Close()

	exists(t, h.Store, "k", false)
	expect(t, h.Store, script.ResultOK, script.AcquireExclusiveSimple, "k", "10")
	exists(t, h.Store, "k", true)

	if err := h.Store.Delete(context.Background(), "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	exists(t, h.Store, "k", false)

	// deleting a missing key is fine
	if err := h.Store.Delete(context.Background(), "k"); err != nil {
		t.Errorf("Delete of a missing key failed: %v", err)
	}
}

func testSimpleExclusive(t *testing.T, h Harness) {
	defer h.Store.Close()
	s := h.Store

	expect(t, s, script.ResultOK, script.AcquireExclusiveSimple, "k", "10")
	expect(t, s, script.ResultBusy, script.AcquireExclusiveSimple, "k", "10")
	expect(t, s, script.ResultBusy, script.AcquireSharedSimple, "k", "10")

	// a shared release does not touch an exclusive record
	expect(t, s, script.ResultBusy, script.ReleaseSharedSimple, "k", "0")
	exists(t, s, "k", true)

	expect(t, s, script.ResultOK, script.ReleaseExclusiveSimple, "k", "0")
	exists(t, s, "k", false)

	// nothing to release any more
	expect(t, s, script.ResultBusy, script.ReleaseExclusiveSimple, "k", "0")
	expect(t, s, script.ResultOK, script.AcquireExclusiveSimple, "k", "10")
}

func testSimpleShared(t *testing.T, h Harness) {
	defer h.Store.Close()
	s := h.Store

	expect(t, s, script.ResultOK, script.AcquireSharedSimple, "k", "10")
	expect(t, s, script.ResultOK, script.AcquireSharedSimple, "k", "10")
	expect(t, s, script.ResultOK, script.AcquireSharedSimple, "k", "10")
	expect(t, s, script.ResultBusy, script.AcquireExclusiveSimple, "k", "10")
	expect(t, s, script.ResultBusy, script.ReleaseExclusiveSimple, "k", "0")

	expect(t, s, script.ResultOK, script.ReleaseSharedSimple, "k", "0")
	expect(t, s, script.ResultOK, script.ReleaseSharedSimple, "k", "0")
	exists(t, s, "k", true)
	expect(t, s, script.ResultBusy, script.AcquireExclusiveSimple, "k", "10")

	// the last holder frees the key
	expect(t, s, script.ResultOK, script.ReleaseSharedSimple, "k", "0")
	exists(t, s, "k", false)
	expect(t, s, script.ResultBusy, script.ReleaseSharedSimple, "k", "0")
	expect(t, s, script.ResultOK, script.AcquireExclusiveSimple, "k", "10")
}

func testIDExclusive(t *testing.T, h Harness) {
	defer h.Store.Close()
	s := h.Store

	expect(t, s, script.ResultOK, script.AcquireExclusiveID, "k", "e1", "10")
	expect(t, s, script.ResultBusy, script.AcquireExclusiveID, "k", "e2", "10")
	expect(t, s, script.ResultBusy, script.AcquireSharedID, "k", "s1", "10")

	// only the owner can release
	expect(t, s, script.ResultBusy, script.ReleaseExclusiveID, "k", "0", "e2")
	exists(t, s, "k", true)

	expect(t, s, script.ResultOK, script.ReleaseExclusiveID, "k", "0", "e1")
	exists(t, s, "k", false)
	expect(t, s, script.ResultBusy, script.ReleaseExclusiveID, "k", "0", "e1")
}

func testIDShared(t *testing.T, h Harness) {
	defer h.Store.Close()
	s := h.Store

	expect(t, s, script.ResultOK, script.AcquireSharedID, "k", "s1", "10")
	expect(t, s, script.ResultOK, script.AcquireSharedID, "k", "s2", "10")

	// token collision
	expect(t, s, script.ResultCollision, script.AcquireSharedID, "k", "s1", "10")

	expect(t, s, script.ResultBusy, script.AcquireExclusiveID, "k", "e1", "10")
	expect(t, s, script.ResultBusy, script.ReleaseExclusiveID, "k", "0", "s1")

	expect(t, s, script.ResultOK, script.ReleaseSharedID, "k", "0", "s1")
	exists(t, s, "k", true)
	expect(t, s, script.ResultBusy, script.ReleaseSharedID, "k", "0", "s1")

	expect(t, s, script.ResultOK, script.ReleaseSharedID, "k", "0", "s2")
	exists(t, s, "k", false)

	// a shared acquire is refused while an exclusive holder exists
	expect(t, s, script.ResultOK, script.AcquireExclusiveID, "k", "e1", "10")
	expect(t, s, script.ResultBusy, script.AcquireSharedID, "k", "s3", "10")
	expect(t, s, script.ResultBusy, script.ReleaseSharedID, "k", "0", "s3")
	exists(t, s, "k", true)
}

func testSafeExclusive(t *testing.T, h Harness) {
	defer h.Store.Close()
	s := h.Store

	expect(t, s, script.ResultOK, script.AcquireExclusiveSafe, "k", "x1", "1000", "10")
	expect(t, s, script.ResultBusy, script.AcquireExclusiveSafe, "k", "x2", "5000", "10")
	expect(t, s, script.ResultBusy, script.AcquireSharedSafe, "k", "s1", "5000", "10")

	expect(t, s, script.ResultBusy, script.ReleaseExclusiveSafe, "k", "0", "x2")
	expect(t, s, script.ResultBusy, script.ReleaseSharedSafe, "k", "0", "x1")
	expect(t, s, script.ResultOK, script.ReleaseExclusiveSafe, "k", "0", "x1")
	exists(t, s, "k", false)

	// shared holders with leases until 1010 and 1020
	expect(t, s, script.ResultOK, script.AcquireSharedSafe, "k", "s1", "1000", "10")
	expect(t, s, script.ResultOK, script.AcquireSharedSafe, "k", "s2", "1010", "10")

	// the latest lease decides
	expect(t, s, script.ResultBusy, script.AcquireExclusiveSafe, "k", "x1", "1015", "10")
	expect(t, s, script.ResultBusy, script.AcquireExclusiveSafe, "k", "x1", "1020", "10")
	expect(t, s, script.ResultOK, script.AcquireExclusiveSafe, "k", "x1", "1021", "10")

	// the stale shared holders were dropped
	expect(t, s, script.ResultBusy, script.ReleaseSharedSafe, "k", "0", "s1")
	expect(t, s, script.ResultOK, script.ReleaseExclusiveSafe, "k", "0", "x1")
	exists(t, s, "k", false)
}

func testSafeShared(t *testing.T, h Harness) {
	defer h.Store.Close()
	s := h.Store

	expect(t, s, script.ResultOK, script.AcquireSharedSafe, "k", "s1", "1000", "10")
	expect(t, s, script.ResultCollision, script.AcquireSharedSafe, "k", "s1", "1001", "10")
	expect(t, s, script.ResultOK, script.AcquireSharedSafe, "k", "s2", "1001", "10")

	// a shared holder can not release as exclusive holder
	expect(t, s, script.ResultBusy, script.ReleaseExclusiveSafe, "k", "0", "s1")
	expect(t, s, script.ResultBusy, script.ReleaseSharedSafe, "k", "0", "s3")

	expect(t, s, script.ResultOK, script.ReleaseSharedSafe, "k", "0", "s1")
	exists(t, s, "k", true)
	expect(t, s, script.ResultOK, script.ReleaseSharedSafe, "k", "0", "s2")
	exists(t, s, "k", false)

	// an exclusive holder blocks shared acquires no matter the time
	expect(t, s, script.ResultOK, script.AcquireExclusiveSafe, "k", "x1", "1000", "10")
	expect(t, s, script.ResultBusy, script.AcquireSharedSafe, "k", "s1", "999999", "10")
	expect(t, s, script.ResultBusy, script.ReleaseSharedSafe, "k", "0", "x1")
}

func testInitOnError(t *testing.T, h Harness) {
	defer h.Store.Close()
	s := h.Store

	cases := []struct {
		name    string
		acquire *script.Script
		aArgs   []string
		release *script.Script
		rArgs   []string
	}{
		{"simple", script.AcquireExclusiveSimple, []string{"10"}, script.ReleaseSharedSimple, []string{"1"}},
		{"id", script.AcquireSharedID, []string{"s1", "10"}, script.ReleaseExclusiveID, []string{"1", "e1"}},
		{"id-shared", script.AcquireSharedID, []string{"s1", "10"}, script.ReleaseSharedID, []string{"1", "s2"}},
		{"safe", script.AcquireSharedSafe, []string{"s1", "1000", "10"}, script.ReleaseExclusiveSafe, []string{"1", "x1"}},
		{"safe-shared", script.AcquireExclusiveSafe, []string{"x1", "1000", "10"}, script.ReleaseSharedSafe, []string{"1", "x1"}},
	}

	for _, c := range cases {
		key := "init-" + c.name
		expect(t, s, script.ResultOK, c.acquire, key, c.aArgs...)
		expect(t, s, script.ResultBusy, c.release, key, c.rArgs...)
		exists(t, s, key, false)
	}

	// a release of a missing key reports the mismatch as well
	expect(t, s, script.ResultBusy, script.ReleaseExclusiveSimple, "missing", "1")
	expect(t, s, script.ResultBusy, script.ReleaseSharedSafe, "missing", "1", "s1")
}

func testKeyExpiry(t *testing.T, h Harness) {
	defer h.Store.Close()
	s := h.Store

	expect(t, s, script.ResultOK, script.AcquireExclusiveSimple, "simple", "5")
	expect(t, s, script.ResultOK, script.AcquireExclusiveID, "id", "e1", "5")
	expect(t, s, script.ResultOK, script.AcquireExclusiveSafe, "safe", "x1", "1000", "5")

	h.Advance(4 * time.Second)
	exists(t, s, "simple", true)
	expect(t, s, script.ResultBusy, script.AcquireExclusiveSimple, "simple", "5")

	h.Advance(2 * time.Second)
	exists(t, s, "simple", false)
	exists(t, s, "id", false)
	exists(t, s, "safe", false)

	// expired holders can not release any more
	expect(t, s, script.ResultBusy, script.ReleaseExclusiveID, "id", "0", "e1")

	expect(t, s, script.ResultOK, script.AcquireExclusiveSimple, "simple", "5")
	expect(t, s, script.ResultOK, script.AcquireExclusiveSafe, "safe", "x2", "1006", "5")

	// shared acquires refresh the TTL of the whole key
	expect(t, s, script.ResultOK, script.AcquireSharedSimple, "shared", "5")
	h.Advance(4 * time.Second)
	expect(t, s, script.ResultOK, script.AcquireSharedSimple, "shared", "5")
	h.Advance(4 * time.Second)
	exists(t, s, "shared", true)
}

func testWrongType(t *testing.T, h Harness) {
	defer h.Store.Close()
	s := h.Store

	expect(t, s, script.ResultOK, script.AcquireExclusiveSimple, "k", "10")

	_, err := script.AcquireExclusiveID.Execute(context.Background(), s, "k", "e1", "10")
	if err == nil {
		t.Fatalf("Expected an error when mixing lock modes on one key")
	}
	if store.IsNoScript(err) {
		t.Errorf("Expected the script error, not a cache miss: %v", err)
	}

	// the record is unchanged
	expect(t, s, script.ResultOK, script.ReleaseExclusiveSimple, "k", "0")
}

func testConcurrentCounter(t *testing.T, h Harness) {
	defer h.Store.Close()
	s := h.Store

	const workers = 8
	const rounds = 50

	var wg sync.WaitGroup
	wg.Add(workers)
	errs := make(chan error, workers*rounds*2)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if _, err := script.AcquireSharedSimple.Execute(context.Background(), s, "k", "60"); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent acquire failed: %v", err)
	}

	// every increment was applied exactly once
	for i := 0; i < workers*rounds-1; i++ {
		expect(t, s, script.ResultOK, script.ReleaseSharedSimple, "k", "0")
	}
	exists(t, s, "k", true)
	expect(t, s, script.ResultOK, script.ReleaseSharedSimple, "k", "0")
	exists(t, s, "k", false)
}
