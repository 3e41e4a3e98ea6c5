// Package lockmgr implements exclusive (read-write) and shared (read-only) locks on top
// of a store.IStore that runs atomic scripts. Any number of processes sharing the same
// store can serialize or share access to a resource identified by a key.
//
// The lockmgr keeps no state of its own besides the lock instances. Everything that has
// to be agreed upon between processes lives in the store and is only ever changed by the
// scripts of the script package, each one a single atomic read-decide-write.
//
// Core Functionality:
//   - Exclusive and shared locks with three algorithms (modes)
//   - Polling acquisition with a timeout and a fixed retry interval
//   - Store enforced leases (the key's TTL) protecting against crashed holders
//   - Ownership verification on release (uuid and safe_uuid modes)
//
// Modes:
//
//	- simple: the record is a counter. -1 means exclusively held, a positive value is
//	  the number of shared holders. Cheap, but a release can not tell whether it
//	  released its own lock.
//
//	- uuid: the record is a set of random tokens, tagged 'e' (exclusive) or 's' (shared).
//	  A release only succeeds with the token of the acquire.
//
//	- safe_uuid (default): the record is a sorted set. An exclusive holder has score 0,
//	  every shared holder has its own expiry (server time) as score. An exclusive
//	  acquire takes over a key whose shared leases are all over, even if the key's TTL
//	  was refreshed by later shared holders. Times are taken from the store's clock:
//	  the store time is sampled once per Acquire and extrapolated with the local
//	  monotonic clock (rounded down for exclusive, up for shared locks).
//
// State Machine:
//
//	Every lock instance moves idle -> acquiring -> held -> released. Acquire is only
//	allowed when idle, Release only when held, everything else is an ErrIntegrity
//	error. A failed Acquire returns the instance to idle. A released instance can not
//	be acquired again, create a new one instead.
//
// Errors:
//
//	All errors are *Error values with a code. Use errors.Is with ErrConfiguration,
//	ErrIntegrity, ErrMissing, ErrTimeout and ErrBackend. ErrMissing is also an
//	ErrIntegrity: the record in the store did not belong to the releasing instance
//	any more, e.g. because its lease expired. With InitOnError the release then clears
//	the key, which repairs a desynchronized record at the cost of dropping foreign holders.
//
// Usage Example:
//
//	// Create a factory on a redis backed store
//	factory := lockmgr.NewFactory(st, lockmgr.FactoryConfig{Prefix: "locks:"})
//
//	l, err := factory.SharedLock(lockmgr.WithKey("report"), lockmgr.WithExpire(60*time.Second))
//	if err != nil {
//	    // Handle error
//	}
//
//	err = lockmgr.WithLock(ctx, l, func(ctx context.Context) error {
//	    // Read the resource, other shared holders may do the same
//	    return nil
//	})
//
// Thread Safety:
//
//	Factories and registries are safe for concurrent use. A lock instance is meant to
//	be used by one goroutine; concurrent misuse is detected and reported as ErrIntegrity.
//
// Fairness:
//
//	Waiters poll. There is no queue, so there is no FIFO order and no protection from
//	starvation. Leases are not renewed, choose an expire longer than the critical section.
package lockmgr
