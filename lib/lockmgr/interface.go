package lockmgr

import "context"

// State is the local state of a lock instance
type State uint32

const (
	StateIdle      State = iota // constructed, or the last acquire failed
	StateAcquiring              // Acquire is running
	StateHeld                   // acquired, waiting for Release
	StateReleased               // released, the instance can not be used again
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateHeld:
		return "held"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// ILock is a single attempt to hold an exclusive or shared lock on a key.
// An instance moves from idle over acquiring to held and finally released, it can not
// be acquired again after release.
type ILock interface {
	// Acquire blocks until the lock is held or the timeout has passed.
	// It returns an ErrConfiguration error for invalid options, ErrIntegrity if the
	// instance is not idle, ErrTimeout if the lock could not be acquired in time and
	// ErrBackend if the store failed. On error the instance stays idle.
	Acquire(ctx context.Context) (err error)

	// Release gives the lock back. It returns ErrIntegrity if the lock is not held and
	// ErrMissing if the record in the store did not belong to this instance any more
	// (e.g. the lease expired). The instance is released in both the success and the
	// missing case.
	Release(ctx context.Context) (err error)

	// State returns the current local state.
	State() (state State)

	// Key returns the key of the lock record.
	Key() (key string)

	// Variant returns the algorithm and kind of the lock.
	Variant() (variant *Variant)
}
