package lockmgr

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
)

// generateToken creates a new ownership token.
// The token is a random (version 4) UUID, 122 random bits in its textual form.
var generateToken = uuid.NewString

// sleepContext pauses for d or until the context is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// serverClock extrapolates the store's time from one sample and the local monotonic clock.
// It saves a round trip to the store on every retry of the safe variants.
type serverClock struct {
	base     int64     // server time in whole seconds at the time of the sample
	start    time.Time // local time of the sample
	rounding ClockStrategy
}

func newServerClock(serverTime time.Time, localStart time.Time, rounding ClockStrategy) serverClock {
	return serverClock{
		base:     serverTime.Unix(),
		start:    localStart,
		rounding: rounding,
	}
}

// at returns the server time in seconds for the local time now.
// Exclusive locks round the elapsed time down, so an expired shared lease is noticed
// slightly late. Shared locks round it up, so their lease ends slightly late.
func (c serverClock) at(now time.Time) int64 {
	elapsed := now.Sub(c.start).Seconds()
	switch c.rounding {
	case ClockFloor:
		return c.base + int64(math.Floor(elapsed))
	case ClockCeil:
		return c.base + int64(math.Ceil(elapsed))
	default:
		return c.base
	}
}
