package lockmgr

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/xslock/lib/script"
	"github.com/ValentinKolb/xslock/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("lockmgr")

type lockImpl struct {
	store   store.IStore
	variant *Variant
	opts    Options
	metrics *lockMetrics
	state   atomic.Uint32

	// token is written by the goroutine that moved the lock to acquiring and read by
	// the one that moves it to released. The atomic state orders both accesses.
	token string

	// local clock, replaced in tests
	now func() time.Time
}

// NewLock creates a lock instance for a variant. The options are applied on top of the
// defaults, the mode option is ignored since the variant is given explicitly.
// Options are validated by Acquire, not here.
func NewLock(s store.IStore, variant *Variant, opts ...Option) ILock {
	return newLockImpl(s, variant, NewOptions(opts...))
}

func newLockImpl(s store.IStore, variant *Variant, opts Options) *lockImpl {
	l := &lockImpl{
		store:   s,
		variant: variant,
		opts:    opts,
		now:     time.Now,
	}
	if variant != nil {
		l.metrics = newLockMetrics(variant)
	}
	return l
}

// ExclusiveLock creates an exclusive lock with the mode selected by the options
// (DefaultMode if not set), resolved in the default registry.
func ExclusiveLock(s store.IStore, opts ...Option) (ILock, error) {
	return defaultRegistry.newLock(s, KindExclusive, NewOptions(opts...))
}

// SharedLock creates a shared lock with the mode selected by the options
// (DefaultMode if not set), resolved in the default registry.
func SharedLock(s store.IStore, opts ...Option) (ILock, error) {
	return defaultRegistry.newLock(s, KindShared, NewOptions(opts...))
}

// WithLock acquires l, runs fn and releases l on every exit path of fn, panics included.
// The release uses a context that is not canceled together with ctx.
// An error of fn and an error of the release are both returned.
func WithLock(ctx context.Context, l ILock, fn func(ctx context.Context) error) (err error) {
	if err = l.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		if releaseErr := l.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
	}()
	return fn(ctx)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lockmgr/interface.go)
// --------------------------------------------------------------------------

func (l *lockImpl) Acquire(ctx context.Context) error {
	if l.variant == nil {
		return newError(ErrCodeConfiguration, "lock has no variant")
	}
	if err := l.variant.validate(l.variant.Kind); err != nil {
		return err
	}
	if err := l.opts.validate(); err != nil {
		return err
	}
	if !l.state.CompareAndSwap(uint32(StateIdle), uint32(StateAcquiring)) {
		return newError(ErrCodeIntegrity, fmt.Sprintf("can not acquire a lock that is %s", l.State()))
	}

	token, err := l.acquire(ctx)
	if err != nil {
		l.state.Store(uint32(StateIdle))
		return err
	}

	l.token = token
	l.state.Store(uint32(StateHeld))
	return nil
}

func (l *lockImpl) Release(ctx context.Context) error {
	if !l.state.CompareAndSwap(uint32(StateHeld), uint32(StateReleased)) {
		return newError(ErrCodeIntegrity, fmt.Sprintf("can not release a lock that is %s", l.State()))
	}
	token := l.token
	l.token = ""

	v := l.variant
	result, err := v.Release.Execute(ctx, l.store, l.opts.Key, v.releaseArgs(l.opts.InitOnError, token)...)
	if err != nil {
		return backendError(fmt.Sprintf("release %s lock on %s", v.Name, l.opts.Key), err)
	}
	l.metrics.released.Inc()

	if result != script.ResultOK {
		l.metrics.missing.Inc()
		if l.opts.InitOnError {
			log.Warningf("%s lock on %s was not held any more, record cleared", v.Name, l.opts.Key)
		} else {
			log.Warningf("%s lock on %s was not held any more", v.Name, l.opts.Key)
		}
		return newError(ErrCodeMissing, fmt.Sprintf("%s lock on %s was not held any more", v.Name, l.opts.Key))
	}

	log.Debugf("released %s lock on %s", v.Name, l.opts.Key)
	return nil
}

func (l *lockImpl) State() State {
	return State(l.state.Load())
}

func (l *lockImpl) Key() string {
	return l.opts.Key
}

func (l *lockImpl) Variant() *Variant {
	return l.variant
}

// --------------------------------------------------------------------------
// Acquire loop (shared by all variants)
// --------------------------------------------------------------------------

// acquire polls the acquire script until it succeeds or the timeout has passed.
// It returns the token the lock was acquired with.
func (l *lockImpl) acquire(ctx context.Context) (string, error) {
	v := l.variant

	// safe variants sample the server clock once and extrapolate it locally
	var clock serverClock
	if v.Clock != ClockNone {
		serverTime, err := l.store.Time(ctx)
		if err != nil {
			return "", backendError("read server time", err)
		}
		clock = newServerClock(serverTime, l.now(), v.Clock)
	}

	start := l.now()
	deadline := start.Add(l.opts.Timeout)
	expire := l.opts.expireSeconds()
	token := v.newToken()

	for attempts := 1; ; attempts++ {
		now := l.now()
		args := v.acquireArgs(token, clock.at(now), expire)

		result, err := v.Acquire.Execute(ctx, l.store, l.opts.Key, args...)
		if err != nil {
			return "", backendError(fmt.Sprintf("acquire %s lock on %s", v.Name, l.opts.Key), err)
		}

		switch {
		case result == script.ResultOK:
			l.metrics.observeAcquired(start, attempts)
			log.Debugf("acquired %s lock on %s after %d attempts", v.Name, l.opts.Key, attempts)
			return token, nil
		case result == script.ResultCollision && v.Token == TokenRandomRetry:
			token = v.newToken()
		}

		if !l.now().Before(deadline) {
			l.metrics.observeTimeout(attempts)
			log.Debugf("timeout acquiring %s lock on %s after %d attempts", v.Name, l.opts.Key, attempts)
			return "", newError(ErrCodeTimeout, fmt.Sprintf("%s lock on %s not acquired within %s", v.Name, l.opts.Key, l.opts.Timeout))
		}

		if err := sleepContext(ctx, l.opts.RetryInterval); err != nil {
			return "", backendError(fmt.Sprintf("acquire %s lock on %s", v.Name, l.opts.Key), err)
		}
	}
}
