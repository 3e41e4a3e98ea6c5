package lstore

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/xslock/lib/script"
	"github.com/ValentinKolb/xslock/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("store")

const (
	// gcInterval is the number of script runs between two sweeps over expired records
	gcInterval = 1024
)

// Clock returns the current time of the store
type Clock func() time.Time

// Option configures a local store
type Option func(*storeImpl)

// WithClock replaces the wall clock of the store. The clock is used for TTLs and is
// what Time returns, so a shifted clock simulates a skewed server.
func WithClock(clock Clock) Option {
	return func(s *storeImpl) {
		s.clock = clock
	}
}

type storeImpl struct {
	records *xsync.MapOf[string, *record]
	scripts *xsync.MapOf[string, *script.Script] // script cache (by hash)
	clock   Clock
	runs    atomic.Uint64
	closed  atomic.Bool
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works inside one process.
// It runs Go versions of the scripts of the script package, every script atomically
// on its key.
func NewLocalStore(opts ...Option) store.IStore {
	s := &storeImpl{
		records: xsync.NewMapOf[string, *record](),
		scripts: xsync.NewMapOf[string, *script.Script](),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run executes the Go version of a script on a single key.
//
// Thread-safety: the whole read-decide-write runs inside MapOf.Compute, which holds the
// lock of the key's bucket. Concurrent scripts on the same key are therefore serialized.
func (s *storeImpl) run(sc *script.Script, keys []string, args []string) (int64, error) {
	op, ok := natives[sc.Name]
	if !ok {
		return 0, store.NewError(store.RetCUnsupportedOperation, fmt.Sprintf("script %s is not supported", sc.Name))
	}
	if len(keys) != 1 {
		return 0, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("script %s expects 1 key, got %d", sc.Name, len(keys)))
	}
	if len(args) != op.argc {
		return 0, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("script %s expects %d arguments, got %d", sc.Name, op.argc, len(args)))
	}

	var (
		result int64
		runErr error
		now    = s.clock()
	)

	s.records.Compute(keys[0], func(old *record, loaded bool) (*record, bool) {
		current := old
		if loaded && old.expired(now) {
			current = nil
		}

		next, res, err := op.fn(current.clone(), now, args)
		if err != nil {
			runErr = err
			return old, !loaded
		}

		result = res
		if next == nil {
			return nil, true
		}
		return next, false
	})

	if runErr != nil {
		return 0, runErr
	}

	if s.runs.Add(1)%gcInterval == 0 {
		s.collect(now)
	}
	return result, nil
}

// collect removes all records whose TTL has passed
func (s *storeImpl) collect(now time.Time) {
	removed := 0
	s.records.Range(func(key string, rec *record) bool {
		if rec.expired(now) {
			s.records.Compute(key, func(old *record, loaded bool) (*record, bool) {
				if loaded && old.expired(now) {
					removed++
					return nil, true
				}
				return old, !loaded
			})
		}
		return true
	})
	if removed > 0 {
		log.Debugf("removed %d expired records", removed)
	}
}

func (s *storeImpl) checkOpen(ctx context.Context) error {
	if s.closed.Load() {
		return store.NewError(store.RetCConnection, "store is closed")
	}
	if err := ctx.Err(); err != nil {
		return store.WrapError(store.RetCConnection, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) EvalSha(ctx context.Context, sha1 string, keys []string, args ...string) (int64, error) {
	if err := s.checkOpen(ctx); err != nil {
		return 0, err
	}
	sc, ok := s.scripts.Load(sha1)
	if !ok {
		return 0, store.NewError(store.RetCNoScript, "NOSCRIPT No matching script. Please use EVAL.")
	}
	return s.run(sc, keys, args)
}

func (s *storeImpl) Eval(ctx context.Context, source string, keys []string, args ...string) (int64, error) {
	if err := s.checkOpen(ctx); err != nil {
		return 0, err
	}
	sc, ok := script.LookupSource(source)
	if !ok {
		return 0, store.NewError(store.RetCUnsupportedOperation, "the local store only runs the lock scripts")
	}
	if _, loaded := s.scripts.LoadOrStore(sc.Hash, sc); !loaded {
		log.Debugf("cached script %s", sc.Name)
	}
	return s.run(sc, keys, args)
}

func (s *storeImpl) Time(ctx context.Context) (time.Time, error) {
	if err := s.checkOpen(ctx); err != nil {
		return time.Time{}, err
	}
	return s.clock(), nil
}

func (s *storeImpl) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.checkOpen(ctx); err != nil {
		return false, err
	}
	rec, ok := s.records.Load(key)
	return ok && !rec.expired(s.clock()), nil
}

func (s *storeImpl) Delete(ctx context.Context, key string) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	s.records.Delete(key)
	return nil
}

func (s *storeImpl) Close() error {
	s.closed.Store(true)
	return nil
}
