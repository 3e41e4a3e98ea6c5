package lockmgr

import (
	"fmt"
	"sort"

	"github.com/ValentinKolb/xslock/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// Built-in modes
const (
	ModeSimple   = "simple"    // counter record, no ownership check
	ModeUUID     = "uuid"      // set of tokens, ownership checked on release
	ModeSafeUUID = "safe_uuid" // sorted set of tokens with per holder leases of shared locks
)

// ModePair is the exclusive and the shared variant of one mode
type ModePair struct {
	Exclusive *Variant
	Shared    *Variant
}

// Registry maps mode names to their variants. It is safe for concurrent use.
type Registry struct {
	modes *xsync.MapOf[string, ModePair]
}

// defaultRegistry is used by ExclusiveLock, SharedLock, RegisterMode and factories
// without an explicit registry
var defaultRegistry = NewDefaultRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modes: xsync.NewMapOf[string, ModePair](),
	}
}

// NewDefaultRegistry creates a registry with the built-in modes simple, uuid and safe_uuid.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for mode, pair := range map[string]ModePair{
		ModeSimple:   {SimpleExclusive, SimpleShared},
		ModeUUID:     {IdentifiedExclusive, IdentifiedShared},
		ModeSafeUUID: {SafeIdentifiedExclusive, SafeIdentifiedShared},
	} {
		if err := r.Register(mode, pair.Exclusive, pair.Shared); err != nil {
			panic(err)
		}
	}
	return r
}

// DefaultRegistry returns the process wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// RegisterMode registers a mode in the process wide registry.
func RegisterMode(mode string, exclusive, shared *Variant) error {
	return defaultRegistry.Register(mode, exclusive, shared)
}

// Register adds or replaces a mode. It fails with an ErrConfiguration error if exclusive
// is not an exclusive variant or shared is not a shared variant.
func (r *Registry) Register(mode string, exclusive, shared *Variant) error {
	if mode == "" {
		return newError(ErrCodeConfiguration, "mode name must not be empty")
	}
	if err := exclusive.validate(KindExclusive); err != nil {
		return err
	}
	if err := shared.validate(KindShared); err != nil {
		return err
	}
	r.modes.Store(mode, ModePair{Exclusive: exclusive, Shared: shared})
	log.Debugf("registered mode %s (%s, %s)", mode, exclusive.Name, shared.Name)
	return nil
}

// Lookup returns the variants of a mode.
func (r *Registry) Lookup(mode string) (ModePair, error) {
	pair, ok := r.modes.Load(mode)
	if !ok {
		return ModePair{}, newError(ErrCodeConfiguration, fmt.Sprintf("unknown lock mode %q", mode))
	}
	return pair, nil
}

// Modes returns the sorted names of all registered modes.
func (r *Registry) Modes() []string {
	modes := make([]string, 0, r.modes.Size())
	r.modes.Range(func(mode string, _ ModePair) bool {
		modes = append(modes, mode)
		return true
	})
	sort.Strings(modes)
	return modes
}

// newLock resolves opts.Mode and creates a lock of the given kind
func (r *Registry) newLock(s store.IStore, kind Kind, opts Options) (ILock, error) {
	pair, err := r.Lookup(opts.Mode)
	if err != nil {
		return nil, err
	}
	variant := pair.Exclusive
	if kind == KindShared {
		variant = pair.Shared
	}
	return newLockImpl(s, variant, opts), nil
}
