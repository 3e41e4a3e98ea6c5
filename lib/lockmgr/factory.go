package lockmgr

import (
	"github.com/ValentinKolb/xslock/lib/store"
)

// FactoryConfig configures a Factory
type FactoryConfig struct {
	// Registry resolves the mode, the process wide registry if nil.
	Registry *Registry
	// Prefix and Suffix are added around every key.
	Prefix string
	Suffix string
	// Mode of all locks of the factory, DefaultMode if empty.
	Mode string
	// Defaults are applied on top of the global defaults for every lock.
	Defaults []Option
}

// Factory creates locks on one store with shared settings.
// It is safe for concurrent use.
type Factory struct {
	store    store.IStore
	registry *Registry
	prefix   string
	suffix   string
	mode     string
	defaults []Option
}

// NewFactory creates a lock factory.
func NewFactory(s store.IStore, config FactoryConfig) *Factory {
	f := &Factory{
		store:    s,
		registry: config.Registry,
		prefix:   config.Prefix,
		suffix:   config.Suffix,
		mode:     config.Mode,
		defaults: append([]Option(nil), config.Defaults...),
	}
	if f.registry == nil {
		f.registry = defaultRegistry
	}
	if f.mode == "" {
		f.mode = DefaultMode
	}
	return f
}

// Key returns the store key for a lock key: prefix + key + suffix.
// An empty key is replaced by the key of the factory defaults or DefaultKey.
func (f *Factory) Key(key string) string {
	if key == "" {
		key = f.options(nil).Key
	}
	return f.prefix + key + f.suffix
}

// Mode returns the mode of the locks created by the factory.
func (f *Factory) Mode() string {
	return f.mode
}

// ExclusiveLock creates an exclusive lock. opts take precedence over the factory
// defaults, which take precedence over the global defaults.
func (f *Factory) ExclusiveLock(opts ...Option) (ILock, error) {
	return f.registry.newLock(f.store, KindExclusive, f.lockOptions(opts))
}

// SharedLock creates a shared lock. opts take precedence over the factory
// defaults, which take precedence over the global defaults.
func (f *Factory) SharedLock(opts ...Option) (ILock, error) {
	return f.registry.newLock(f.store, KindShared, f.lockOptions(opts))
}

// XLock is short for ExclusiveLock.
func (f *Factory) XLock(opts ...Option) (ILock, error) {
	return f.ExclusiveLock(opts...)
}

// SLock is short for SharedLock.
func (f *Factory) SLock(opts ...Option) (ILock, error) {
	return f.SharedLock(opts...)
}

// options merges global defaults, factory defaults and opts
func (f *Factory) options(opts []Option) Options {
	o := DefaultOptions()
	o.apply(f.defaults...)
	o.apply(opts...)
	if o.Key == "" {
		o.Key = DefaultKey
	}
	return o
}

// lockOptions returns the options of a new lock: the key gets prefix and suffix and
// the mode is always the factory's mode
func (f *Factory) lockOptions(opts []Option) Options {
	o := f.options(opts)
	o.Key = f.prefix + o.Key + f.suffix
	o.Mode = f.mode
	return o
}
