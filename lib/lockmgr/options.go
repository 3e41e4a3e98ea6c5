package lockmgr

import (
	"fmt"
	"time"
)

// Defaults used when an option is not set
const (
	DefaultKey           = "redis-2way-lock"
	DefaultTimeout       = 30 * time.Second
	DefaultExpire        = 300 * time.Second
	DefaultRetryInterval = 10 * time.Millisecond
	DefaultMode          = ModeSafeUUID
)

// Options holds the configuration of a lock instance.
type Options struct {
	// Key of the lock record in the store.
	Key string
	// Timeout is the maximum time Acquire waits. At least one attempt is made,
	// so a zero Timeout makes Acquire a try-lock.
	Timeout time.Duration
	// Expire is the lease of a held lock, enforced by the store through the key's TTL.
	// It must be a positive whole number of seconds.
	Expire time.Duration
	// RetryInterval is the fixed pause between two acquire attempts.
	RetryInterval time.Duration
	// InitOnError makes a release that finds a foreign or broken record clear the key.
	InitOnError bool
	// Mode selects the lock algorithm in a Registry (simple, uuid, safe_uuid).
	Mode string
}

// Option changes a single lock option
type Option func(*Options)

// DefaultOptions returns the global defaults.
func DefaultOptions() Options {
	return Options{
		Key:           DefaultKey,
		Timeout:       DefaultTimeout,
		Expire:        DefaultExpire,
		RetryInterval: DefaultRetryInterval,
		InitOnError:   false,
		Mode:          DefaultMode,
	}
}

// NewOptions applies opts on top of the global defaults.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	o.apply(opts...)
	return o
}

func (o *Options) apply(opts ...Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
}

// validate checks the options before the store is contacted
func (o *Options) validate() error {
	if o.Expire <= 0 || o.Expire%time.Second != 0 {
		return newError(ErrCodeConfiguration, fmt.Sprintf("expire must be a positive whole number of seconds, got %s", o.Expire))
	}
	if o.Key == "" {
		return newError(ErrCodeConfiguration, "key must not be empty")
	}
	return nil
}

// expireSeconds returns the lease in seconds, formatted for a script argument
func (o *Options) expireSeconds() int64 {
	return int64(o.Expire / time.Second)
}

// WithKey sets the key of the lock record
func WithKey(key string) Option {
	return func(o *Options) {
		o.Key = key
	}
}

// WithTimeout sets how long Acquire waits for the lock
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithExpire sets the lease of the lock (whole seconds)
func WithExpire(expire time.Duration) Option {
	return func(o *Options) {
		o.Expire = expire
	}
}

// WithRetryInterval sets the pause between acquire attempts
func WithRetryInterval(interval time.Duration) Option {
	return func(o *Options) {
		o.RetryInterval = interval
	}
}

// WithInitOnError sets whether a failed release clears the key
func WithInitOnError(initOnError bool) Option {
	return func(o *Options) {
		o.InitOnError = initOnError
	}
}

// WithMode selects the lock algorithm
func WithMode(mode string) Option {
	return func(o *Options) {
		o.Mode = mode
	}
}
