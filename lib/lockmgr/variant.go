package lockmgr

import (
	"fmt"
	"strconv"

	"github.com/ValentinKolb/xslock/lib/script"
)

// Kind is the lock kind a variant implements
type Kind uint8

const (
	KindExclusive Kind = iota // at most one holder, excludes shared holders
	KindShared                // many holders, excludes an exclusive holder
)

func (k Kind) String() string {
	switch k {
	case KindExclusive:
		return "exclusive"
	case KindShared:
		return "shared"
	default:
		return "unknown"
	}
}

// TokenStrategy defines how a variant proves ownership
type TokenStrategy uint8

const (
	TokenNone        TokenStrategy = iota // no token, the record is a plain counter
	TokenRandom                           // random token per acquire
	TokenRandomRetry                      // random token, a new one when the script reports a collision
)

// ClockStrategy defines how a variant derives the server time it passes to the acquire script
type ClockStrategy uint8

const (
	ClockNone  ClockStrategy = iota // the acquire script takes no time argument
	ClockFloor                      // server time at start + floor(local elapsed seconds)
	ClockCeil                       // server time at start + ceil(local elapsed seconds)
)

// Variant binds one lock algorithm and kind to its pair of scripts.
//
// The script arguments are derived from the strategies:
//
//	acquire: [token] [server time] expire
//	release: initOnError [token]
//
// where the bracketed arguments are only passed if the variant has a token or clock strategy.
type Variant struct {
	Name        string
	Kind        Kind
	Acquire     *script.Script
	Release     *script.Script
	Token       TokenStrategy
	TokenPrefix string // prepended to every token (e.g. 'e' or 's' to tag the member)
	Clock       ClockStrategy
}

// The six built-in variants
var (
	SimpleExclusive = &Variant{
		Name:    "simple_exclusive",
		Kind:    KindExclusive,
		Acquire: script.AcquireExclusiveSimple,
		Release: script.ReleaseExclusiveSimple,
	}
	SimpleShared = &Variant{
		Name:    "simple_shared",
		Kind:    KindShared,
		Acquire: script.AcquireSharedSimple,
		Release: script.ReleaseSharedSimple,
	}
	IdentifiedExclusive = &Variant{
		Name:        "uuid_exclusive",
		Kind:        KindExclusive,
		Acquire:     script.AcquireExclusiveID,
		Release:     script.ReleaseExclusiveID,
		Token:       TokenRandom,
		TokenPrefix: "e",
	}
	IdentifiedShared = &Variant{
		Name:        "uuid_shared",
		Kind:        KindShared,
		Acquire:     script.AcquireSharedID,
		Release:     script.ReleaseSharedID,
		Token:       TokenRandomRetry,
		TokenPrefix: "s",
	}
	SafeIdentifiedExclusive = &Variant{
		Name:    "safe_uuid_exclusive",
		Kind:    KindExclusive,
		Acquire: script.AcquireExclusiveSafe,
		Release: script.ReleaseExclusiveSafe,
		Token:   TokenRandom,
		Clock:   ClockFloor,
	}
	SafeIdentifiedShared = &Variant{
		Name:    "safe_uuid_shared",
		Kind:    KindShared,
		Acquire: script.AcquireSharedSafe,
		Release: script.ReleaseSharedSafe,
		Token:   TokenRandomRetry,
		Clock:   ClockCeil,
	}
)

func (v *Variant) String() string {
	return v.Name
}

// validate checks that the variant can act as a lock of the given kind
func (v *Variant) validate(kind Kind) error {
	if v == nil {
		return newError(ErrCodeConfiguration, fmt.Sprintf("missing %s variant", kind))
	}
	if v.Kind != kind {
		return newError(ErrCodeConfiguration, fmt.Sprintf("variant %s is %s, expected %s", v.Name, v.Kind, kind))
	}
	if v.Acquire == nil || v.Release == nil {
		return newError(ErrCodeConfiguration, fmt.Sprintf("variant %s needs an acquire and a release script", v.Name))
	}
	if v.Token == TokenNone && v.Clock != ClockNone {
		return newError(ErrCodeConfiguration, fmt.Sprintf("variant %s uses the server clock without a token", v.Name))
	}
	return nil
}

// newToken returns a fresh ownership token, "" if the variant has none
func (v *Variant) newToken() string {
	if v.Token == TokenNone {
		return ""
	}
	return v.TokenPrefix + generateToken()
}

// acquireArgs builds the ARGV of the acquire script
func (v *Variant) acquireArgs(token string, serverNow int64, expire int64) []string {
	args := make([]string, 0, 3)
	if v.Token != TokenNone {
		args = append(args, token)
	}
	if v.Clock != ClockNone {
		args = append(args, strconv.FormatInt(serverNow, 10))
	}
	return append(args, strconv.FormatInt(expire, 10))
}

// releaseArgs builds the ARGV of the release script
func (v *Variant) releaseArgs(initOnError bool, token string) []string {
	flag := "0"
	if initOnError {
		flag = "1"
	}
	if v.Token == TokenNone {
		return []string{flag}
	}
	return []string{flag, token}
}
