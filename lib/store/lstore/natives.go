package lstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ValentinKolb/xslock/lib/script"
	"github.com/ValentinKolb/xslock/lib/store"
)

// native is the Go version of a lock script.
// It gets a private copy of the current record (nil if the key is absent or expired)
// and returns the record to store (nil deletes the key) and the script result.
// On error the stored record is left untouched.
type native func(rec *record, now time.Time, args []string) (next *record, result int64, err error)

// natives maps a script name to its Go version
var natives = map[string]struct {
	argc int
	fn   native
}{
	script.NameAcquireExclusiveSimple: {1, acquireExclusiveSimple},
	script.NameReleaseExclusiveSimple: {1, releaseExclusiveSimple},
	script.NameAcquireSharedSimple:    {1, acquireSharedSimple},
	script.NameReleaseSharedSimple:    {1, releaseSharedSimple},
	script.NameAcquireExclusiveID:     {2, acquireExclusiveID},
	script.NameReleaseExclusiveID:     {2, releaseExclusiveID},
	script.NameAcquireSharedID:        {2, acquireSharedID},
	script.NameReleaseSharedID:        {2, releaseSharedID},
	script.NameAcquireExclusiveSafe:   {3, acquireExclusiveSafe},
	script.NameReleaseExclusiveSafe:   {2, releaseExclusiveSafe},
	script.NameAcquireSharedSafe:      {3, acquireSharedSafe},
	script.NameReleaseSharedSafe:      {2, releaseSharedSafe},
}

// mismatch is the common tail of all release scripts: the record did not match the
// caller's ownership, so it is cleared if initOnError is "1" and kept otherwise.
func mismatch(rec *record, initOnError string) (*record, int64, error) {
	if initOnError == "1" {
		return nil, script.ResultBusy, nil
	}
	return rec, script.ResultBusy, nil
}

// acquired sets the TTL of a freshly written record and reports success
func acquired(rec *record, now time.Time, expire string) (*record, int64, error) {
	rec, err := rec.expire(now, expire)
	if err != nil {
		return nil, 0, err
	}
	return rec, script.ResultOK, nil
}

// --------------------------------------------------------------------------
// simple mode
// --------------------------------------------------------------------------

func acquireExclusiveSimple(rec *record, now time.Time, args []string) (*record, int64, error) {
	if err := rec.expect(typeCounter); err != nil {
		return nil, 0, err
	}
	if rec == nil || rec.counter == 0 {
		return acquired(newCounter(-1), now, args[0])
	}
	return rec, script.ResultBusy, nil
}

func releaseExclusiveSimple(rec *record, _ time.Time, args []string) (*record, int64, error) {
	if err := rec.expect(typeCounter); err != nil {
		return nil, 0, err
	}
	if rec != nil && rec.counter == -1 {
		return nil, script.ResultOK, nil
	}
	return mismatch(rec, args[0])
}

func acquireSharedSimple(rec *record, now time.Time, args []string) (*record, int64, error) {
	if err := rec.expect(typeCounter); err != nil {
		return nil, 0, err
	}
	if rec == nil {
		return acquired(newCounter(1), now, args[0])
	}
	if rec.counter >= 0 {
		rec.counter++
		return acquired(rec, now, args[0])
	}
	return rec, script.ResultBusy, nil
}

func releaseSharedSimple(rec *record, _ time.Time, args []string) (*record, int64, error) {
	if err := rec.expect(typeCounter); err != nil {
		return nil, 0, err
	}
	if rec != nil && rec.counter > 0 {
		if rec.counter == 1 {
			return nil, script.ResultOK, nil
		}
		rec.counter--
		return rec, script.ResultOK, nil
	}
	return mismatch(rec, args[0])
}

// --------------------------------------------------------------------------
// id mode
// --------------------------------------------------------------------------

func acquireExclusiveID(rec *record, now time.Time, args []string) (*record, int64, error) {
	if err := rec.expect(typeSet); err != nil {
		return nil, 0, err
	}
	if rec.size() == 0 {
		rec = newMembers(typeSet)
		rec.members[args[0]] = 0
		return acquired(rec, now, args[1])
	}
	return rec, script.ResultBusy, nil
}

func releaseExclusiveID(rec *record, _ time.Time, args []string) (*record, int64, error) {
	if err := rec.expect(typeSet); err != nil {
		return nil, 0, err
	}
	if rec.size() == 1 && rec.has(args[1]) {
		return nil, script.ResultOK, nil
	}
	return mismatch(rec, args[0])
}

func acquireSharedID(rec *record, now time.Time, args []string) (*record, int64, error) {
	if err := rec.expect(typeSet); err != nil {
		return nil, 0, err
	}
	shared := true
	if rec.size() == 1 {
		for member := range rec.members {
			shared = len(member) > 0 && member[0] == 's'
		}
	}
	if !shared {
		return rec, script.ResultBusy, nil
	}
	if rec.has(args[0]) {
		return rec, script.ResultCollision, nil
	}
	if rec == nil {
		rec = newMembers(typeSet)
	}
	rec.members[args[0]] = 0
	return acquired(rec, now, args[1])
}

func releaseSharedID(rec *record, _ time.Time, args []string) (*record, int64, error) {
	if err := rec.expect(typeSet); err != nil {
		return nil, 0, err
	}
	if rec.has(args[1]) {
		if rec.size() == 1 {
			return nil, script.ResultOK, nil
		}
		delete(rec.members, args[1])
		return rec, script.ResultOK, nil
	}
	return mismatch(rec, args[0])
}

// --------------------------------------------------------------------------
// safe mode
// --------------------------------------------------------------------------

func acquireExclusiveSafe(rec *record, now time.Time, args []string) (*record, int64, error) {
	if err := rec.expect(typeZSet); err != nil {
		return nil, 0, err
	}
	free := rec.size() == 0
	if !free {
		if top := rec.top(); top != 0 {
			// a shared holder whose lease is over at the caller's server time
			serverNow, err := strconv.ParseFloat(args[1], 64)
			free = err == nil && top < serverNow
		}
	}
	if !free {
		return rec, script.ResultBusy, nil
	}
	rec = newMembers(typeZSet)
	rec.members[args[0]] = 0
	return acquired(rec, now, args[2])
}

func releaseExclusiveSafe(rec *record, _ time.Time, args []string) (*record, int64, error) {
	if err := rec.expect(typeZSet); err != nil {
		return nil, 0, err
	}
	if rec.size() == 1 {
		if score, ok := rec.members[args[1]]; ok && score == 0 {
			return nil, script.ResultOK, nil
		}
	}
	return mismatch(rec, args[0])
}

func acquireSharedSafe(rec *record, now time.Time, args []string) (*record, int64, error) {
	if err := rec.expect(typeZSet); err != nil {
		return nil, 0, err
	}
	if rec.size() != 0 && rec.bottom() == 0 {
		return rec, script.ResultBusy, nil
	}
	if rec.has(args[0]) {
		return rec, script.ResultCollision, nil
	}
	serverNow, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return nil, 0, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("invalid server time %q", args[1]))
	}
	expire, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return nil, 0, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("invalid expire %q", args[2]))
	}
	if rec == nil {
		rec = newMembers(typeZSet)
	}
	rec.members[args[0]] = serverNow + expire
	return acquired(rec, now, args[2])
}

func releaseSharedSafe(rec *record, _ time.Time, args []string) (*record, int64, error) {
	if err := rec.expect(typeZSet); err != nil {
		return nil, 0, err
	}
	if rec.size() != 0 && rec.bottom() != 0 && rec.has(args[1]) {
		if rec.size() == 1 {
			return nil, script.ResultOK, nil
		}
		delete(rec.members, args[1])
		return rec, script.ResultOK, nil
	}
	return mismatch(rec, args[0])
}
