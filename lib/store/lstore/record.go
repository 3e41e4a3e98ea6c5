package lstore

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/ValentinKolb/xslock/lib/store"
)

// recordType mirrors the redis data types the lock scripts work with
type recordType uint8

const (
	typeCounter recordType = iota // string holding an integer (simple mode)
	typeSet                       // set of tokens (id mode)
	typeZSet                      // sorted set of tokens (safe mode)
)

func (t recordType) String() string {
	switch t {
	case typeCounter:
		return "counter"
	case typeSet:
		return "set"
	case typeZSet:
		return "zset"
	default:
		return "unknown"
	}
}

// record is the value stored for one key.
// Records are never modified after they were published in the map, scripts work on a clone.
type record struct {
	typ      recordType
	counter  int64
	members  map[string]float64 // set members (score unused) or sorted set members with score
	expireAt time.Time          // zero means no expiry
}

func newCounter(value int64) *record {
	return &record{typ: typeCounter, counter: value}
}

func newMembers(typ recordType) *record {
	return &record{typ: typ, members: make(map[string]float64)}
}

// expired reports whether the record's TTL has passed at now
func (r *record) expired(now time.Time) bool {
	return !r.expireAt.IsZero() && !now.Before(r.expireAt)
}

// clone returns a deep copy of the record, nil for a nil record
func (r *record) clone() *record {
	if r == nil {
		return nil
	}
	c := &record{typ: r.typ, counter: r.counter, expireAt: r.expireAt}
	if r.members != nil {
		c.members = make(map[string]float64, len(r.members))
		for m, score := range r.members {
			c.members[m] = score
		}
	}
	return c
}

// expect fails with a WRONGTYPE error if an existing record has another type
func (r *record) expect(typ recordType) error {
	if r != nil && r.typ != typ {
		return store.NewError(store.RetCInvalidOperation,
			fmt.Sprintf("WRONGTYPE operation against a key holding a %s, expected %s", r.typ, typ))
	}
	return nil
}

// expire sets the TTL of the record like the redis EXPIRE command.
// A non-positive TTL deletes the record, in that case nil is returned.
func (r *record) expire(now time.Time, seconds string) (*record, error) {
	secs, err := strconv.ParseInt(seconds, 10, 64)
	if err != nil {
		return r, store.NewError(store.RetCInvalidOperation, "value is not an integer or out of range")
	}
	if secs <= 0 {
		return nil, nil
	}
	r.expireAt = now.Add(time.Duration(secs) * time.Second)
	return r, nil
}

// top returns the highest score of a sorted set
func (r *record) top() float64 {
	score := math.Inf(-1)
	for _, s := range r.members {
		if s > score {
			score = s
		}
	}
	return score
}

// bottom returns the lowest score of a sorted set
func (r *record) bottom() float64 {
	score := math.Inf(1)
	for _, s := range r.members {
		if s < score {
			score = s
		}
	}
	return score
}

// size returns the number of members of a set or sorted set, 0 for a missing record
func (r *record) size() int {
	if r == nil {
		return 0
	}
	return len(r.members)
}

// has reports whether token is a member
func (r *record) has(token string) bool {
	if r == nil {
		return false
	}
	_, ok := r.members[token]
	return ok
}
