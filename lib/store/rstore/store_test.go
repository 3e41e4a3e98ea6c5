package rstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/xslock/lib/store"
	storetesting "github.com/ValentinKolb/xslock/lib/store/testing"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (store.IStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	mr.SetTime(time.Unix(1_700_000_000, 0))

	s, err := Connect(context.Background(), &redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)

	return s, mr
}

func Test(t *testing.T) {
	storetesting.RunStoreTests(t, "RedisStore", func(t *testing.T) storetesting.Harness {
		s, mr := setupTestStore(t)
		clock := storetesting.NewManualClock(time.Unix(1_700_000_000, 0))
		return storetesting.Harness{
			Store: s,
			Advance: func(d time.Duration) {
				clock.Advance(d)
				mr.SetTime(clock.Now())
				mr.FastForward(d)
			},
		}
	})
}

func TestEvalSha_NoScript(t *testing.T) {
	s, _ := setupTestStore(t)
	defer s.Close()

	_, err := s.EvalSha(context.Background(), "0000000000000000000000000000000000000000", []string{"k"})
	require.Error(t, err)
	assert.True(t, store.IsNoScript(err))
}

func TestTime(t *testing.T) {
	s, _ := setupTestStore(t)
	defer s.Close()

	now, err := s.Time(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), now.Unix())
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), &redis.UniversalOptions{
		Addrs:       []string{addr},
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	require.Error(t, err)

	var storeErr *store.Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, store.RetCConnection, storeErr.Code)
}

func TestClosed(t *testing.T) {
	s, _ := setupTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.Exists(context.Background(), "k")
	var storeErr *store.Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, store.RetCConnection, storeErr.Code)
}

// replyError is an error reply of the server
type replyError string

func (e replyError) Error() string { return string(e) }
func (replyError) RedisError() {}

func TestConvertError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want store.RetCode
	}{
		{"noscript", replyError("NOSCRIPT No matching script. Please use EVAL."), store.RetCNoScript},
		{"wrongtype", replyError("WRONGTYPE Operation against a key holding the wrong kind of value"), store.RetCInvalidOperation},
		{"script", replyError("ERR user_script:1: Script attempted to access nonexistent global variable"), store.RetCInternalError},
		{"canceled", context.Canceled, store.RetCConnection},
		{"network", errors.New("dial tcp: connection refused"), store.RetCConnection},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var storeErr *store.Error
			require.True(t, errors.As(convertError(c.err), &storeErr))
			assert.Equal(t, c.want, storeErr.Code)
		})
	}
	assert.NoError(t, convertError(nil))
}
