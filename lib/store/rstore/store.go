package rstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ValentinKolb/xslock/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/redis/go-redis/v9"
)

var log = logger.GetLogger("store")

type storeImpl struct {
	client redis.UniversalClient
}

// NewRedisStore creates a store backed by a redis server (or cluster).
// The store takes ownership of the client, closing the store closes the client.
func NewRedisStore(client redis.UniversalClient) store.IStore {
	return &storeImpl{
		client: client,
	}
}

// Connect creates a redis client from the options, checks the connection with a PING
// and returns a store using it.
func Connect(ctx context.Context, opts *redis.UniversalOptions) (store.IStore, error) {
	client := redis.NewUniversalClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, convertError(err)
	}
	log.Infof("connected to redis at %s", strings.Join(opts.Addrs, ","))
	return NewRedisStore(client), nil
}

// convertError maps a go-redis error to a *store.Error
func convertError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case strings.HasPrefix(err.Error(), "NOSCRIPT"):
		return store.WrapError(store.RetCNoScript, err)
	case strings.HasPrefix(err.Error(), "WRONGTYPE"):
		return store.WrapError(store.RetCInvalidOperation, err)
	case errors.Is(err, redis.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return store.WrapError(store.RetCConnection, err)
	}

	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		// the server answered with an error reply (e.g. a failing script)
		return store.WrapError(store.RetCInternalError, err)
	}
	// everything else is a network level problem
	return store.WrapError(store.RetCConnection, err)
}

// toInterfaces converts string arguments to the variadic form go-redis expects
func toInterfaces(args []string) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) EvalSha(ctx context.Context, sha1 string, keys []string, args ...string) (int64, error) {
	result, err := s.client.EvalSha(ctx, sha1, keys, toInterfaces(args)...).Int64()
	return result, convertError(err)
}

func (s *storeImpl) Eval(ctx context.Context, source string, keys []string, args ...string) (int64, error) {
	result, err := s.client.Eval(ctx, source, keys, toInterfaces(args)...).Int64()
	return result, convertError(err)
}

func (s *storeImpl) Time(ctx context.Context) (time.Time, error) {
	now, err := s.client.Time(ctx).Result()
	return now, convertError(err)
}

func (s *storeImpl) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, convertError(err)
}

func (s *storeImpl) Delete(ctx context.Context, key string) error {
	return convertError(s.client.Del(ctx, key).Err())
}

func (s *storeImpl) Close() error {
	return convertError(s.client.Close())
}
