package util

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/xslock/lib/lockmgr"
	"github.com/alicebob/miniredis/v2"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, "a b c", WrapString("  a   b c "))
	assert.Equal(t, "", WrapString(""))
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for in, want := range cases {
		got, err := ParseLogLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestStoreConfig_String(t *testing.T) {
	conf := &StoreConfig{
		Type:          "redis",
		RedisAddrs:    []string{"a:6379", "b:6379"},
		RedisPassword: "secret",
		RedisTimeout:  time.Second,
		Mode:          lockmgr.ModeUUID,
		LogLevel:      "info",
	}
	s := conf.String()
	assert.Contains(t, s, "a:6379, b:6379")
	assert.Contains(t, s, "uuid")
	assert.NotContains(t, s, "secret")
	assert.Contains(t, s, "(none)")

	local := (&StoreConfig{Type: "local"}).String()
	assert.NotContains(t, local, "Addresses")
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	s, err := NewStore(ctx, &StoreConfig{Type: "local"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = NewStore(ctx, &StoreConfig{Type: "redis", RedisAddrs: []string{mr.Addr()}, RedisTimeout: time.Second})
	require.NoError(t, err)
	exists, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, s.Close())

	_, err = NewStore(ctx, &StoreConfig{Type: "etcd"})
	assert.Error(t, err)
}

func TestNewFactory(t *testing.T) {
	s, err := NewStore(context.Background(), &StoreConfig{Type: "local"})
	require.NoError(t, err)

	f, err := NewFactory(s, &StoreConfig{Prefix: "p:", Mode: lockmgr.ModeSimple})
	require.NoError(t, err)
	assert.Equal(t, lockmgr.ModeSimple, f.Mode())
	assert.Equal(t, "p:k", f.Key("k"))

	_, err = NewFactory(s, &StoreConfig{Mode: "fifo"})
	assert.ErrorIs(t, err, lockmgr.ErrConfiguration)
}
