package lock

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/xslock/lib/lockmgr"
	"github.com/ValentinKolb/xslock/lib/store/lstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup installs a local store and the lock flags in viper
func setup(t *testing.T, shared bool) *cobra.Command {
	t.Helper()

	lockStore = lstore.NewLocalStore()
	lockFactory = lockmgr.NewFactory(lockStore, lockmgr.FactoryConfig{Prefix: "test:"})
	t.Cleanup(func() {
		_ = closeStore()
		viper.Reset()
	})

	viper.Set("key", "job")
	viper.Set("shared", shared)
	viper.Set("timeout", time.Duration(0))
	viper.Set("expire", 10*time.Second)
	viper.Set("retry-interval", time.Millisecond)
	viper.Set("init-on-error", false)

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}

func TestExec(t *testing.T) {
	cmd := setup(t, false)
	out := &bytes.Buffer{}
	cmd.SetOut(out)

	require.NoError(t, runExec(cmd, []string{"echo", "hello"}))
	assert.Equal(t, "hello\n", out.String())

	// the lock was released
	exists, err := lockStore.Exists(context.Background(), "test:job")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExec_ExitCode(t *testing.T) {
	cmd := setup(t, true)

	err := runExec(cmd, []string{"sh", "-c", "exit 3"})
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)

	exists, err := lockStore.Exists(context.Background(), "test:job")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExec_Busy(t *testing.T) {
	cmd := setup(t, true)

	x, err := lockFactory.XLock(lockmgr.WithKey("job"))
	require.NoError(t, err)
	require.NoError(t, x.Acquire(context.Background()))

	err = runExec(cmd, []string{"true"})
	assert.ErrorIs(t, err, lockmgr.ErrTimeout)
}

func TestExec_UnknownCommand(t *testing.T) {
	cmd := setup(t, false)
	err := runExec(cmd, []string{"/does/not/exist"})
	require.Error(t, err)

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}

func TestHold(t *testing.T) {
	cmd := setup(t, true)
	out := &bytes.Buffer{}
	cmd.SetOut(out)

	holdFor = 20 * time.Millisecond
	start := time.Now()
	require.NoError(t, runHold(cmd, nil))

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Contains(t, out.String(), "acquired=true, kind=shared, key=test:job")
	assert.Contains(t, out.String(), "released=true")
}

func TestHold_Interrupted(t *testing.T) {
	cmd := setup(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cmd.SetContext(ctx)

	holdFor = time.Hour
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, runHold(cmd, nil))

	exists, err := lockStore.Exists(context.Background(), "test:job")
	require.NoError(t, err)
	assert.False(t, exists, "an interrupted hold releases the lock")
}

func TestWithStore_ClosesOnError(t *testing.T) {
	cmd := setup(t, false)
	s := lockStore

	err := withStore(runExec)(cmd, []string{"sh", "-c", "exit 2"})
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)

	assert.Nil(t, lockStore)
	_, err = s.Exists(context.Background(), "test:job")
	assert.Error(t, err, "the store is closed after a failed command")
}

func TestWithStore_ClosesOnSuccess(t *testing.T) {
	cmd := setup(t, true)
	s := lockStore

	holdFor = time.Millisecond
	require.NoError(t, withStore(runHold)(cmd, nil))

	assert.Nil(t, lockStore)
	_, err := s.Exists(context.Background(), "test:job")
	assert.Error(t, err)
}
