package lock

import (
	"time"

	"github.com/ValentinKolb/xslock/cmd/util"
	"github.com/ValentinKolb/xslock/lib/lockmgr"
	"github.com/ValentinKolb/xslock/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	lockStore   store.IStore
	lockFactory *lockmgr.Factory

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:               "lock",
		Short:             "Run commands under an exclusive or shared lock",
		PersistentPreRunE: setupLockFactory,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	LockCommands.AddCommand(execCmd)
	LockCommands.AddCommand(holdCmd)

	util.SetupStoreFlags(LockCommands)

	// Add flags shared by all lock commands
	key := "key"
	LockCommands.PersistentFlags().String(key, lockmgr.DefaultKey, util.WrapString("The key of the lock"))

	key = "shared"
	LockCommands.PersistentFlags().Bool(key, false, util.WrapString("Take a shared lock instead of an exclusive lock"))

	key = "timeout"
	LockCommands.PersistentFlags().Duration(key, lockmgr.DefaultTimeout, util.WrapString("How long to wait for the lock. 0 makes a single attempt"))

	key = "expire"
	LockCommands.PersistentFlags().Duration(key, lockmgr.DefaultExpire, util.WrapString("Lease of the lock, enforced by the store (whole seconds)"))

	key = "retry-interval"
	LockCommands.PersistentFlags().Duration(key, lockmgr.DefaultRetryInterval, util.WrapString("Pause between two acquire attempts"))

	key = "init-on-error"
	LockCommands.PersistentFlags().Bool(key, false, util.WrapString("Clear the lock record if the release finds a record that does not belong to this lock"))
}

// setupLockFactory connects to the store and creates the lock factory
func setupLockFactory(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	conf := util.GetStoreConfig()
	if err := util.InitLoggers(conf.LogLevel); err != nil {
		return err
	}

	s, err := util.NewStore(cmd.Context(), conf)
	if err != nil {
		return err
	}

	f, err := util.NewFactory(s, conf)
	if err != nil {
		_ = s.Close()
		return err
	}

	lockStore, lockFactory = s, f
	return nil
}

// closeStore closes the store opened by setupLockFactory
func closeStore() error {
	if lockStore == nil {
		return nil
	}
	err := lockStore.Close()
	lockStore, lockFactory = nil, nil
	return err
}

// withStore closes the store when run returns. Cobra skips the post run hooks if a
// command fails, so the store is closed here on every path.
func withStore(run func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if closeErr := closeStore(); err == nil {
				err = closeErr
			}
		}()
		return run(cmd, args)
	}
}

// newLock creates the lock described by the command flags
func newLock() (lockmgr.ILock, error) {
	opts := []lockmgr.Option{
		lockmgr.WithKey(viper.GetString("key")),
		lockmgr.WithTimeout(viper.GetDuration("timeout")),
		lockmgr.WithExpire(viper.GetDuration("expire")),
		lockmgr.WithRetryInterval(viper.GetDuration("retry-interval")),
		lockmgr.WithInitOnError(viper.GetBool("init-on-error")),
	}
	if viper.GetBool("shared") {
		return lockFactory.SharedLock(opts...)
	}
	return lockFactory.ExclusiveLock(opts...)
}

// kindName returns the kind of lock requested by the flags, for messages
func kindName() string {
	if viper.GetBool("shared") {
		return lockmgr.KindShared.String()
	}
	return lockmgr.KindExclusive.String()
}

// since formats the time elapsed since start for messages
func since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
