package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/xslock/cmd/util"
	"github.com/ValentinKolb/xslock/lib/lockmgr"
	"github.com/spf13/cobra"
)

var (
	holdFor time.Duration

	// holdCmd represents the hold command
	holdCmd = &cobra.Command{
		Use:   "hold",
		Short: "Acquire the lock and hold it for a while",
		Long:  "Acquire the lock, hold it for the given duration (or until interrupted) and release it. Useful to create contention by hand.",
		Args:  cobra.NoArgs,
		RunE:  withStore(runHold),
	}
)

func init() {
	holdCmd.Flags().DurationVar(&holdFor, "for", 10*time.Second, util.WrapString("How long to hold the lock"))
}

func runHold(cmd *cobra.Command, _ []string) error {
	l, err := newLock()
	if err != nil {
		return err
	}

	start := time.Now()
	err = lockmgr.WithLock(cmd.Context(), l, func(ctx context.Context) error {
		fmt.Fprintf(cmd.OutOrStdout(), "acquired=true, kind=%s, key=%s, waited=%s\n", kindName(), l.Key(), since(start))

		timer := time.NewTimer(holdFor)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		return nil
	})
	if err != nil {
		cmd.SilenceUsage = true
		return fmt.Errorf("failed to hold lock: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "released=true, held=%s\n", since(start))
	return nil
}
