package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/ValentinKolb/xslock/lib/lockmgr"
	"github.com/spf13/cobra"
)

// ExitError carries the exit code of a command run under a lock
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.Code)
}

// execCmd represents the exec command
var execCmd = &cobra.Command{
	Use:   "exec -- command [args...]",
	Short: "Run a command while holding the lock",
	Long: `Acquire the lock, run the command and release the lock when the command has
finished. The exit code of the command is the exit code of xslock. Use --shared to
let several readers run at the same time.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withStore(runExec),
}

func runExec(cmd *cobra.Command, args []string) error {
	l, err := newLock()
	if err != nil {
		return err
	}

	start := time.Now()
	err = lockmgr.WithLock(cmd.Context(), l, func(ctx context.Context) error {
		fmt.Fprintf(cmd.ErrOrStderr(), "acquired %s lock on %s after %s\n", kindName(), l.Key(), since(start))

		c := exec.CommandContext(ctx, args[0], args[1:]...)
		c.Stdin = os.Stdin
		c.Stdout = cmd.OutOrStdout()
		c.Stderr = cmd.ErrOrStderr()

		var exitErr *exec.ExitError
		if err := c.Run(); errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode()}
		} else if err != nil {
			return fmt.Errorf("failed to run %s: %w", args[0], err)
		}
		return nil
	})

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		// the lock was released, only the command failed
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return err
	}
	if err != nil {
		cmd.SilenceUsage = true
		return fmt.Errorf("failed to run under lock: %w", err)
	}
	return nil
}
