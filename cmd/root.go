package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ValentinKolb/xslock/cmd/bench"
	"github.com/ValentinKolb/xslock/cmd/lock"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "xslock",
		Short: "exclusive and shared locks on redis",
		Long: fmt.Sprintf(`xslock (v%s)

Exclusive (read-write) and shared (read-only) locks for processes sharing a redis
server. All lock state lives in redis and is changed by atomic Lua scripts.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of xslock",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xslock v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
// An interrupt cancels the context of the running command, which releases held locks.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := RootCmd.ExecuteContext(ctx)

	var exitErr *lock.ExitError
	switch {
	case errors.As(err, &exitErr):
		stop()
		os.Exit(exitErr.Code)
	case err != nil:
		stop()
		os.Exit(1)
	}
}
