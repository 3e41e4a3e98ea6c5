// Package cmd implements the command-line interface of xslock. It provides commands to
// run programs under an exclusive or shared lock and to check the locks under load.
//
// The package is organized into several subpackages:
//
//   - lock: Commands that take a lock (exec, hold)
//   - bench: Exclusive and shared workers competing for one key, with overlap checks
//   - util: Shared utilities for command-line processing, configuration and logging (internal use)
//
// All flags can also be set as environment variables with the prefix XSLOCK_
// (e.g. XSLOCK_REDIS_ADDR=localhost:6379), .env and .env.local files are read as well.
//
// See xslock -help for a list of all commands.
package cmd
