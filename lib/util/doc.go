// Package util provides tools to check and measure locks under load.
//
// The package contains:
//   - stats: summary statistics and a fairness measure for per worker counts
//   - intervals: a thread-safe log of the intervals in which locks were held, and
//     the checks that exclusive holders never overlapped with any other holder
//
// It is used by the lock tests and by the bench command.
package util
