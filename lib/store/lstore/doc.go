// Package lstore implements a local, in-memory, single-process store based on the
// store.IStore interface. It is meant for tests and for applications that only need to
// coordinate goroutines of one process with the same lock API they use against Redis.
//
// Key Features:
//   - Go versions of all lock scripts of the script package
//   - A script cache with the same NOSCRIPT behavior as Redis: EvalSha only knows scripts
//     that were sent with Eval before
//   - Key TTLs and a replaceable clock (WithClock) to simulate a skewed server
//   - Thread-safe operations for concurrent access
//
// Implementation Details:
//
//   - Atomicity: Records live in an xsync.MapOf. A script runs inside MapOf.Compute for its
//     key, so the read-decide-write of one script can not interleave with another script
//     on the same key. Scripts on different keys run in parallel.
//
//   - Copy on Write: A script works on a clone of the record and the clone replaces the
//     old record. Published records are never modified, so Exists can read them without
//     taking the key's lock.
//
//   - Expiration: Expired records are treated as absent when a script runs and are
//     removed by a sweep every 1024 script runs.
//
// Usage Example:
//
//	st := lstore.NewLocalStore()
//	l, err := lockmgr.SharedLock(st, lockmgr.WithKey("reports"))
//
// Only the scripts of the script package are supported. Eval with any other source
// fails with store.RetCUnsupportedOperation.
package lstore
