// Package store defines the narrow capability the lock client needs from the shared
// key-value store, together with a unified error type.
//
// The package focuses on:
//   - A unified interface (IStore) for running atomic scripts against a key
//   - Access to the store's own clock, which is the time base of the safe lock algorithms
//   - Typed errors (Error, RetCode) so callers can tell a script cache miss apart from
//     a genuine failure
//
// Key Components:
//
//   - IStore Interface: EvalSha and Eval run an atomic script against keys and string
//     arguments and return one integer. Time reads the server clock. Exists and Delete
//     are small administrative helpers used by tools and tests; the lock algorithms
//     themselves never mutate a key outside of a script.
//
//   - Error System: Every implementation reports failures as *Error. The code
//     RetCNoScript marks a script cache miss and is handled transparently by the
//     script dispatcher; all other codes surface to the caller.
//
// Implementations:
//
//	- Redis Store (rstore): talks to a Redis server through go-redis. Scripts are real
//	  Lua scripts executed server side, which makes every script a single atomic step
//	  for all clients of that server.
//	  Available in the "github.com/ValentinKolb/xslock/lib/store/rstore" package.
//
//	- Local Store (lstore): an in-process store. It knows the lock scripts of the
//	  script package and runs native Go versions of them, each one atomically on its key.
//	  It has its own script cache and clock, so it behaves like a remote store towards
//	  the dispatcher. Useful for tests and single-process applications.
//	  Available in the "github.com/ValentinKolb/xslock/lib/store/lstore" package.
//
// This interface-driven approach allows applications to switch between a local and a
// shared store without touching the lock code.
package store
