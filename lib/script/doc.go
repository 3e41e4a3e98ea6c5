// Package script contains the atomic operations of the lock algorithms and the
// dispatcher that runs them on a store.IStore.
//
// Every operation is a small Lua script working on exactly one key. A script reads the
// lock record, decides, and writes it back in one step on the server, so no client can
// ever observe an intermediate state. Each lock algorithm has one acquire/release pair
// per lock kind:
//
//	mode    record                          exclusive pair            shared pair
//	simple  counter (-1 or holder count)    *ExclusiveSimple          *SharedSimple
//	id      set of 'e'/'s' prefixed tokens  *ExclusiveID              *SharedID
//	safe    sorted set, score = expiry      *ExclusiveSafe            *SharedSafe
//
// Scripts return ResultOK, ResultBusy or (shared id/safe acquire only) ResultCollision.
//
// Dispatching:
//
//	Script.Execute first runs the cached reference (EvalSha). If the store does not know
//	the script yet it answers with a store.RetCNoScript error and Execute sends the full
//	source instead (Eval), which also fills the cache. Other errors are returned as is.
//
// The package keeps a catalog of all scripts, indexed by hash. Stores that cannot run
// Lua (lstore) use it to map a hash or a source back to the operation name.
package script
