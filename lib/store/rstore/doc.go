// Package rstore implements store.IStore on top of a Redis server using go-redis.
//
// The lock scripts are real Lua scripts here. Redis executes a script as a single
// command, no other client command runs in between, which is what makes every lock
// transition atomic for all processes sharing the server.
//
// Error Mapping:
//
//   - NOSCRIPT replies become store.RetCNoScript, the script dispatcher reacts to it by
//     sending the full script source.
//   - WRONGTYPE replies (the key holds a record of another lock mode) become
//     store.RetCInvalidOperation.
//   - Other error replies become store.RetCInternalError.
//   - Network errors, a closed client and context errors become store.RetCConnection.
//
// Usage Example:
//
//	st, err := rstore.Connect(ctx, &redis.UniversalOptions{Addrs: []string{"localhost:6379"}})
//	if err != nil {
//	    // Handle error
//	}
//	defer st.Close()
//
// Any redis.UniversalClient works, so single nodes, sentinel setups and clusters are
// supported. Since every lock script touches exactly one key, scripts are always routed
// to the node owning the lock key.
package rstore
