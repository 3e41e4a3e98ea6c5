// Package testing provides a standardised conformance suite for implementations of the
// store.IStore interface.
//
// The suite runs every lock script of the script package against the store and checks
// the result codes and the resulting records, the script cache fallback and the key TTLs.
// A store passing the suite can be used as a backend for the lockmgr package.
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func(t *testing.T) storetesting.Harness {
//		clock := storetesting.NewManualClock(time.Unix(1_700_000_000, 0))
//		return storetesting.Harness{
//			Store:   NewMyStore(clock.Now),
//			Advance: clock.Advance,
//		}
//	}
//
//	// Running the standard test suite
//	storetesting.RunStoreTests(t, "MyStore", factory)
package testing
