// Package runtime wires storage, config, and facades into a single-node
// transform server. It exposes Open/Close, basic health checks, shared event
// log handles and the transform registry.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	// Health
//	_ = rt.CheckHealth(context.Background())
//	// Open a log and append
//	log, _ := rt.OpenLog("default", "orders", 0)
//	_, _ = log.Append(context.Background(), []eventlog.Record{{Value: []byte("hello")}})
package runtime
