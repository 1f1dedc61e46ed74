// Package httpserver provides the REST gateway: JSON endpoints to deploy,
// inspect and delete transforms, produce to and read from partition logs, and
// an SSE tail.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: config.Default()})
//	transforms := transformsvc.New(ctx, rt, logger, nil)
//	s := httpserver.New(rt, transforms, logsvc.New(rt, logger), logger)
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
