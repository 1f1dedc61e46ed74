// Package logsvc implements produce, paged reads and live tails over the
// event logs that transforms read from and write to. It is consumed by the
// HTTP gateway and the CLI.
//
// Example:
//
//	svc := logsvc.New(rt, logger)
//	offsets, _ := svc.Produce(ctx, "default", "orders", 0, []eventlog.Record{{Value: []byte("hello")}})
//	page, _ := svc.Read(logsvc.ReadRequest{Topic: "orders", Start: offsets[0], Limit: 10})
//	_ = svc.Tail(ctx, "default", "orders", 0, 0, 0, mySink)
package logsvc
