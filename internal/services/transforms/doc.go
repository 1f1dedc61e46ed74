// Package transformsvc is the control plane for transforms. It persists
// definitions through the registry and keeps one processor per partition
// running on a transform.Manager, exposing their live state to the HTTP
// and gRPC servers.
//
// Example:
//
//	svc := transformsvc.New(ctx, rt, logger, health.SetTransformStatus)
//	defer svc.Close()
//	_ = svc.Resume(ctx)
//	meta, _ := svc.Deploy(ctx, registry.Meta{Name: "errors", Source: "logs", Sink: "errors", Filter: `json.level == "error"`})
//	st, _ := svc.Get(meta.Name)
package transformsvc
