// Package grpcserver hosts the gRPC endpoint. It serves the standard
// grpc.health.v1 service: the empty service name tracks storage health and
// "transform/<name>/<partition>" tracks each processor.
//
// Example:
//
//	s := grpcserver.New(rt, logger)
//	transforms := transformsvc.New(ctx, rt, logger, s.TransformStatus)
//	_ = s.ListenAndServe(ctx, ":50051")
package grpcserver
