package grpcserver

import (
	"fmt"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rzbill/flo-transform/internal/transform"
	logpkg "github.com/rzbill/flo-transform/pkg/log"
)

// TransformService is the health service name reported for one processor.
func TransformService(name string, partition uint32) string {
	return fmt.Sprintf("transform/%s/%d", name, partition)
}

// TransformStatus publishes a processor state change as a health status. It
// has the shape of transform.StatusFunc.
func (s *Server) TransformStatus(name string, partition uint32, state transform.State, err error) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if state == transform.StateRunning {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(TransformService(name, partition), st)
	if err != nil {
		s.logger.Warn("transform unhealthy",
			logpkg.Str("name", name),
			logpkg.Uint64("partition", uint64(partition)),
			logpkg.Err(err))
	}
}
