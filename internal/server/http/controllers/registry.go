package controllers

import (
	"net/http"

	"github.com/rzbill/flo-transform/internal/runtime"
	logsvc "github.com/rzbill/flo-transform/internal/services/logs"
	transformsvc "github.com/rzbill/flo-transform/internal/services/transforms"
)

// ControllerRegistry manages all HTTP controllers.
//
// It provides a centralized way to register all controller routes.
type ControllerRegistry struct {
	general    *GeneralController
	transforms *TransformsController
	logs       *LogsController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt *runtime.Runtime, transforms *transformsvc.Service, logs *logsvc.Service) *ControllerRegistry {
	return &ControllerRegistry{
		general:    NewGeneralController(rt),
		transforms: NewTransformsController(transforms),
		logs:       NewLogsController(logs),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux:
// general endpoints (health, stats), transform management and log access.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.transforms.RegisterRoutes(mux)
	r.logs.RegisterRoutes(mux)
}
