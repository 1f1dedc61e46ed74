package controllers

import (
	"encoding/json"
	"net/http"

	transformsvc "github.com/rzbill/flo-transform/internal/services/transforms"
)

// TransformsController exposes deploy, list, get and delete for stored
// transforms.
type TransformsController struct {
	svc *transformsvc.Service
}

// NewTransformsController creates a new transforms controller.
func NewTransformsController(svc *transformsvc.Service) *TransformsController {
	return &TransformsController{svc: svc}
}

// RegisterRoutes registers transform routes with the given mux.
func (c *TransformsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/transforms", c.handleList)
	mux.HandleFunc("/v1/transforms/deploy", c.handleDeploy)
	mux.HandleFunc("/v1/transforms/get", c.handleGet)
	mux.HandleFunc("/v1/transforms/delete", c.handleDelete)
}

func (c *TransformsController) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	list, err := c.svc.List()
	if err != nil {
		writeServiceError(w, err, "Failed to list transforms")
		return
	}
	writeJSON(w, map[string]any{"transforms": list})
}

// handleDeploy stores a definition and (re)starts its processors. Returns
// 201 with the stored definition.
func (c *TransformsController) handleDeploy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req deployReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	meta, err := c.svc.Deploy(r.Context(), req.meta())
	if err != nil {
		writeServiceError(w, err, "Failed to deploy transform")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(meta)
}

func (c *TransformsController) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name parameter is required")
		return
	}
	st, err := c.svc.Get(name)
	if err != nil {
		writeServiceError(w, err, "Failed to get transform")
		return
	}
	writeJSON(w, st)
}

func (c *TransformsController) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req nameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := c.svc.Delete(r.Context(), req.Name); err != nil {
		writeServiceError(w, err, "Failed to delete transform")
		return
	}
	writeNoContent(w)
}
