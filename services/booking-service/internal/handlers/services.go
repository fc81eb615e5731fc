package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

// Services serves the admin catalog: GET lists everything including
// inactive entries, POST creates.
func (h *Handler) Services(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out := make([]serviceDTO, 0)
		for _, svc := range h.store.Services() {
			out = append(out, toServiceDTO(svc))
		}
		writeJSON(w, http.StatusOK, map[string]any{"services": out})
	case http.MethodPost:
		h.createService(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func serviceFromDTO(id string, req serviceDTO) (model.Service, string) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Service{}, "name is required"
	}
	if req.DurationMinutes <= 0 {
		return model.Service{}, "duration_minutes must be positive"
	}
	if req.PriceCents < 0 {
		return model.Service{}, "price_cents must not be negative"
	}
	return model.Service{
		ID:              id,
		Name:            name,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		DurationMinutes: req.DurationMinutes,
		BufferMinutes:   req.BufferMinutes,
		Color:           req.Color,
		Category:        req.Category,
		Active:          req.Active,
		Premium:         req.Premium,
	}, ""
}

func (h *Handler) createService(w http.ResponseWriter, r *http.Request) {
	var req serviceDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	svc, problem := serviceFromDTO(uuid.NewString(), req)
	if problem != "" {
		http.Error(w, problem, http.StatusBadRequest)
		return
	}
	if !h.store.AddService(r.Context(), svc) {
		http.Error(w, "could not create service", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"service": toServiceDTO(svc)})
}

// ServiceByID handles PUT (replace) and DELETE on /api/v1/services/{id}.
func (h *Handler) ServiceByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/services/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req serviceDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		svc, problem := serviceFromDTO(id, req)
		if problem != "" {
			http.Error(w, problem, http.StatusBadRequest)
			return
		}
		if !h.store.ReplaceService(r.Context(), svc) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"service": toServiceDTO(svc)})
	case http.MethodDelete:
		if !h.store.DeleteService(r.Context(), id) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
