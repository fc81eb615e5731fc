package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

// Clients serves the collection: GET lists, POST creates.
func (h *Handler) Clients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out := make([]clientDTO, 0)
		for _, c := range h.store.Clients() {
			out = append(out, toClientDTO(c))
		}
		writeJSON(w, http.StatusOK, map[string]any{"clients": out})
	case http.MethodPost:
		h.createClient(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	var req clientDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	client := model.Client{
		ID:    uuid.NewString(),
		Name:  req.Name,
		Email: req.Email,
		Phone: strings.TrimSpace(req.Phone),
		Tags:  req.Tags,
		Notes: req.Notes,
	}
	if !h.store.AddClient(r.Context(), client) {
		// Same email already registered; the insert is silently dropped.
		http.Error(w, "client with this email already exists", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"client": toClientDTO(client)})
}

// ClientByID handles PUT (replace) and DELETE on /api/v1/clients/{id}.
func (h *Handler) ClientByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/clients/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req clientDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		client := model.Client{
			ID:    id,
			Name:  strings.TrimSpace(req.Name),
			Email: strings.TrimSpace(req.Email),
			Phone: strings.TrimSpace(req.Phone),
			Tags:  req.Tags,
			Notes: req.Notes,
		}
		if client.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		if !h.store.ReplaceClient(r.Context(), client) {
			http.Error(w, "client not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"client": toClientDTO(client)})
	case http.MethodDelete:
		if !h.store.DeleteClient(r.Context(), id) {
			http.Error(w, "client not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
