package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

type integrationDTO struct {
	Provider  string            `json:"provider"`
	Connected bool              `json:"connected"`
	LastSync  string            `json:"last_sync,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func toIntegrationDTO(i model.Integration) integrationDTO {
	dto := integrationDTO{
		Provider:  string(i.Provider),
		Connected: i.Connected,
		Metadata:  i.Metadata,
	}
	if i.LastSync != nil {
		dto.LastSync = i.LastSync.Format(time.RFC3339)
	}
	return dto
}

// Integrations lists the known providers and their connection state.
func (h *Handler) Integrations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out := make([]integrationDTO, 0)
	for _, i := range h.store.Integrations() {
		out = append(out, toIntegrationDTO(i))
	}
	writeJSON(w, http.StatusOK, map[string]any{"integrations": out})
}

type setIntegrationRequest struct {
	Connected bool              `json:"connected"`
	Metadata  map[string]string `json:"metadata"`
}

// IntegrationByProvider handles PUT /api/v1/integrations/{provider}.
func (h *Handler) IntegrationByProvider(w http.ResponseWriter, r *http.Request) {
	provider := strings.TrimPrefix(r.URL.Path, "/api/v1/integrations/")
	if provider == "" || strings.Contains(provider, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req setIntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if !h.store.SetIntegration(r.Context(), model.IntegrationProvider(provider), req.Connected, req.Metadata) {
		http.Error(w, "unknown provider", http.StatusNotFound)
		return
	}

	integ, _ := h.store.Integration(model.IntegrationProvider(provider))
	h.logger.Info("integration updated", "provider", provider, "connected", req.Connected)
	writeJSON(w, http.StatusOK, map[string]any{"integration": toIntegrationDTO(integ)})
}

type ruleDTO struct {
	ID      string `json:"id"`
	Trigger string `json:"trigger"`
	Channel string `json:"channel"`
	Active  bool   `json:"active"`
	Subject string `json:"subject,omitempty"`
}

// NotificationRules lists the rule set for the settings screen.
func (h *Handler) NotificationRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out := make([]ruleDTO, 0)
	for _, rule := range h.store.Rules() {
		out = append(out, ruleDTO{
			ID:      rule.ID,
			Trigger: string(rule.Trigger),
			Channel: string(rule.Channel),
			Active:  rule.Active,
			Subject: rule.TemplateSubject,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": out})
}

// NotificationRuleToggle handles POST /api/v1/notifications/rules/{id}/toggle.
// The scheduler reads rule state fresh each tick, so the flip takes effect on
// the next poll.
func (h *Handler) NotificationRuleToggle(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/notifications/rules/")
	id := strings.TrimSuffix(rest, "/toggle")
	if id == rest || id == "" || strings.Contains(id, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.store.ToggleRule(r.Context(), id) {
		http.Error(w, "rule not found", http.StatusNotFound)
		return
	}
	for _, rule := range h.store.Rules() {
		if rule.ID == id {
			h.logger.Info("notification rule toggled", "rule_id", id, "active", rule.Active)
			writeJSON(w, http.StatusOK, map[string]any{"rule": ruleDTO{
				ID:      rule.ID,
				Trigger: string(rule.Trigger),
				Channel: string(rule.Channel),
				Active:  rule.Active,
				Subject: rule.TemplateSubject,
			}})
			return
		}
	}
	http.Error(w, "rule not found", http.StatusNotFound)
}

type logDTO struct {
	ID            string `json:"id"`
	AppointmentID string `json:"appointment_id"`
	ClientName    string `json:"client_name"`
	Channel       string `json:"channel"`
	Trigger       string `json:"trigger"`
	Status        string `json:"status"`
	SentAt        string `json:"sent_at"`
}

// NotificationLogs returns the delivery history, newest first.
func (h *Handler) NotificationLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	out := make([]logDTO, 0)
	for _, l := range h.store.Logs(limit) {
		out = append(out, logDTO{
			ID:            l.ID,
			AppointmentID: l.AppointmentID,
			ClientName:    l.ClientName,
			Channel:       string(l.Channel),
			Trigger:       string(l.Trigger),
			Status:        l.Status,
			SentAt:        l.SentAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": out})
}
