package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"pq-sarfi/internal/service"
)

// ProfileHandler serves weighting profile endpoints
type ProfileHandler struct {
	svc    *service.ProfileService
	logger *zap.Logger
}

func NewProfileHandler(svc *service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, logger: logger}
}

type profileRequest struct {
	Name     string `json:"name"`
	Year     int    `json:"year"`
	IsActive bool   `json:"is_active"`
}

// ListProfiles GET /pq/api/v1/profiles
func (h *ProfileHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.svc.ListProfiles(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// CreateProfile POST /pq/api/v1/profiles
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	profile, err := h.svc.CreateProfile(r.Context(), req.Name, req.Year, req.IsActive)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(profile.ToJSON()))
}

// GetProfile GET /pq/api/v1/profiles/{id}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request, id string) {
	profile, err := h.svc.GetProfile(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(profile.ToJSON()))
}

// DeleteProfile DELETE /pq/api/v1/profiles/{id}
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.svc.DeleteProfile(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// ListWeights GET /pq/api/v1/profiles/{id}/weights
func (h *ProfileHandler) ListWeights(w http.ResponseWriter, r *http.Request, profileID string) {
	weights, err := h.svc.ListWeights(r.Context(), profileID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(weights))
	for _, wt := range weights {
		out = append(out, wt.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

type weightRequest struct {
	MeterID      string  `json:"meter_id"`
	WeightFactor float64 `json:"weight_factor"`
	Notes        string  `json:"notes"`
}

// UpsertWeight PUT /pq/api/v1/profiles/{id}/weights
func (h *ProfileHandler) UpsertWeight(w http.ResponseWriter, r *http.Request, profileID string) {
	var req weightRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	if err := h.svc.UpsertWeight(r.Context(), profileID, req.MeterID, req.WeightFactor, req.Notes); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// BatchUpdateWeights POST /pq/api/v1/profiles/{id}/weights/batch
// Per-row outcomes; a failed row never aborts the batch.
func (h *ProfileHandler) BatchUpdateWeights(w http.ResponseWriter, r *http.Request, profileID string) {
	var updates []service.WeightUpdate
	if err := readBodyJSON(r, &updates); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	result, err := h.svc.BatchUpdateWeights(r.Context(), profileID, updates)
	if err != nil && result == nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}
