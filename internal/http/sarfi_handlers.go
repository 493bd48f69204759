package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"pq-sarfi/internal/engine"
	"pq-sarfi/internal/service"
)

// SARFIHandler serves index computation endpoints
type SARFIHandler struct {
	svc    *service.SARFIService
	logger *zap.Logger
}

func NewSARFIHandler(svc *service.SARFIService, logger *zap.Logger) *SARFIHandler {
	return &SARFIHandler{svc: svc, logger: logger}
}

// Monthly POST /pq/api/v1/sarfi/monthly
func (h *SARFIHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.readOptions(w, r)
	if !ok {
		return
	}

	result, err := h.svc.MonthlySeries(r.Context(), opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

type matrixRequest struct {
	service.QueryOptions
	Dimension  string   `json:"dimension"`
	Dimensions []string `json:"dimensions"`
}

// Matrix POST /pq/api/v1/sarfi/matrix
// A single "dimension" computes one table; "dimensions" fans out and
// returns a table per dimension.
func (h *SARFIHandler) Matrix(w http.ResponseWriter, r *http.Request) {
	req := matrixRequest{QueryOptions: defaultOptions()}
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	if len(req.Dimensions) > 0 {
		results, err := h.svc.DimensionMatrices(r.Context(), req.QueryOptions, req.Dimensions)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(results))
		return
	}

	if req.Dimension == "" {
		writeJSON(w, http.StatusBadRequest, Fail("dimension is required"))
		return
	}

	result, err := h.svc.DimensionMatrix(r.Context(), req.QueryOptions, req.Dimension)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

type yoyRequest struct {
	service.QueryOptions
	Years []int `json:"years"`
}

// YearOverYear POST /pq/api/v1/sarfi/yoy
func (h *SARFIHandler) YearOverYear(w http.ResponseWriter, r *http.Request) {
	req := yoyRequest{QueryOptions: defaultOptions()}
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	result, err := h.svc.YearOverYear(r.Context(), req.QueryOptions, req.Years)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// DrillDown POST /pq/api/v1/sarfi/drilldown
func (h *SARFIHandler) DrillDown(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.readOptions(w, r)
	if !ok {
		return
	}

	result, err := h.svc.DrillDown(r.Context(), opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

func (h *SARFIHandler) readOptions(w http.ResponseWriter, r *http.Request) (service.QueryOptions, bool) {
	opts := defaultOptions()
	if err := readBodyJSON(r, &opts); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return opts, false
	}
	return opts, true
}

// defaultOptions seeds the permissive filter so omitted request fields keep
// the permissive defaults rather than Go's restrictive zero values
func defaultOptions() service.QueryOptions {
	return service.QueryOptions{Filter: engine.DefaultFilterConfig()}
}
