package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"pq-sarfi/internal/engine"
	"pq-sarfi/internal/service"
)

// BenchmarkHandler serves standard and threshold management endpoints
type BenchmarkHandler struct {
	svc    *service.BenchmarkService
	logger *zap.Logger
}

func NewBenchmarkHandler(svc *service.BenchmarkService, logger *zap.Logger) *BenchmarkHandler {
	return &BenchmarkHandler{svc: svc, logger: logger}
}

type standardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListStandards GET /pq/api/v1/standards
func (h *BenchmarkHandler) ListStandards(w http.ResponseWriter, r *http.Request) {
	standards, err := h.svc.ListStandards(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(standards))
	for _, s := range standards {
		out = append(out, s.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// CreateStandard POST /pq/api/v1/standards
func (h *BenchmarkHandler) CreateStandard(w http.ResponseWriter, r *http.Request) {
	var req standardRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	standard, err := h.svc.CreateStandard(r.Context(), req.Name, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(standard.ToJSON()))
}

// GetStandard GET /pq/api/v1/standards/{id}
func (h *BenchmarkHandler) GetStandard(w http.ResponseWriter, r *http.Request, id string) {
	standard, err := h.svc.GetStandard(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(standard.ToJSON()))
}

// UpdateStandard PUT /pq/api/v1/standards/{id}
func (h *BenchmarkHandler) UpdateStandard(w http.ResponseWriter, r *http.Request, id string) {
	var req standardRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	standard, err := h.svc.UpdateStandard(r.Context(), id, req.Name, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(standard.ToJSON()))
}

// DeleteStandard DELETE /pq/api/v1/standards/{id}
// Deletes the standard together with its thresholds.
func (h *BenchmarkHandler) DeleteStandard(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.svc.DeleteStandard(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

type thresholdRequest struct {
	MinVoltage *float64 `json:"min_voltage"`
	Duration   *float64 `json:"duration"`
}

// ListThresholds GET /pq/api/v1/standards/{id}/thresholds?sort_by=&order=
func (h *BenchmarkHandler) ListThresholds(w http.ResponseWriter, r *http.Request, standardID string) {
	sortBy := r.URL.Query().Get("sort_by")
	order := r.URL.Query().Get("order")

	thresholds, err := h.svc.ListThresholds(r.Context(), standardID, sortBy, order)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(thresholds))
	for _, t := range thresholds {
		out = append(out, t.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// AddThreshold POST /pq/api/v1/standards/{id}/thresholds
func (h *BenchmarkHandler) AddThreshold(w http.ResponseWriter, r *http.Request, standardID string) {
	var req thresholdRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if req.MinVoltage == nil || req.Duration == nil {
		writeJSON(w, http.StatusBadRequest, Fail("min_voltage and duration are required"))
		return
	}

	threshold, err := h.svc.AddThreshold(r.Context(), standardID, *req.MinVoltage, *req.Duration)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(threshold.ToJSON()))
}

// UpdateThreshold PUT /pq/api/v1/thresholds/{id}
func (h *BenchmarkHandler) UpdateThreshold(w http.ResponseWriter, r *http.Request, id string) {
	var req thresholdRequest
	if err := readBodyJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	threshold, err := h.svc.UpdateThreshold(r.Context(), id, req.MinVoltage, req.Duration)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(threshold.ToJSON()))
}

// DeleteThreshold DELETE /pq/api/v1/thresholds/{id}
func (h *BenchmarkHandler) DeleteThreshold(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.svc.DeleteThreshold(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// ImportThresholds POST /pq/api/v1/standards/{id}/thresholds/import
// Accepts either a JSON array of rows or an uploaded Excel file
// (multipart field "file"). Row failures are reported per row; the batch
// never aborts.
func (h *BenchmarkHandler) ImportThresholds(w http.ResponseWriter, r *http.Request, standardID string) {
	var rows []service.ThresholdRow

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("missing upload field 'file'"))
			return
		}
		defer file.Close()

		rows, err = ParseThresholdImport(file)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail(fmt.Sprintf("failed to parse Excel file: %v", err)))
			return
		}
	} else {
		if err := readBodyJSON(r, &rows); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
			return
		}
	}

	result, err := h.svc.ImportThresholds(r.Context(), standardID, rows)
	if err != nil && result == nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// DownloadTemplate GET /pq/api/v1/thresholds/template
func (h *BenchmarkHandler) DownloadTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := GenerateThresholdImportTemplate()
	if err != nil {
		h.logger.Error("Failed to generate threshold template", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate template"))
		return
	}
	writeExcel(w, "threshold_import_template.xlsx", data)
}

// ExportThresholds GET /pq/api/v1/standards/{id}/thresholds/export
func (h *BenchmarkHandler) ExportThresholds(w http.ResponseWriter, r *http.Request, standardID string) {
	standard, err := h.svc.GetStandard(r.Context(), standardID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	thresholds, err := h.svc.ListThresholds(r.Context(), standardID, string(engine.SortByDuration), string(engine.OrderAsc))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	data, err := GenerateThresholdExport(standard, thresholds)
	if err != nil {
		h.logger.Error("Failed to generate threshold export",
			zap.String("standard_id", standardID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	filename := fmt.Sprintf("thresholds_%s_%s.xlsx", standard.Name, time.Now().Format("20060102"))
	writeExcel(w, filename, data)
}

func writeExcel(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
