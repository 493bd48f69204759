package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router uses the standard library http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes liveness probe
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
}

// RegisterBenchmarkRoutes standard and threshold management
func (r *Router) RegisterBenchmarkRoutes(h *BenchmarkHandler) {
	r.Handle("/pq/api/v1/standards", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.ListStandards(w, req)
		case http.MethodPost:
			h.CreateStandard(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// /pq/api/v1/standards/{id}
	// /pq/api/v1/standards/{id}/thresholds
	// /pq/api/v1/standards/{id}/thresholds/import
	// /pq/api/v1/standards/{id}/thresholds/export
	r.Handle("/pq/api/v1/standards/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/pq/api/v1/standards/")
		parts := strings.Split(rest, "/")
		id := parts[0]
		if id == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		switch {
		case len(parts) == 1:
			switch req.Method {
			case http.MethodGet:
				h.GetStandard(w, req, id)
			case http.MethodPut:
				h.UpdateStandard(w, req, id)
			case http.MethodDelete:
				h.DeleteStandard(w, req, id)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		case len(parts) == 2 && parts[1] == "thresholds":
			switch req.Method {
			case http.MethodGet:
				h.ListThresholds(w, req, id)
			case http.MethodPost:
				h.AddThreshold(w, req, id)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		case len(parts) == 3 && parts[1] == "thresholds" && parts[2] == "import":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.ImportThresholds(w, req, id)
		case len(parts) == 3 && parts[1] == "thresholds" && parts[2] == "export":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.ExportThresholds(w, req, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	r.Handle("/pq/api/v1/thresholds/template", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.DownloadTemplate(w, req)
	})

	// /pq/api/v1/thresholds/{id}
	r.Handle("/pq/api/v1/thresholds/", func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimPrefix(req.URL.Path, "/pq/api/v1/thresholds/")
		if id == "" || strings.Contains(id, "/") || id == "template" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch req.Method {
		case http.MethodPut:
			h.UpdateThreshold(w, req, id)
		case http.MethodDelete:
			h.DeleteThreshold(w, req, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// RegisterProfileRoutes weighting profile management
func (r *Router) RegisterProfileRoutes(h *ProfileHandler) {
	r.Handle("/pq/api/v1/profiles", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.ListProfiles(w, req)
		case http.MethodPost:
			h.CreateProfile(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// /pq/api/v1/profiles/{id}
	// /pq/api/v1/profiles/{id}/weights
	// /pq/api/v1/profiles/{id}/weights/batch
	r.Handle("/pq/api/v1/profiles/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/pq/api/v1/profiles/")
		parts := strings.Split(rest, "/")
		id := parts[0]
		if id == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		switch {
		case len(parts) == 1:
			switch req.Method {
			case http.MethodGet:
				h.GetProfile(w, req, id)
			case http.MethodDelete:
				h.DeleteProfile(w, req, id)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		case len(parts) == 2 && parts[1] == "weights":
			switch req.Method {
			case http.MethodGet:
				h.ListWeights(w, req, id)
			case http.MethodPut:
				h.UpsertWeight(w, req, id)
			default:
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
		case len(parts) == 3 && parts[1] == "weights" && parts[2] == "batch":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.BatchUpdateWeights(w, req, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterSARFIRoutes index computation
func (r *Router) RegisterSARFIRoutes(h *SARFIHandler) {
	post := func(pattern string, fn http.HandlerFunc) {
		r.Handle(pattern, func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			fn(w, req)
		})
	}

	post("/pq/api/v1/sarfi/monthly", h.Monthly)
	post("/pq/api/v1/sarfi/matrix", h.Matrix)
	post("/pq/api/v1/sarfi/yoy", h.YearOverYear)
	post("/pq/api/v1/sarfi/drilldown", h.DrillDown)
}
