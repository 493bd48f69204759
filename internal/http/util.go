package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"pq-sarfi/internal/domain"
)

const maxBodyBytes = 4 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func readBodyJSON(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeDomainError maps the error taxonomy onto HTTP status codes while
// keeping the envelope shape the front end expects
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		ve *domain.ValidationError
		de *domain.DuplicateError
		ne *domain.NotFoundError
		se *domain.StorageError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, Fail(ve.Error()))
	case errors.As(err, &de):
		writeJSON(w, http.StatusConflict, Fail(de.Error()))
	case errors.As(err, &ne):
		writeJSON(w, http.StatusNotFound, Fail(ne.Error()))
	case errors.As(err, &se):
		writeJSON(w, http.StatusInternalServerError, Fail("storage error"))
	default:
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
	}
}
