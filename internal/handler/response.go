package handler

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"pemilihan-be/internal/middleware"
	apperrors "pemilihan-be/pkg/errors"
	"pemilihan-be/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 64 << 10

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	middleware.WriteError(w, r, err, log)
}

// respondWithETag answers 304 when the client already holds this payload
func respondWithETag(w http.ResponseWriter, r *http.Request, data interface{}, maxAge int) {
	etag := generateETag(data)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
	respondJSON(w, http.StatusOK, data)
}

func generateETag(data interface{}) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return fmt.Sprintf(`"%x"`, hash)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return apperrors.NewValidationError("Invalid request body", map[string]interface{}{"reason": err.Error()})
	}
	return nil
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("Invalid ID", map[string]interface{}{name: raw})
	}
	return id, nil
}
