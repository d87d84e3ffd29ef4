// Package httputil provides HTTP response helpers and middleware.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// OK writes the {"status": "OK"} acknowledgement body.
func OK(w http.ResponseWriter) {
	JSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// Error writes a JSON response with an {"error": ...} body.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// ValidationError writes a 400 response for a request validation failure.
// validator.ValidationErrors are flattened to per-field messages.
func ValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fieldErrors := make([]map[string]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			fieldErrors = append(fieldErrors, map[string]string{
				"field":   e.Field(),
				"message": e.Tag(),
			})
		}
		JSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "validation error",
			"details": fieldErrors,
		})
		return
	}

	Error(w, http.StatusBadRequest, err.Error())
}
