package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Description: "db failed"})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal_error", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("validation includes fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:       "validation_failed",
			Description: "invalid input",
			Fields:      map[string]string{"correo": "Correo inválido"},
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "invalid input", body.Description)
		assert.Equal(t, "Correo inválido", body.Fields["correo"])
	})

	t.Run("bad gateway keeps description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, http.StatusBadGateway, ErrorResponse{Error: "persistence_failed", Description: "status 422"})
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "status 422", body.Description)
	})
}
