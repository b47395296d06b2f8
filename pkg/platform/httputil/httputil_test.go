package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "agencyhub/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})
}

type createRequest struct {
	Name  string `json:"name" validate:"required,max=10"`
	Email string `json:"email" validate:"omitempty,email"`

	normalized bool
}

func (r *createRequest) Validate() error {
	if r.Name == "reserved" {
		return dErrors.New(dErrors.CodeValidation, "name is reserved")
	}
	r.normalized = true
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	decode := func(body string) (*httptest.ResponseRecorder, *createRequest, bool) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req, ok := DecodeAndPrepare[createRequest](w, r, logger, r.Context(), "req-1")
		return w, req, ok
	}

	t.Run("valid body runs Validate", func(t *testing.T) {
		_, req, ok := decode(`{"name":"acme"}`)
		require.True(t, ok)
		assert.True(t, req.normalized)
	})

	t.Run("malformed JSON is a bad request", func(t *testing.T) {
		w, _, ok := decode(`{"name":`)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"bad_request"`)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		w, _, ok := decode(`{"name":"acme","role":"owner"}`)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("struct tags are enforced", func(t *testing.T) {
		w, _, ok := decode(`{"name":"","email":"nope"}`)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "name is required")
		assert.Contains(t, w.Body.String(), "email must be a valid email")
	})

	t.Run("Validate errors pass through", func(t *testing.T) {
		w, _, ok := decode(`{"name":"reserved"}`)
		require.False(t, ok)
		assert.Contains(t, w.Body.String(), "name is reserved")
	})
}
