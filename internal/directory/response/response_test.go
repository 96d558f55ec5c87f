package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/fallback"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestOK(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = func() time.Time { return time.Now().UTC() } }()

	rec := httptest.NewRecorder()
	OK(rec, http.StatusCreated, map[string]string{"id": "c1"}, fallback.Mock, "Company created successfully")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "mock", rec.Header().Get(SourceHeader))
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "mock", body["source"])
	assert.Equal(t, "Company created successfully", body["message"])
	assert.Equal(t, "2024-01-02T03:04:05Z", body["timestamp"])
	assert.NotContains(t, body, "error")
	assert.NotContains(t, body, "pagination")
}

func TestList(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		page     models.Page
		wantNext bool
		wantPrev bool
		wantLen  int
		pages    float64
	}{
		{name: "first of three", total: 5, page: models.Page{Page: 1, Limit: 2}, wantNext: true, wantLen: 2, pages: 3},
		{name: "middle", total: 5, page: models.Page{Page: 2, Limit: 2}, wantNext: true, wantPrev: true, wantLen: 2, pages: 3},
		{name: "last", total: 5, page: models.Page{Page: 3, Limit: 2}, wantPrev: true, wantLen: 1, pages: 3},
		{name: "past the end", total: 5, page: models.Page{Page: 9, Limit: 2}, wantPrev: true, wantLen: 0, pages: 3},
		{name: "empty", total: 0, page: models.Page{}, wantLen: 0, pages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.total)
			rec := httptest.NewRecorder()
			List(rec, models.Paginate(items, tt.page), fallback.Live, "")

			body := decode(t, rec)
			data, ok := body["data"].([]any)
			require.True(t, ok, "data must be an array")
			assert.Len(t, data, tt.wantLen)

			p := body["pagination"].(map[string]any)
			assert.Equal(t, float64(tt.total), p["total"])
			assert.Equal(t, tt.pages, p["totalPages"])
			assert.Equal(t, tt.wantNext, p["hasNext"])
			assert.Equal(t, tt.wantPrev, p["hasPrev"])
		})
	}
}

func TestFail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		src      fallback.Source
		nominal  fallback.Source
		status   int
		code     string
		typ      string
		severity string
		message  string
	}{
		{
			name: "not found from mock", err: e.NotFound("Company"), src: fallback.Mock,
			status: 404, code: "NOT_FOUND", typ: "not_found", severity: "low", message: "Company not found",
		},
		{
			name: "validation uses nominal source", err: e.Validation(e.FieldError{Field: "name", Message: "is required"}),
			nominal: fallback.Mock,
			status:  400, code: "VALIDATION_ERROR", typ: "validation", severity: "low", message: "Validation failed",
		},
		{
			name: "unclassified error is hidden", err: errors.New("pq: syntax error at position 42"), src: fallback.Mock,
			status: 500, code: "INTERNAL_ERROR", typ: "unknown", severity: "high", message: "Internal server error",
		},
		{
			name: "security", err: e.Security("Access denied to company data"),
			status: 403, code: "SECURITY_ERROR", typ: "security", severity: "critical", message: "Access denied to company data",
		},
		{
			name: "rate limit", err: e.RateLimited("Too many requests"),
			status: 429, code: "RATE_LIMIT_EXCEEDED", typ: "rate_limit", severity: "medium", message: "Too many requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/x", nil)
			if tt.nominal != "" {
				req = req.WithContext(WithSource(req.Context(), tt.nominal))
			}
			rec := httptest.NewRecorder()
			Fail(rec, req, tt.err, tt.src)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			wantSrc := tt.src
			if wantSrc == "" {
				wantSrc = SourceFrom(req.Context())
			}
			assert.Equal(t, string(wantSrc), body["source"])

			errBody := body["error"].(map[string]any)
			assert.Equal(t, tt.code, errBody["code"])
			assert.Equal(t, tt.typ, errBody["type"])
			assert.Equal(t, tt.severity, errBody["severity"])
			assert.Equal(t, tt.message, errBody["message"])
		})
	}
}

func TestFail_ValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(rec, httptest.NewRequest(http.MethodPost, "/", nil), e.Validation(
		e.FieldError{Field: "name", Message: "is required"},
		e.FieldError{Field: "website", Message: "must be a valid URL"},
	), fallback.Live)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, []e.FieldError{
		{Field: "name", Message: "is required"},
		{Field: "website", Message: "must be a valid URL"},
	}, env.Error.Details)
}
