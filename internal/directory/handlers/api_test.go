package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/gartstein/directory/internal/directory/controller"
	"github.com/gartstein/directory/internal/directory/enrichment"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/fallback"
	"github.com/gartstein/directory/internal/directory/mockstore"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "handlers-test-secret-0123456789abcdef"

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Source     string          `json:"source"`
	Message    string          `json:"message"`
	Pagination *struct {
		Page       int  `json:"page"`
		Limit      int  `json:"limit"`
		Total      int  `json:"total"`
		TotalPages int  `json:"totalPages"`
		HasNext    bool `json:"hasNext"`
	} `json:"pagination"`
	Error *struct {
		Code    string `json:"code"`
		Type    string `json:"type"`
		Message string `json:"message"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	} `json:"error"`
}

// newMockAPI serves the fixtures in mock mode, the way the process runs
// without a reachable database.
func newMockAPI(t *testing.T, logger *zap.Logger) http.Handler {
	t.Helper()
	return newMockAPIWith(t, logger, Options{JWTSecret: testSecret, MockMode: true})
}

func newMockAPIWith(t *testing.T, logger *zap.Logger, opts Options) http.Handler {
	t.Helper()
	store := mockstore.New(logger)
	producer := events.NopProducer{}
	svc := Services{
		Companies:        controller.NewCompanyService(fallback.New[controller.CompanySource](store, store, true, logger), producer, logger),
		Employees:        controller.NewEmployeeService(fallback.New[controller.EmployeeSource](store, store, true, logger), enrichment.New(logger, enrichment.DefaultProviders()...), producer, logger),
		Trainers:         controller.NewTrainerService(fallback.New[controller.TrainerSource](store, store, true, logger), producer, logger),
		TrainingRequests: controller.NewTrainingRequestService(fallback.New[controller.TrainingRequestSource](store, store, true, logger), producer, logger),
	}
	return NewAPI(svc, opts, logger).Handler()
}

func token(t *testing.T, role, companyID string) string {
	t.Helper()
	tok, err := auth.GenerateToken("emp_12345", role, companyID, testSecret)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, h http.Handler, method, path, tok string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func TestAPI_Health(t *testing.T) {
	h := newMockAPI(t, zaptest.NewLogger(t))

	rec, env := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mock", env.Source)
	assert.Equal(t, "mock", rec.Header().Get("X-Data-Source"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var health healthStatus
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.MockMode)
	assert.False(t, health.Live)
}

func TestAPI_Access(t *testing.T) {
	h := newMockAPI(t, zaptest.NewLogger(t))

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		header   string
		wantCode int
		wantErr  string
	}{
		{name: "no token", method: "GET", path: "/api/v1/companies/company_12345", wantCode: 401, wantErr: "UNAUTHORIZED"},
		{name: "any role reads a company", method: "GET", path: "/api/v1/companies/company_12345", token: token(t, auth.RoleEmployee, ""), wantCode: 200},
		{name: "employee cannot list companies", method: "GET", path: "/api/v1/companies", token: token(t, auth.RoleEmployee, ""), wantCode: 403, wantErr: "FORBIDDEN"},
		{name: "manager cannot delete companies", method: "DELETE", path: "/api/v1/companies/company_12345", token: token(t, auth.RoleManager, ""), wantCode: 403, wantErr: "FORBIDDEN"},
		{name: "team lead lists employees", method: "GET", path: "/api/v1/employees", token: token(t, auth.RoleTeamLead, ""), wantCode: 200},
		{name: "employee cannot see statistics", method: "GET", path: "/api/v1/training-requests/statistics", token: token(t, auth.RoleEmployee, ""), wantCode: 403, wantErr: "FORBIDDEN"},
		{name: "other company by path", method: "GET", path: "/api/v1/companies/company_12345", token: token(t, auth.RoleManager, "company_23456"), wantCode: 403, wantErr: "SECURITY_ERROR"},
		{name: "other company by header", method: "GET", path: "/api/v1/trainers", token: token(t, auth.RoleManager, "company_23456"), header: "company_12345", wantCode: 403, wantErr: "SECURITY_ERROR"},
		{name: "hr admin crosses companies", method: "GET", path: "/api/v1/companies/company_12345", token: token(t, auth.RoleHRAdmin, "company_23456"), wantCode: 200},
		{name: "other company's employee", method: "GET", path: "/api/v1/employees/emp_12345", token: token(t, auth.RoleTeamLead, "company_23456"), wantCode: 403, wantErr: "SECURITY_ERROR"},
		{name: "other company's request change", method: "POST", path: "/api/v1/training-requests/req_12345/approve", token: token(t, auth.RoleManager, "company_23456"), wantCode: 403, wantErr: "SECURITY_ERROR"},
		{name: "unknown route", method: "GET", path: "/api/v1/departments", token: token(t, auth.RoleEmployee, ""), wantCode: 404, wantErr: "NOT_FOUND"},
		{name: "wrong method", method: "PATCH", path: "/api/v1/companies", token: token(t, auth.RoleHRAdmin, ""), wantCode: 405, wantErr: "METHOD_NOT_ALLOWED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			if tt.header != "" {
				req.Header.Set("X-Company-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			var env envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, "mock", env.Source)
			if tt.wantErr == "" {
				assert.True(t, env.Success)
				return
			}
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}
}

func TestAPI_CompanyLifecycle(t *testing.T) {
	h := newMockAPI(t, zaptest.NewLogger(t))
	admin := token(t, auth.RoleHRAdmin, "")

	rec, env := do(t, h, http.MethodPost, "/api/v1/companies", admin, map[string]any{
		"name": "Globex", "industry": "Energy", "website": "https://globex.example",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Company created successfully", env.Message)
	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Regexp(t, `^company_\d+`, created.ID)

	rec, env = do(t, h, http.MethodPost, "/api/v1/companies", admin, map[string]any{"name": "GLOBEX"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_ENTRY", env.Error.Code)

	rec, _ = do(t, h, http.MethodPut, "/api/v1/companies/"+created.ID, admin, map[string]any{"description": "Power for everyone"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = do(t, h, http.MethodDelete, "/api/v1/companies/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Company deleted successfully", env.Message)

	rec, env = do(t, h, http.MethodGet, "/api/v1/companies/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Company not found", env.Error.Message)
	assert.Equal(t, "mock", env.Source)
}

func TestAPI_BodyValidation(t *testing.T) {
	h := newMockAPI(t, zaptest.NewLogger(t))
	admin := token(t, auth.RoleHRAdmin, "")

	tests := []struct {
		name       string
		body       any
		wantFields []string
	}{
		{name: "empty body", body: nil, wantFields: []string{"body"}},
		{name: "malformed json", body: "{", wantFields: []string{"body"}},
		{name: "unknown field", body: map[string]any{"name": "Initech", "ceo": "Bill"}, wantFields: []string{"body"}},
		{name: "rule violations", body: map[string]any{"name": "I", "website": "not a url"}, wantFields: []string{"name", "website"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, "/api/v1/companies", admin, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
			var fields []string
			for _, d := range env.Error.Details {
				fields = append(fields, d.Field)
			}
			assert.Subset(t, fields, tt.wantFields)
		})
	}
}

func TestAPI_ListsAndStaticRoutes(t *testing.T) {
	h := newMockAPI(t, zaptest.NewLogger(t))
	manager := token(t, auth.RoleManager, "")

	rec, env := do(t, h, http.MethodGet, "/api/v1/employees?companyId=company_12345&limit=2", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 3, env.Pagination.Total)
	assert.Equal(t, 2, env.Pagination.Limit)
	assert.Equal(t, 2, env.Pagination.TotalPages)
	assert.True(t, env.Pagination.HasNext)

	rec, env = do(t, h, http.MethodGet, "/api/v1/employees?limit=500&page=0", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, env.Pagination.Limit)
	assert.Equal(t, 1, env.Pagination.Page)

	rec, env = do(t, h, http.MethodGet, "/api/v1/companies?page=461168601842738792", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.MaxPage, env.Pagination.Page)
	assert.JSONEq(t, `[]`, string(env.Data))

	rec, env = do(t, h, http.MethodGet, "/api/v1/trainers/search?skills=react&teachingModes=virtual", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var trainers []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &trainers))
	require.Len(t, trainers, 1)
	assert.Equal(t, "trainer_12345", trainers[0].ID)

	rec, env = do(t, h, http.MethodGet, "/api/v1/training-requests/statistics", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats controller.Statistics
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 3, stats.Total)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/training-requests?status=archived", manager, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// A company-bound caller listing without a company sees only their own.
func TestAPI_ScopedListNarrows(t *testing.T) {
	h := newMockAPI(t, zaptest.NewLogger(t))

	_, env := do(t, h, http.MethodGet, "/api/v1/employees", token(t, auth.RoleTeamLead, "company_23456"), nil)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.Total)

	_, env = do(t, h, http.MethodGet, "/api/v1/employees", token(t, auth.RoleHRAdmin, "company_23456"), nil)
	assert.Equal(t, 4, env.Pagination.Total)
}

func TestAPI_TrainingRequestWorkflow(t *testing.T) {
	h := newMockAPI(t, zaptest.NewLogger(t))
	manager := token(t, auth.RoleManager, "company_12345")

	rec, env := do(t, h, http.MethodPost, "/api/v1/training-requests/req_12345/reject", manager, map[string]any{"reason": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, env = do(t, h, http.MethodPost, "/api/v1/training-requests/req_12345/approve", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved struct {
		Status     string `json:"status"`
		ApproverID string `json:"approverId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &approved))
	assert.Equal(t, "approved", approved.Status)
	assert.Equal(t, "emp_12345", approved.ApproverID, "approver defaults to the caller")

	rec, env = do(t, h, http.MethodPost, "/api/v1/training-requests/req_12345/assign-trainer", manager, map[string]any{"trainerId": "trainer_404"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REFERENCE", env.Error.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/training-requests/req_12345/assign-trainer", manager, map[string]any{"trainerId": "trainer_12345"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = do(t, h, http.MethodPatch, "/api/v1/training-requests/req_12345/status", manager, map[string]any{"status": "in-progress", "note": "kick-off"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = do(t, h, http.MethodGet, "/api/v1/training-requests/req_12345/history", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history controller.History
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Equal(t, "in-progress", string(history.Status))
	assert.GreaterOrEqual(t, len(history.Timeline), 4)

	rec, env = do(t, h, http.MethodDelete, "/api/v1/training-requests/req_12345", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Training request cancelled successfully", env.Message)
}

func TestAPI_EmployeeAndTrainerActions(t *testing.T) {
	h := newMockAPI(t, zaptest.NewLogger(t))
	manager := token(t, auth.RoleManager, "")
	employee := token(t, auth.RoleEmployee, "")

	rec, env := do(t, h, http.MethodPost, "/api/v1/employees/emp_23456/enrich", manager, map[string]any{"sources": []string{"myspace"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "sources[0]", env.Error.Details[0].Field)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/employees/emp_23456/enrich", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, path := range []string{"skill-gap?careerGoal=architect", "relevance", "skills/competences"} {
		rec, _ = do(t, h, http.MethodGet, "/api/v1/employees/emp_23456/"+path, employee, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec, env = do(t, h, http.MethodPost, "/api/v1/trainers/trainer_12345/ratings", employee, map[string]any{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/trainers/trainer_12345/ratings", employee, map[string]any{"rating": 5})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/trainers/trainer_12345/availability", employee, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, h, http.MethodGet, "/api/v1/trainers/trainer_23456/course-history", employee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history controller.CourseHistory
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history.Courses, 1)
}

func TestAPI_RequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := newMockAPI(t, zap.New(core))

	do(t, h, http.MethodGet, "/api/v1/companies/company_12345", token(t, auth.RoleEmployee, ""), nil)

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/v1/companies/{id}", fields["route"])
	assert.Equal(t, "/api/v1/companies/company_12345", fields["path"])
	assert.Equal(t, int64(200), fields["status"])
	assert.Equal(t, "mock", fields["source"])
}

type recordedRequest struct {
	method, route string
	status        int
}

type fakeRecorder struct{ got []recordedRequest }

func (f *fakeRecorder) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	f.got = append(f.got, recordedRequest{method, route, status})
}

func TestRecoverer(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	rec := &fakeRecorder{}
	h := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		recoverer(zap.New(core)), requestLogger(zap.NewNop(), rec))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
	assert.Equal(t, "Internal server error", env.Error.Message)
	assert.Equal(t, 1, logs.FilterMessage("Panic while serving request").Len())
}

func TestRequestLogger_RecordsMetrics(t *testing.T) {
	rec := &fakeRecorder{}
	h := requestLogger(zap.NewNop(), rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		matched(r.Context(), "/api/v1/trainers/{id}")
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/trainers/t1", nil))
	require.Len(t, rec.got, 1)
	assert.Equal(t, recordedRequest{"GET", "/api/v1/trainers/{id}", http.StatusTeapot}, rec.got[0])
}

// The limiter counts a client's requests whether or not they carry a
// valid token.
func TestAPI_RateLimitCoversUnauthenticatedRequests(t *testing.T) {
	limiter := ratelimit.New(context.Background(), 0.01, 2, nil)
	defer limiter.Stop()
	h := newMockAPIWith(t, zaptest.NewLogger(t), Options{
		JWTSecret: testSecret,
		MockMode:  true,
		RateLimit: limiter.Middleware,
	})

	rec, env := do(t, h, http.MethodGet, "/api/v1/companies/company_12345", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/companies/company_12345", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = do(t, h, http.MethodGet, "/api/v1/companies/company_12345", token(t, auth.RoleEmployee, ""), nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec, _ = do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
