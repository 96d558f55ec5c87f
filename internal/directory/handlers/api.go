package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/gartstein/directory/internal/directory/controller"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/fallback"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/gartstein/directory/internal/directory/response"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

const (
	apiBase      = "/api/v1"
	maxBodyBytes = 1 << 20
)

var (
	everyone    []string
	adminOnly   = []string{auth.RoleHRAdmin}
	managers    = []string{auth.RoleHRAdmin, auth.RoleManager}
	supervisors = []string{auth.RoleHRAdmin, auth.RoleManager, auth.RoleTeamLead}
)

// Services bundles the entity services served over REST.
type Services struct {
	Companies        *controller.CompanyService
	Employees        *controller.EmployeeService
	Trainers         *controller.TrainerService
	TrainingRequests *controller.TrainingRequestService
}

// Options configures the REST surface.
type Options struct {
	JWTSecret string
	MockMode  bool
	// RateLimit wraps API routes ahead of authentication when set.
	RateLimit func(http.Handler) http.Handler
	// Metrics serves GET /metrics when set.
	Metrics  http.Handler
	Recorder HTTPRecorder
}

// API is the REST surface of the directory.
type API struct {
	svc     Services
	opts    Options
	logger  *zap.Logger
	started time.Time
	live    func() bool
}

func NewAPI(svc Services, opts Options, logger *zap.Logger) *API {
	return &API{
		svc:     svc,
		opts:    opts,
		logger:  logger.Named("http"),
		started: time.Now(),
		live:    func() bool { return !opts.MockMode },
	}
}

// SetLiveCheck replaces the live-store check reported by /health.
func (a *API) SetLiveCheck(fn func() bool) { a.live = fn }

func (a *API) nominal() fallback.Source {
	if a.opts.MockMode {
		return fallback.Mock
	}
	return fallback.Live
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, params map[string]string)

// route registers h behind the role check. Registration order matters:
// the gateway mux tries the most recently added pattern first, so literal
// siblings of a {id} segment are registered after it.
func (a *API) route(mux *runtime.ServeMux, method, pattern string, roles []string, h handlerFunc) {
	err := mux.HandlePath(method, pattern, func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		matched(r.Context(), pattern)
		if err := auth.Allowed(r.Context(), roles...); err != nil {
			response.Fail(w, r, err, "")
			return
		}
		h(w, r, params)
	})
	if err != nil {
		panic(fmt.Sprintf("invalid route %s %s: %v", method, pattern, err))
	}
}

// Handler builds the full HTTP handler: routes plus the middleware chain.
func (a *API) Handler() http.Handler {
	mux := runtime.NewServeMux(
		runtime.WithRoutingErrorHandler(a.routingError),
	)

	a.companyRoutes(mux)
	a.employeeRoutes(mux)
	a.trainerRoutes(mux)
	a.trainingRequestRoutes(mux)

	if err := mux.HandlePath(http.MethodGet, "/health", a.health); err != nil {
		panic(err)
	}
	if a.opts.Metrics != nil {
		metrics := a.opts.Metrics
		if err := mux.HandlePath(http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			matched(r.Context(), "/metrics")
			metrics.ServeHTTP(w, r)
		}); err != nil {
			panic(err)
		}
	}

	mws := []func(http.Handler) http.Handler{
		recoverer(a.logger),
		requestLogger(a.logger, a.opts.Recorder),
		securityHeaders,
		a.withNominalSource,
	}
	if a.opts.RateLimit != nil {
		mws = append(mws, a.opts.RateLimit)
	}
	mws = append(mws,
		func(next http.Handler) http.Handler { return auth.HTTPMiddleware(next, a.opts.JWTSecret) },
		a.companyHeaderScope,
	)
	return chain(mux, mws...)
}

func (a *API) withNominalSource(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(response.WithSource(r.Context(), a.nominal())))
	})
}

// companyHeaderScope rejects a company-bound caller naming another
// company in X-Company-ID.
func (a *API) companyHeaderScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := auth.CheckScope(r.Context(), r.Header.Get("X-Company-ID")); err != nil {
			a.logger.Warn("Company scope violation",
				zap.String("path", r.URL.Path),
				zap.String("header_company", r.Header.Get("X-Company-ID")),
			)
			response.Fail(w, r, err, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) routingError(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler, w http.ResponseWriter, r *http.Request, status int) {
	var err *e.Error
	switch status {
	case http.StatusMethodNotAllowed:
		err = &e.Error{Kind: e.KindValidation, Message: fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path), Severity: e.SeverityLow}
		writeStatus(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", err)
	default:
		response.Fail(w, r, e.NotFound(fmt.Sprintf("Route %s %s", r.Method, r.URL.Path)), "")
	}
}

// writeStatus writes a failure envelope with a status outside the
// taxonomy table.
func writeStatus(w http.ResponseWriter, r *http.Request, status int, code string, err *e.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(response.SourceHeader, string(response.SourceFrom(r.Context())))
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response.Envelope{
		Error: &response.ErrorBody{
			Message:  err.Message,
			Code:     code,
			Type:     string(err.Kind),
			Severity: string(err.Severity),
		},
		Source:    string(response.SourceFrom(r.Context())),
		Timestamp: time.Now().UTC(),
	})
}

type healthStatus struct {
	Status   string  `json:"status"`
	MockMode bool    `json:"mockMode"`
	Live     bool    `json:"liveStore"`
	Uptime   float64 `json:"uptime"`
}

func (a *API) health(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	matched(r.Context(), "/health")
	response.OK(w, http.StatusOK, healthStatus{
		Status:   "healthy",
		MockMode: a.opts.MockMode,
		Live:     a.live(),
		Uptime:   time.Since(a.started).Seconds(),
	}, a.nominal(), "Directory service is running")
}

// decode reads a JSON body into dst. Unknown fields are rejected.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return e.Validation(e.FieldError{Field: "body", Message: "request body is required"})
		}
		return e.Validation(e.FieldError{Field: "body", Message: err.Error()})
	}
	return nil
}

// decodeOptional is decode for bodies that may be empty.
func decodeOptional(r *http.Request, dst any) error {
	err := decode(r, dst)
	var typed *e.Error
	if errors.As(err, &typed) && len(typed.Details) == 1 && typed.Details[0].Message == "request body is required" {
		return nil
	}
	return err
}

func page(r *http.Request) models.Page {
	q := r.URL.Query()
	p, _ := strconv.Atoi(q.Get("page"))
	l, _ := strconv.Atoi(q.Get("limit"))
	return models.Page{Page: p, Limit: l}.Normalize()
}

// list reads a repeated or comma separated query parameter.
func list(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// actor is the explicit id when given, else the caller's subject.
func actor(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if claims, ok := auth.FromContext(r.Context()); ok {
		return claims.Subject
	}
	return ""
}

// scopeFilter checks a requested company against the caller and narrows
// an unscoped query to the caller's own company.
func scopeFilter(ctx context.Context, companyID *string) error {
	if *companyID != "" {
		return auth.CheckScope(ctx, *companyID)
	}
	if claims, ok := auth.FromContext(ctx); ok && claims.Role != auth.RoleHRAdmin {
		*companyID = claims.CompanyID
	}
	return nil
}

// scoped reports whether the caller is bound to one company.
func scoped(ctx context.Context) bool {
	claims, ok := auth.FromContext(ctx)
	return ok && claims.CompanyID != "" && claims.Role != auth.RoleHRAdmin
}

// owned loads a record's company before a change so a company-bound caller
// cannot modify another company's data.
func owned[T any](ctx context.Context, get func(context.Context, string) (fallback.Result[T], error), id string, company func(T) string) (fallback.Source, error) {
	if !scoped(ctx) {
		return "", nil
	}
	res, err := get(ctx, id)
	if err != nil {
		return res.Source, err
	}
	return res.Source, auth.CheckScope(ctx, company(res.Value))
}

func one[T any](w http.ResponseWriter, r *http.Request, res fallback.Result[T], err error, status int, message string) {
	if err != nil {
		response.Fail(w, r, err, res.Source)
		return
	}
	response.OK(w, status, res.Value, res.Source, message)
}

func many[T any](w http.ResponseWriter, r *http.Request, res fallback.Result[models.Paged[T]], err error) {
	if err != nil {
		response.Fail(w, r, err, res.Source)
		return
	}
	response.List(w, res.Value, res.Source, "")
}

func gone[T any](w http.ResponseWriter, r *http.Request, res fallback.Result[T], err error, message string) {
	if err != nil {
		response.Fail(w, r, err, res.Source)
		return
	}
	response.OK(w, http.StatusOK, nil, res.Source, message)
}
