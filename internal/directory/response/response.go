// Package response writes the JSON envelope every directory endpoint
// returns. Successful responses carry data and the tier that produced it;
// failures carry the classified error and the tier that failed.
package response

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/fallback"
	"github.com/gartstein/directory/internal/directory/models"
)

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

type Envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Source     string      `json:"source"`
	Message    string      `json:"message,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

type ErrorBody struct {
	Message  string         `json:"message"`
	Code     string         `json:"code"`
	Type     string         `json:"type"`
	Severity string         `json:"severity"`
	Details  []e.FieldError `json:"details,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

func PaginationOf[T any](p models.Paged[T]) *Pagination {
	pages := p.TotalPages()
	return &Pagination{
		Page:       p.Page.Page,
		Limit:      p.Page.Limit,
		Total:      p.Total,
		TotalPages: pages,
		HasNext:    p.Page.Page < pages,
		HasPrev:    p.Page.Page > 1,
	}
}

type sourceKey struct{}

// WithSource records the source reported when no tier has answered.
func WithSource(ctx context.Context, src fallback.Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, src)
}

// SourceFrom returns the source recorded by WithSource, or live.
func SourceFrom(ctx context.Context) fallback.Source {
	if src, ok := ctx.Value(sourceKey{}).(fallback.Source); ok {
		return src
	}
	return fallback.Live
}

func OK(w http.ResponseWriter, status int, data any, src fallback.Source, message string) {
	write(w, status, Envelope{
		Success:   true,
		Data:      data,
		Source:    string(src),
		Message:   message,
		Timestamp: now(),
	})
}

// List writes one page of items with its pagination block.
func List[T any](w http.ResponseWriter, p models.Paged[T], src fallback.Source, message string) {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	write(w, http.StatusOK, Envelope{
		Success:    true,
		Data:       items,
		Pagination: PaginationOf(p),
		Source:     string(src),
		Message:    message,
		Timestamp:  now(),
	})
}

// Fail writes err as a failure envelope. An empty src falls back to the
// source recorded on the request.
func Fail(w http.ResponseWriter, r *http.Request, err error, src fallback.Source) {
	if src == "" {
		src = SourceFrom(r.Context())
	}
	typed := e.Envelope(err)
	write(w, e.HTTPStatus(typed.Kind), Envelope{
		Success: false,
		Error: &ErrorBody{
			Message:  typed.Message,
			Code:     typed.Code(),
			Type:     string(typed.Kind),
			Severity: string(typed.Severity),
			Details:  typed.Details,
		},
		Source:    string(src),
		Timestamp: now(),
	})
}

// SourceHeader repeats the envelope source for middleware and proxies.
const SourceHeader = "X-Data-Source"

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(SourceHeader, env.Source)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
