// Package controller implements the directory services. Each service
// validates its input, runs the operation through a fallback policy over
// a live and a mock source, converts missing records into not-found
// errors and publishes lifecycle events.
package controller

import (
	"context"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/fallback"
	"github.com/gartstein/directory/internal/directory/models"
)

type EventProducer interface {
	Produce(action events.Action, entity models.Entity, source string)
}

// CompanySource is one tier of company storage. Get returns (nil, nil)
// for a missing or deleted company.
type CompanySource interface {
	ListCompanies(ctx context.Context, f models.CompanyFilter) (models.Paged[*models.Company], error)
	GetCompany(ctx context.Context, id string) (*models.Company, error)
	CreateCompany(ctx context.Context, c *models.Company) error
	SaveCompany(ctx context.Context, c *models.Company) error
	FindEmployees(ctx context.Context, f models.EmployeeFilter) ([]*models.Employee, error)
}

type EmployeeSource interface {
	ListEmployees(ctx context.Context, f models.EmployeeFilter) (models.Paged[*models.Employee], error)
	FindEmployees(ctx context.Context, f models.EmployeeFilter) ([]*models.Employee, error)
	GetEmployee(ctx context.Context, id string) (*models.Employee, error)
	CreateEmployee(ctx context.Context, emp *models.Employee) error
	SaveEmployee(ctx context.Context, emp *models.Employee) error
}

type TrainerSource interface {
	ListTrainers(ctx context.Context, f models.TrainerFilter) (models.Paged[*models.Trainer], error)
	GetTrainer(ctx context.Context, id string) (*models.Trainer, error)
	CreateTrainer(ctx context.Context, t *models.Trainer) error
	SaveTrainer(ctx context.Context, t *models.Trainer) error
	FindTrainingRequests(ctx context.Context, f models.TrainingRequestFilter) ([]*models.TrainingRequest, error)
}

// TrainingRequestSource also resolves trainers so an assignment can be
// checked against the same tier it is written to.
type TrainingRequestSource interface {
	ListTrainingRequests(ctx context.Context, f models.TrainingRequestFilter) (models.Paged[*models.TrainingRequest], error)
	FindTrainingRequests(ctx context.Context, f models.TrainingRequestFilter) ([]*models.TrainingRequest, error)
	GetTrainingRequest(ctx context.Context, id string) (*models.TrainingRequest, error)
	CreateTrainingRequest(ctx context.Context, r *models.TrainingRequest) error
	SaveTrainingRequest(ctx context.Context, r *models.TrainingRequest) error
	GetTrainer(ctx context.Context, id string) (*models.Trainer, error)
}

// Source is everything one tier provides. Both the live repository and
// the mock store satisfy it.
type Source interface {
	CompanySource
	EmployeeSource
	TrainerSource
	TrainingRequestSource
}

// found turns a nil value from whichever tier answered into a not-found
// error tagged with that tier.
func found[T any](res fallback.Result[*T], err error, resource string) (fallback.Result[*T], error) {
	if err != nil {
		return res, err
	}
	if res.Value == nil {
		return res, e.NotFound(resource)
	}
	return res, nil
}

// mutate loads a record, applies change and saves it within one tier.
// A missing record yields (nil, nil) so the caller reports not-found
// without falling back. An error from change rejects the request itself
// and is returned as permanent.
func mutate[T any](
	ctx context.Context,
	get func(context.Context, string) (*T, error),
	save func(context.Context, *T) error,
	id string,
	change func(*T) error,
) (*T, error) {
	v, err := get(ctx, id)
	if err != nil || v == nil {
		return nil, err
	}
	if err := change(v); err != nil {
		return nil, fallback.Permanent(err)
	}
	if err := save(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func requireID(id string) error {
	if id == "" {
		return e.Validation(e.FieldError{Field: "id", Message: "is required"})
	}
	return nil
}
