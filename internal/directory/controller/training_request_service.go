package controller

import (
	"context"
	"fmt"
	"strings"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/fallback"
	"github.com/gartstein/directory/internal/directory/models"
	"go.uber.org/zap"
)

type TrainingRequestService struct {
	policy   *fallback.Policy[TrainingRequestSource]
	producer EventProducer
	logger   *zap.Logger
}

func NewTrainingRequestService(policy *fallback.Policy[TrainingRequestSource], producer EventProducer, logger *zap.Logger) *TrainingRequestService {
	return &TrainingRequestService{
		policy:   policy,
		producer: producer,
		logger:   logger.Named("training_request_service"),
	}
}

func (s *TrainingRequestService) fail(err error) (fallback.Result[*models.TrainingRequest], error) {
	return fallback.Result[*models.TrainingRequest]{Source: s.policy.Nominal()}, err
}

func (s *TrainingRequestService) List(ctx context.Context, f models.TrainingRequestFilter) (fallback.Result[models.Paged[*models.TrainingRequest]], error) {
	return s.list(ctx, "training_request.list", f)
}

// Search is List with the skill-category any-match filter.
func (s *TrainingRequestService) Search(ctx context.Context, f models.TrainingRequestFilter) (fallback.Result[models.Paged[*models.TrainingRequest]], error) {
	return s.list(ctx, "training_request.search", f)
}

func (s *TrainingRequestService) list(ctx context.Context, op string, f models.TrainingRequestFilter) (fallback.Result[models.Paged[*models.TrainingRequest]], error) {
	if f.Status != "" && !models.RequestStatus(f.Status).Valid() {
		return fallback.Result[models.Paged[*models.TrainingRequest]]{Source: s.policy.Nominal()},
			e.Validation(e.FieldError{Field: "status", Message: fmt.Sprintf("unknown status %q", f.Status)})
	}
	f.Page = f.Page.Normalize()
	return fallback.Execute(ctx, s.policy, op,
		func(ctx context.Context, src TrainingRequestSource) (models.Paged[*models.TrainingRequest], error) {
			return src.ListTrainingRequests(ctx, f)
		})
}

func (s *TrainingRequestService) Get(ctx context.Context, id string) (fallback.Result[*models.TrainingRequest], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	res, err := fallback.Execute(ctx, s.policy, "training_request.get",
		func(ctx context.Context, src TrainingRequestSource) (*models.TrainingRequest, error) {
			return src.GetTrainingRequest(ctx, id)
		})
	return found(res, err, "Training request")
}

func (s *TrainingRequestService) Create(ctx context.Context, in models.TrainingRequestInput) (fallback.Result[*models.TrainingRequest], error) {
	draft, err := models.NewTrainingRequest(in)
	if err != nil {
		return s.fail(err)
	}
	res, err := fallback.Execute(ctx, s.policy, "training_request.create",
		func(ctx context.Context, src TrainingRequestSource) (*models.TrainingRequest, error) {
			r := draft.Clone()
			if err := src.CreateTrainingRequest(ctx, r); err != nil {
				return nil, err
			}
			return r, nil
		})
	if err != nil {
		return res, err
	}
	s.logger.Info("Training request created",
		zap.String("request_id", res.Value.ID),
		zap.String("company_id", res.Value.CompanyID),
		zap.String("source", string(res.Source)),
	)
	s.producer.Produce(events.Created, res.Value, string(res.Source))
	return res, nil
}

// Approve stamps the approver on a request that is not yet closed.
// Approving an already approved request overwrites approver and time.
func (s *TrainingRequestService) Approve(ctx context.Context, id, approverID, comments string) (fallback.Result[*models.TrainingRequest], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	return s.transition(ctx, "training_request.approve", id, func(r *models.TrainingRequest) error {
		if err := open(r, "approve"); err != nil {
			return err
		}
		r.Approve(approverID, comments)
		return nil
	})
}

func (s *TrainingRequestService) Reject(ctx context.Context, id, approverID, reason string) (fallback.Result[*models.TrainingRequest], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	if strings.TrimSpace(reason) == "" {
		return s.fail(e.Validation(e.FieldError{Field: "reason", Message: "is required"}))
	}
	return s.transition(ctx, "training_request.reject", id, func(r *models.TrainingRequest) error {
		if err := open(r, "reject"); err != nil {
			return err
		}
		return r.Reject(approverID, reason)
	})
}

// AssignTrainer links a trainer that exists in the same tier as the
// request.
func (s *TrainingRequestService) AssignTrainer(ctx context.Context, id, trainerID, assignedBy string) (fallback.Result[*models.TrainingRequest], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	if trainerID == "" {
		return s.fail(e.Validation(e.FieldError{Field: "trainerId", Message: "is required"}))
	}
	res, err := fallback.Execute(ctx, s.policy, "training_request.assign_trainer",
		func(ctx context.Context, src TrainingRequestSource) (*models.TrainingRequest, error) {
			r, err := src.GetTrainingRequest(ctx, id)
			if err != nil || r == nil {
				return nil, err
			}
			if err := open(r, "assign a trainer to"); err != nil {
				return nil, fallback.Permanent(err)
			}
			t, err := src.GetTrainer(ctx, trainerID)
			if err != nil {
				return nil, err
			}
			if t == nil {
				return nil, fallback.Permanent(e.InvalidReference("trainerId", trainerID))
			}
			r.AssignTrainer(t.ID, assignedBy)
			if err := src.SaveTrainingRequest(ctx, r); err != nil {
				return nil, err
			}
			return r, nil
		})
	return s.published(res, err, events.StatusChanged)
}

// UpdateStatus moves the request along its lifecycle. Only transitions
// the lifecycle allows are accepted.
func (s *TrainingRequestService) UpdateStatus(ctx context.Context, id string, status models.RequestStatus, changedBy, note string) (fallback.Result[*models.TrainingRequest], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	if !status.Valid() {
		return s.fail(e.Validation(e.FieldError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}))
	}
	return s.transition(ctx, "training_request.update_status", id, func(r *models.TrainingRequest) error {
		if !r.CanTransition(status) {
			return e.Validation(e.FieldError{
				Field:   "status",
				Message: fmt.Sprintf("cannot move from %s to %s", r.Status, status),
			})
		}
		return r.SetStatus(status, changedBy, note)
	})
}

// Cancel soft-deletes the request, moving it to cancelled.
func (s *TrainingRequestService) Cancel(ctx context.Context, id string) (fallback.Result[*models.TrainingRequest], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	res, err := fallback.Execute(ctx, s.policy, "training_request.cancel",
		func(ctx context.Context, src TrainingRequestSource) (*models.TrainingRequest, error) {
			return mutate(ctx, src.GetTrainingRequest, src.SaveTrainingRequest, id, func(r *models.TrainingRequest) error {
				r.SoftDelete()
				return nil
			})
		})
	return s.published(res, err, events.Deleted)
}

func (s *TrainingRequestService) transition(ctx context.Context, op, id string, fn func(*models.TrainingRequest) error) (fallback.Result[*models.TrainingRequest], error) {
	res, err := fallback.Execute(ctx, s.policy, op,
		func(ctx context.Context, src TrainingRequestSource) (*models.TrainingRequest, error) {
			return mutate(ctx, src.GetTrainingRequest, src.SaveTrainingRequest, id, fn)
		})
	return s.published(res, err, events.StatusChanged)
}

func (s *TrainingRequestService) published(res fallback.Result[*models.TrainingRequest], err error, action events.Action) (fallback.Result[*models.TrainingRequest], error) {
	if res, err = found(res, err, "Training request"); err != nil {
		return res, err
	}
	s.logger.Info("Training request status changed",
		zap.String("request_id", res.Value.ID),
		zap.String("status", string(res.Value.Status)),
		zap.String("source", string(res.Source)),
	)
	s.producer.Produce(action, res.Value, string(res.Source))
	return res, nil
}

// open rejects changes to a request that has reached a final status.
func open(r *models.TrainingRequest, verb string) error {
	if !r.Status.Terminal() {
		return nil
	}
	return e.Validation(e.FieldError{
		Field:   "status",
		Message: fmt.Sprintf("cannot %s a %s request", verb, r.Status),
	})
}

type History struct {
	RequestID string                `json:"requestId"`
	Status    models.RequestStatus  `json:"status"`
	Timeline  []models.HistoryEntry `json:"timeline"`
}

func (s *TrainingRequestService) History(ctx context.Context, id string) (fallback.Result[*History], error) {
	if err := requireID(id); err != nil {
		return fallback.Result[*History]{Source: s.policy.Nominal()}, err
	}
	res, err := fallback.Execute(ctx, s.policy, "training_request.history",
		func(ctx context.Context, src TrainingRequestSource) (*History, error) {
			r, err := src.GetTrainingRequest(ctx, id)
			if err != nil || r == nil {
				return nil, err
			}
			return &History{RequestID: r.ID, Status: r.Status, Timeline: r.Timeline()}, nil
		})
	return found(res, err, "Training request")
}

type Statistics struct {
	Total         int                          `json:"total"`
	ByStatus      map[models.RequestStatus]int `json:"byStatus"`
	ByType        map[string]int               `json:"byType"`
	AverageBudget float64                      `json:"averageBudget"`
}

// Statistics aggregates every request matching f, ignoring pagination.
// The average budget covers only requests that carry a budget.
func (s *TrainingRequestService) Statistics(ctx context.Context, f models.TrainingRequestFilter) (fallback.Result[*Statistics], error) {
	return fallback.Execute(ctx, s.policy, "training_request.statistics",
		func(ctx context.Context, src TrainingRequestSource) (*Statistics, error) {
			requests, err := src.FindTrainingRequests(ctx, f)
			if err != nil {
				return nil, err
			}
			return summarize(requests), nil
		})
}

func summarize(requests []*models.TrainingRequest) *Statistics {
	st := &Statistics{
		Total:    len(requests),
		ByStatus: map[models.RequestStatus]int{},
		ByType:   map[string]int{},
	}
	var budget float64
	var budgeted int
	for _, r := range requests {
		st.ByStatus[r.Status]++
		st.ByType[r.Type]++
		if r.Budget != nil {
			budget += *r.Budget
			budgeted++
		}
	}
	if budgeted > 0 {
		st.AverageBudget = budget / float64(budgeted)
	}
	return st
}
