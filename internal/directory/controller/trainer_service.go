package controller

import (
	"context"
	"time"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/fallback"
	"github.com/gartstein/directory/internal/directory/models"
	"go.uber.org/zap"
)

const (
	MinRating = 1
	MaxRating = 5
)

type TrainerService struct {
	policy   *fallback.Policy[TrainerSource]
	producer EventProducer
	logger   *zap.Logger
	now      func() time.Time
}

func NewTrainerService(policy *fallback.Policy[TrainerSource], producer EventProducer, logger *zap.Logger) *TrainerService {
	return &TrainerService{
		policy:   policy,
		producer: producer,
		logger:   logger.Named("trainer_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *TrainerService) fail(err error) (fallback.Result[*models.Trainer], error) {
	return fallback.Result[*models.Trainer]{Source: s.policy.Nominal()}, err
}

func (s *TrainerService) List(ctx context.Context, f models.TrainerFilter) (fallback.Result[models.Paged[*models.Trainer]], error) {
	return s.list(ctx, "trainer.list", f)
}

// Search is List with the teaching-mode and skill any-match filters.
func (s *TrainerService) Search(ctx context.Context, f models.TrainerFilter) (fallback.Result[models.Paged[*models.Trainer]], error) {
	return s.list(ctx, "trainer.search", f)
}

func (s *TrainerService) list(ctx context.Context, op string, f models.TrainerFilter) (fallback.Result[models.Paged[*models.Trainer]], error) {
	f.Page = f.Page.Normalize()
	return fallback.Execute(ctx, s.policy, op,
		func(ctx context.Context, src TrainerSource) (models.Paged[*models.Trainer], error) {
			return src.ListTrainers(ctx, f)
		})
}

func (s *TrainerService) Get(ctx context.Context, id string) (fallback.Result[*models.Trainer], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	res, err := fallback.Execute(ctx, s.policy, "trainer.get",
		func(ctx context.Context, src TrainerSource) (*models.Trainer, error) {
			return src.GetTrainer(ctx, id)
		})
	return found(res, err, "Trainer")
}

func (s *TrainerService) Create(ctx context.Context, in models.TrainerInput) (fallback.Result[*models.Trainer], error) {
	draft, err := models.NewTrainer(in)
	if err != nil {
		return s.fail(err)
	}
	res, err := fallback.Execute(ctx, s.policy, "trainer.create",
		func(ctx context.Context, src TrainerSource) (*models.Trainer, error) {
			t := draft.Clone()
			if err := src.CreateTrainer(ctx, t); err != nil {
				return nil, err
			}
			return t, nil
		})
	if err != nil {
		return res, err
	}
	s.logger.Info("Trainer created",
		zap.String("trainer_id", res.Value.ID),
		zap.String("source", string(res.Source)),
	)
	s.producer.Produce(events.Created, res.Value, string(res.Source))
	return res, nil
}

func (s *TrainerService) Update(ctx context.Context, id string, u models.TrainerUpdate) (fallback.Result[*models.Trainer], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	if err := u.Validate(); err != nil {
		return s.fail(err)
	}
	if u.Availability != nil {
		if err := u.Availability.Validate(); err != nil {
			return s.fail(err)
		}
	}
	return s.change(ctx, "trainer.update", id, events.Updated, func(t *models.Trainer) error {
		t.Update(u)
		return t.Validate()
	})
}

func (s *TrainerService) Delete(ctx context.Context, id string) (fallback.Result[*models.Trainer], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	return s.change(ctx, "trainer.delete", id, events.Deleted, func(t *models.Trainer) error {
		t.SoftDelete()
		return nil
	})
}

func (s *TrainerService) UpdateAvailability(ctx context.Context, id string, a models.Availability) (fallback.Result[*models.Trainer], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	if err := a.Validate(); err != nil {
		return s.fail(err)
	}
	return s.change(ctx, "trainer.update_availability", id, events.Updated, func(t *models.Trainer) error {
		t.SetAvailability(a)
		return nil
	})
}

// UpdateCertifications removes the listed ids, then appends the new
// certifications. Unknown ids are ignored.
func (s *TrainerService) UpdateCertifications(ctx context.Context, id string, u models.CertificationsUpdate) (fallback.Result[*models.Trainer], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	if err := u.Validate(); err != nil {
		return s.fail(err)
	}
	return s.change(ctx, "trainer.update_certifications", id, events.Updated, func(t *models.Trainer) error {
		for _, certID := range u.Remove {
			t.RemoveCertification(certID)
		}
		for _, c := range u.Add {
			t.AddCertification(c)
		}
		return nil
	})
}

// Rate folds a 1..5 rating into the trainer's running average.
func (s *TrainerService) Rate(ctx context.Context, id string, rating float64) (fallback.Result[*models.Trainer], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	if rating < MinRating || rating > MaxRating {
		return s.fail(e.Validation(e.FieldError{Field: "rating", Message: "must be between 1 and 5"}))
	}
	return s.change(ctx, "trainer.rate", id, events.Updated, func(t *models.Trainer) error {
		t.UpdateRating(rating)
		return nil
	})
}

func (s *TrainerService) change(ctx context.Context, op, id string, action events.Action, fn func(*models.Trainer) error) (fallback.Result[*models.Trainer], error) {
	res, err := fallback.Execute(ctx, s.policy, op,
		func(ctx context.Context, src TrainerSource) (*models.Trainer, error) {
			return mutate(ctx, src.GetTrainer, src.SaveTrainer, id, fn)
		})
	if res, err = found(res, err, "Trainer"); err != nil {
		return res, err
	}
	s.logger.Info("Trainer changed",
		zap.String("operation", op),
		zap.String("trainer_id", id),
		zap.String("source", string(res.Source)),
	)
	s.producer.Produce(action, res.Value, string(res.Source))
	return res, nil
}

type Availability struct {
	TrainerID     string                 `json:"trainerId"`
	Timezone      string                 `json:"timezone"`
	Schedule      map[string]models.Slot `json:"schedule"`
	NextAvailable time.Time              `json:"nextAvailable"`
	IsAvailable   bool                   `json:"isAvailable"`
	LastChecked   time.Time              `json:"lastChecked"`
}

func (s *TrainerService) Availability(ctx context.Context, id string) (fallback.Result[*Availability], error) {
	if err := requireID(id); err != nil {
		return fallback.Result[*Availability]{Source: s.policy.Nominal()}, err
	}
	res, err := fallback.Execute(ctx, s.policy, "trainer.availability",
		func(ctx context.Context, src TrainerSource) (*Availability, error) {
			t, err := src.GetTrainer(ctx, id)
			if err != nil || t == nil {
				return nil, err
			}
			checked := s.now()
			return &Availability{
				TrainerID:     t.ID,
				Timezone:      t.Availability.Timezone,
				Schedule:      t.Availability.Schedule,
				NextAvailable: checked.Add(24 * time.Hour),
				IsAvailable:   t.IsActive() && t.HasOpenSlot(),
				LastChecked:   checked,
			}, nil
		})
	return found(res, err, "Trainer")
}

type CourseHistory struct {
	TrainerID           string                    `json:"trainerId"`
	Courses             []*models.TrainingRequest `json:"courseHistory"`
	TotalStudentsTaught int                       `json:"totalStudentsTaught"`
	AverageRating       float64                   `json:"averageRating"`
	ReviewCount         int                       `json:"reviewCount"`
}

// CourseHistory lists completed training requests delivered by the trainer.
func (s *TrainerService) CourseHistory(ctx context.Context, id string) (fallback.Result[*CourseHistory], error) {
	if err := requireID(id); err != nil {
		return fallback.Result[*CourseHistory]{Source: s.policy.Nominal()}, err
	}
	res, err := fallback.Execute(ctx, s.policy, "trainer.course_history",
		func(ctx context.Context, src TrainerSource) (*CourseHistory, error) {
			t, err := src.GetTrainer(ctx, id)
			if err != nil || t == nil {
				return nil, err
			}
			courses, err := src.FindTrainingRequests(ctx, models.TrainingRequestFilter{
				TrainerID: id,
				Status:    string(models.RequestCompleted),
			})
			if err != nil {
				return nil, err
			}
			if courses == nil {
				courses = []*models.TrainingRequest{}
			}
			return &CourseHistory{
				TrainerID:           t.ID,
				Courses:             courses,
				TotalStudentsTaught: t.TotalStudentsTaught,
				AverageRating:       t.AverageRating,
				ReviewCount:         t.ReviewCount,
			}, nil
		})
	return found(res, err, "Trainer")
}
