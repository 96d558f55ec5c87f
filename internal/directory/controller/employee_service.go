package controller

import (
	"context"
	"fmt"

	"github.com/gartstein/directory/internal/directory/enrichment"
	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/fallback"
	"github.com/gartstein/directory/internal/directory/models"
	"go.uber.org/zap"
)

type EmployeeService struct {
	policy   *fallback.Policy[EmployeeSource]
	enricher *enrichment.Enricher
	producer EventProducer
	logger   *zap.Logger
}

func NewEmployeeService(policy *fallback.Policy[EmployeeSource], enricher *enrichment.Enricher, producer EventProducer, logger *zap.Logger) *EmployeeService {
	return &EmployeeService{
		policy:   policy,
		enricher: enricher,
		producer: producer,
		logger:   logger.Named("employee_service"),
	}
}

func (s *EmployeeService) fail(err error) (fallback.Result[*models.Employee], error) {
	return fallback.Result[*models.Employee]{Source: s.policy.Nominal()}, err
}

func (s *EmployeeService) List(ctx context.Context, f models.EmployeeFilter) (fallback.Result[models.Paged[*models.Employee]], error) {
	f.Page = f.Page.Normalize()
	return fallback.Execute(ctx, s.policy, "employee.list",
		func(ctx context.Context, src EmployeeSource) (models.Paged[*models.Employee], error) {
			return src.ListEmployees(ctx, f)
		})
}

func (s *EmployeeService) Get(ctx context.Context, id string) (fallback.Result[*models.Employee], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	res, err := fallback.Execute(ctx, s.policy, "employee.get",
		func(ctx context.Context, src EmployeeSource) (*models.Employee, error) {
			return src.GetEmployee(ctx, id)
		})
	return found(res, err, "Employee")
}

func (s *EmployeeService) Create(ctx context.Context, in models.EmployeeInput) (fallback.Result[*models.Employee], error) {
	draft, err := models.NewEmployee(in)
	if err != nil {
		return s.fail(err)
	}
	res, err := fallback.Execute(ctx, s.policy, "employee.create",
		func(ctx context.Context, src EmployeeSource) (*models.Employee, error) {
			emp := draft.Clone()
			if err := src.CreateEmployee(ctx, emp); err != nil {
				return nil, err
			}
			return emp, nil
		})
	if err != nil {
		return res, err
	}
	s.logger.Info("Employee created",
		zap.String("employee_id", res.Value.ID),
		zap.String("source", string(res.Source)),
	)
	s.producer.Produce(events.Created, res.Value, string(res.Source))
	return res, nil
}

func (s *EmployeeService) Update(ctx context.Context, id string, u models.EmployeeUpdate) (fallback.Result[*models.Employee], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	if err := u.Validate(); err != nil {
		return s.fail(err)
	}
	return s.change(ctx, "employee.update", id, events.Updated, func(emp *models.Employee) error {
		emp.Update(u)
		return nil
	})
}

func (s *EmployeeService) Delete(ctx context.Context, id string) (fallback.Result[*models.Employee], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	return s.change(ctx, "employee.delete", id, events.Deleted, func(emp *models.Employee) error {
		emp.SoftDelete()
		return nil
	})
}

// UpdateSkills adds skills by name, keeping existing ones, and replaces
// competences when any are given.
func (s *EmployeeService) UpdateSkills(ctx context.Context, id string, u models.SkillsUpdate) (fallback.Result[*models.Employee], error) {
	if err := requireID(id); err != nil {
		return s.fail(err)
	}
	if err := u.Validate(); err != nil {
		return s.fail(err)
	}
	return s.change(ctx, "employee.update_skills", id, events.Updated, func(emp *models.Employee) error {
		for _, sk := range u.Skills {
			sk.Category = enrichment.Categorize(sk.Name)
			emp.AddSkill(sk)
		}
		if len(u.Competences) > 0 {
			emp.SetCompetences(u.Competences)
		}
		return nil
	})
}

func (s *EmployeeService) change(ctx context.Context, op, id string, action events.Action, fn func(*models.Employee) error) (fallback.Result[*models.Employee], error) {
	res, err := fallback.Execute(ctx, s.policy, op,
		func(ctx context.Context, src EmployeeSource) (*models.Employee, error) {
			return mutate(ctx, src.GetEmployee, src.SaveEmployee, id, fn)
		})
	if res, err = found(res, err, "Employee"); err != nil {
		return res, err
	}
	s.logger.Info("Employee changed",
		zap.String("operation", op),
		zap.String("employee_id", id),
		zap.String("source", string(res.Source)),
	)
	s.producer.Produce(action, res.Value, string(res.Source))
	return res, nil
}

// Enrichment is the outcome of Enrich.
type Enrichment struct {
	Employee *models.Employee `json:"employee"`
	*enrichment.Report
}

// Enrich runs the named providers (the defaults when none are named),
// merges their skills into the profile and records the enrichment status.
// Providers that fail are skipped; the call fails only when none answers.
func (s *EmployeeService) Enrich(ctx context.Context, id string, providers []string) (fallback.Result[*Enrichment], error) {
	nominal := fallback.Result[*Enrichment]{Source: s.policy.Nominal()}
	if err := requireID(id); err != nil {
		return nominal, err
	}
	var unknown []e.FieldError
	for i, name := range providers {
		if !s.enricher.Known(name) {
			unknown = append(unknown, e.FieldError{
				Field:   fmt.Sprintf("sources[%d]", i),
				Message: fmt.Sprintf("unknown provider %q", name),
			})
		}
	}
	if len(unknown) > 0 {
		return nominal, e.Validation(unknown...)
	}

	res, err := fallback.Execute(ctx, s.policy, "employee.enrich",
		func(ctx context.Context, src EmployeeSource) (*Enrichment, error) {
			emp, err := src.GetEmployee(ctx, id)
			if err != nil || emp == nil {
				return nil, err
			}
			report, err := s.enricher.Enrich(ctx, emp, providers)
			if err != nil {
				return nil, err
			}
			emp.RecordEnrichment(report.Skills, report.Sources, report.ValueProposition, report.Partial())
			emp.RelevanceScore = enrichment.Score(emp).RelevanceScore
			if err := src.SaveEmployee(ctx, emp); err != nil {
				return nil, err
			}
			return &Enrichment{Employee: emp, Report: report}, nil
		})
	if res, err = found(res, err, "Employee"); err != nil {
		return res, err
	}
	s.logger.Info("Employee enriched",
		zap.String("employee_id", id),
		zap.Strings("sources", res.Value.Sources),
		zap.Strings("failed_sources", res.Value.Failed),
		zap.String("source", string(res.Source)),
	)
	s.producer.Produce(events.Updated, res.Value.Employee, string(res.Source))
	return res, nil
}

func (s *EmployeeService) SkillGap(ctx context.Context, id, careerGoal string) (fallback.Result[*enrichment.SkillGap], error) {
	if err := requireID(id); err != nil {
		return fallback.Result[*enrichment.SkillGap]{Source: s.policy.Nominal()}, err
	}
	res, err := fallback.Execute(ctx, s.policy, "employee.skill_gap",
		func(ctx context.Context, src EmployeeSource) (*enrichment.SkillGap, error) {
			emp, err := src.GetEmployee(ctx, id)
			if err != nil || emp == nil {
				return nil, err
			}
			return enrichment.AnalyzeSkillGap(emp, careerGoal), nil
		})
	return found(res, err, "Employee")
}

func (s *EmployeeService) Relevance(ctx context.Context, id string) (fallback.Result[*enrichment.Relevance], error) {
	if err := requireID(id); err != nil {
		return fallback.Result[*enrichment.Relevance]{Source: s.policy.Nominal()}, err
	}
	res, err := fallback.Execute(ctx, s.policy, "employee.relevance",
		func(ctx context.Context, src EmployeeSource) (*enrichment.Relevance, error) {
			emp, err := src.GetEmployee(ctx, id)
			if err != nil || emp == nil {
				return nil, err
			}
			return enrichment.Score(emp), nil
		})
	return found(res, err, "Employee")
}

// Competences is an employee's skills alongside their competence groups.
type Competences struct {
	EmployeeID  string              `json:"employeeId"`
	Skills      []models.Skill      `json:"skills"`
	Competences []models.Competence `json:"competences"`
}

func (s *EmployeeService) Competences(ctx context.Context, id string) (fallback.Result[*Competences], error) {
	if err := requireID(id); err != nil {
		return fallback.Result[*Competences]{Source: s.policy.Nominal()}, err
	}
	res, err := fallback.Execute(ctx, s.policy, "employee.competences",
		func(ctx context.Context, src EmployeeSource) (*Competences, error) {
			emp, err := src.GetEmployee(ctx, id)
			if err != nil || emp == nil {
				return nil, err
			}
			out := &Competences{EmployeeID: emp.ID, Skills: emp.Skills, Competences: emp.Competences}
			if out.Skills == nil {
				out.Skills = []models.Skill{}
			}
			if out.Competences == nil {
				out.Competences = []models.Competence{}
			}
			return out, nil
		})
	return found(res, err, "Employee")
}
