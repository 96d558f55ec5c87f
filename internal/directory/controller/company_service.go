package controller

import (
	"context"
	"sort"

	"github.com/gartstein/directory/internal/directory/events"
	"github.com/gartstein/directory/internal/directory/fallback"
	"github.com/gartstein/directory/internal/directory/models"
	"go.uber.org/zap"
)

// CompanyService manages companies over a live and a mock source.
type CompanyService struct {
	policy   *fallback.Policy[CompanySource]
	producer EventProducer
	logger   *zap.Logger
}

func NewCompanyService(policy *fallback.Policy[CompanySource], producer EventProducer, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		policy:   policy,
		producer: producer,
		logger:   logger.Named("company_service"),
	}
}

func (s *CompanyService) List(ctx context.Context, f models.CompanyFilter) (fallback.Result[models.Paged[*models.Company]], error) {
	f.Page = f.Page.Normalize()
	return fallback.Execute(ctx, s.policy, "company.list",
		func(ctx context.Context, src CompanySource) (models.Paged[*models.Company], error) {
			return src.ListCompanies(ctx, f)
		})
}

func (s *CompanyService) Get(ctx context.Context, id string) (fallback.Result[*models.Company], error) {
	if err := requireID(id); err != nil {
		return fallback.Result[*models.Company]{Source: s.policy.Nominal()}, err
	}
	res, err := fallback.Execute(ctx, s.policy, "company.get",
		func(ctx context.Context, src CompanySource) (*models.Company, error) {
			return src.GetCompany(ctx, id)
		})
	return found(res, err, "Company")
}

// Create validates the input and stores a new company. Each tier gets
// its own copy so an id assigned by a failed primary never leaks into the
// secondary.
func (s *CompanyService) Create(ctx context.Context, in models.CompanyInput) (fallback.Result[*models.Company], error) {
	draft, err := models.NewCompany(in)
	if err != nil {
		return fallback.Result[*models.Company]{Source: s.policy.Nominal()}, err
	}
	res, err := fallback.Execute(ctx, s.policy, "company.create",
		func(ctx context.Context, src CompanySource) (*models.Company, error) {
			c := draft.Clone()
			if err := src.CreateCompany(ctx, c); err != nil {
				return nil, err
			}
			return c, nil
		})
	if err != nil {
		return res, err
	}
	s.logger.Info("Company created",
		zap.String("company_id", res.Value.ID),
		zap.String("source", string(res.Source)),
	)
	s.producer.Produce(events.Created, res.Value, string(res.Source))
	return res, nil
}

func (s *CompanyService) Update(ctx context.Context, id string, u models.CompanyUpdate) (fallback.Result[*models.Company], error) {
	if err := requireID(id); err != nil {
		return fallback.Result[*models.Company]{Source: s.policy.Nominal()}, err
	}
	if err := u.Validate(); err != nil {
		return fallback.Result[*models.Company]{Source: s.policy.Nominal()}, err
	}
	res, err := fallback.Execute(ctx, s.policy, "company.update",
		func(ctx context.Context, src CompanySource) (*models.Company, error) {
			return mutate(ctx, src.GetCompany, src.SaveCompany, id, func(c *models.Company) error {
				c.Update(u)
				return nil
			})
		})
	if res, err = found(res, err, "Company"); err != nil {
		return res, err
	}
	s.logger.Info("Company updated",
		zap.String("company_id", id),
		zap.String("source", string(res.Source)),
	)
	s.producer.Produce(events.Updated, res.Value, string(res.Source))
	return res, nil
}

// Delete soft-deletes the company. The record stays stored with
// DeletedAt set and disappears from reads.
func (s *CompanyService) Delete(ctx context.Context, id string) (fallback.Result[*models.Company], error) {
	if err := requireID(id); err != nil {
		return fallback.Result[*models.Company]{Source: s.policy.Nominal()}, err
	}
	res, err := fallback.Execute(ctx, s.policy, "company.delete",
		func(ctx context.Context, src CompanySource) (*models.Company, error) {
			return mutate(ctx, src.GetCompany, src.SaveCompany, id, func(c *models.Company) error {
				c.SoftDelete()
				return nil
			})
		})
	if res, err = found(res, err, "Company"); err != nil {
		return res, err
	}
	s.logger.Info("Company deleted",
		zap.String("company_id", id),
		zap.String("source", string(res.Source)),
	)
	s.producer.Produce(events.Deleted, res.Value, string(res.Source))
	return res, nil
}

// Hierarchy is a company with its departments, teams and members.
type Hierarchy struct {
	*models.Company
	Departments []Department `json:"departments"`
}

type Department struct {
	ID            string   `json:"id"`
	HeadID        string   `json:"headId,omitempty"`
	EmployeeCount int      `json:"employeeCount"`
	Teams         []Team   `json:"teams"`
	Members       []Member `json:"members"`
}

type Team struct {
	ID            string   `json:"id"`
	LeadID        string   `json:"leadId,omitempty"`
	EmployeeCount int      `json:"employeeCount"`
	Members       []Member `json:"members"`
}

type Member struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	JobTitle  string `json:"jobTitle"`
	Role      string `json:"role"`
	ManagerID string `json:"managerId,omitempty"`
}

// Hierarchy groups the company's active employees by department and team.
// Employees without a team are listed directly under their department.
func (s *CompanyService) Hierarchy(ctx context.Context, id string) (fallback.Result[*Hierarchy], error) {
	if err := requireID(id); err != nil {
		return fallback.Result[*Hierarchy]{Source: s.policy.Nominal()}, err
	}
	res, err := fallback.Execute(ctx, s.policy, "company.hierarchy",
		func(ctx context.Context, src CompanySource) (*Hierarchy, error) {
			c, err := src.GetCompany(ctx, id)
			if err != nil || c == nil {
				return nil, err
			}
			staff, err := src.FindEmployees(ctx, models.EmployeeFilter{CompanyID: id, Status: models.StatusActive})
			if err != nil {
				return nil, err
			}
			return buildHierarchy(c, staff), nil
		})
	return found(res, err, "Company")
}

func buildHierarchy(c *models.Company, staff []*models.Employee) *Hierarchy {
	depts := map[string]*Department{}
	teams := map[string]map[string]*Team{}
	for _, emp := range staff {
		d, ok := depts[emp.DepartmentID]
		if !ok {
			d = &Department{ID: emp.DepartmentID, Teams: []Team{}, Members: []Member{}}
			depts[emp.DepartmentID] = d
			teams[emp.DepartmentID] = map[string]*Team{}
		}
		d.EmployeeCount++
		if d.HeadID == "" && (emp.Role == "manager" || emp.Role == "hr_admin") {
			d.HeadID = emp.ID
		}
		m := Member{ID: emp.ID, Name: emp.FullName(), JobTitle: emp.JobTitle, Role: emp.Role, ManagerID: emp.ManagerID}
		if emp.TeamID == "" {
			d.Members = append(d.Members, m)
			continue
		}
		t, ok := teams[emp.DepartmentID][emp.TeamID]
		if !ok {
			t = &Team{ID: emp.TeamID, Members: []Member{}}
			teams[emp.DepartmentID][emp.TeamID] = t
		}
		t.EmployeeCount++
		if t.LeadID == "" && emp.Role == "team_lead" {
			t.LeadID = emp.ID
		}
		t.Members = append(t.Members, m)
	}

	h := &Hierarchy{Company: c, Departments: make([]Department, 0, len(depts))}
	for id, d := range depts {
		for _, t := range teams[id] {
			d.Teams = append(d.Teams, *t)
		}
		sort.Slice(d.Teams, func(i, j int) bool { return d.Teams[i].ID < d.Teams[j].ID })
		h.Departments = append(h.Departments, *d)
	}
	sort.Slice(h.Departments, func(i, j int) bool { return h.Departments[i].ID < h.Departments[j].ID })
	return h
}
