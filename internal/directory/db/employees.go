package db

import (
	"context"

	"github.com/gartstein/directory/internal/directory/models"
	"gorm.io/gorm"
)

func employeeFilter(f models.EmployeeFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.Search != "" {
			s := like(f.Search)
			q = q.Where("(LOWER(first_name || ' ' || last_name) LIKE LOWER(?) OR LOWER(job_title) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?))", s, s, s)
		}
		q = whereEq(q, "company_id", f.CompanyID)
		q = whereEq(q, "department_id", f.DepartmentID)
		q = whereEq(q, "team_id", f.TeamID)
		q = whereFold(q, "role", f.Role)
		q = whereFold(q, "level", f.Level)
		return whereFold(q, "status", f.Status)
	}
}

func (r *Repository) ListEmployees(ctx context.Context, f models.EmployeeFilter) (models.Paged[*models.Employee], error) {
	q := r.db.WithContext(ctx).Model(&models.Employee{}).Scopes(alive, employeeFilter(f))
	return paged[*models.Employee](q, f.Page)
}

func (r *Repository) FindEmployees(ctx context.Context, f models.EmployeeFilter) ([]*models.Employee, error) {
	q := r.db.WithContext(ctx).Model(&models.Employee{}).Scopes(alive, employeeFilter(f))
	return all[*models.Employee](q)
}

func (r *Repository) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	return get[models.Employee](ctx, r.db, id)
}

func (r *Repository) CreateEmployee(ctx context.Context, emp *models.Employee) error {
	newID(&emp.ID)
	return create(ctx, r.db, emp, "Employee")
}

func (r *Repository) SaveEmployee(ctx context.Context, emp *models.Employee) error {
	return save(ctx, r.db, emp, emp.ID, "Employee")
}
