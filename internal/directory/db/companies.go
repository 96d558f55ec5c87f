package db

import (
	"context"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"gorm.io/gorm"
)

func companyFilter(f models.CompanyFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.Search != "" {
			s := like(f.Search)
			q = q.Where("(LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?))", s, s)
		}
		q = whereFold(q, "industry", f.Industry)
		q = whereFold(q, "size", f.Size)
		return whereFold(q, "status", f.Status)
	}
}

func (r *Repository) ListCompanies(ctx context.Context, f models.CompanyFilter) (models.Paged[*models.Company], error) {
	q := r.db.WithContext(ctx).Model(&models.Company{}).Scopes(alive, companyFilter(f))
	return paged[*models.Company](q, f.Page)
}

func (r *Repository) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	return get[models.Company](ctx, r.db, id)
}

// CompanyExistsByName reports whether a live company already uses name.
func (r *Repository) CompanyExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	result := alive(r.db.WithContext(ctx).Model(&models.Company{})).
		Where("LOWER(name) = LOWER(?)", name).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

// CreateCompany checks the name and inserts in one transaction.
func (r *Repository) CreateCompany(ctx context.Context, c *models.Company) error {
	return r.WithTransaction(ctx, func(tx *Repository) error {
		exists, err := tx.CompanyExistsByName(ctx, c.Name)
		if err != nil {
			return err
		}
		if exists {
			return e.Duplicate("Company with this name already exists")
		}
		newID(&c.ID)
		return create(ctx, tx.db, c, "Company")
	})
}

func (r *Repository) SaveCompany(ctx context.Context, c *models.Company) error {
	return save(ctx, r.db, c, c.ID, "Company")
}
