package db

import (
	"context"

	"github.com/gartstein/directory/internal/directory/models"
	"gorm.io/gorm"
)

// trainerFilter covers the scalar columns. Skills and teaching modes live
// in JSON text and are matched in memory.
func trainerFilter(f models.TrainerFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if f.Search != "" {
			s := like(f.Search)
			q = q.Where("(LOWER(first_name || ' ' || last_name) LIKE LOWER(?) OR LOWER(verified_teaching_skills) LIKE LOWER(?))", s, s)
		}
		q = whereEq(q, "company_id", f.CompanyID)
		q = whereFold(q, "trainer_type", f.TrainerType)
		return whereFold(q, "status", f.Status)
	}
}

func (r *Repository) ListTrainers(ctx context.Context, f models.TrainerFilter) (models.Paged[*models.Trainer], error) {
	q := r.db.WithContext(ctx).Model(&models.Trainer{}).Scopes(alive, trainerFilter(f))
	if !f.HasCollectionFilters() {
		return paged[*models.Trainer](q, f.Page)
	}
	rows, err := all[*models.Trainer](q)
	if err != nil {
		return models.Paged[*models.Trainer]{}, err
	}
	return models.Paginate(matching(rows, f.Match), f.Page), nil
}

func (r *Repository) GetTrainer(ctx context.Context, id string) (*models.Trainer, error) {
	return get[models.Trainer](ctx, r.db, id)
}

func (r *Repository) CreateTrainer(ctx context.Context, t *models.Trainer) error {
	newID(&t.ID)
	return create(ctx, r.db, t, "Trainer")
}

func (r *Repository) SaveTrainer(ctx context.Context, t *models.Trainer) error {
	return save(ctx, r.db, t, t.ID, "Trainer")
}
