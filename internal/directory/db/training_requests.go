package db

import (
	"context"

	"github.com/gartstein/directory/internal/directory/models"
	"gorm.io/gorm"
)

func trainingRequestFilter(f models.TrainingRequestFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		q = whereEq(q, "company_id", f.CompanyID)
		q = whereFold(q, "status", f.Status)
		q = whereEq(q, "requester_id", f.RequesterID)
		q = whereEq(q, "trainer_id", f.TrainerID)
		q = whereFold(q, "type", f.Type)
		return whereFold(q, "urgency", f.Urgency)
	}
}

func (r *Repository) ListTrainingRequests(ctx context.Context, f models.TrainingRequestFilter) (models.Paged[*models.TrainingRequest], error) {
	q := r.db.WithContext(ctx).Model(&models.TrainingRequest{}).Scopes(alive, trainingRequestFilter(f))
	if !f.HasCollectionFilters() {
		return paged[*models.TrainingRequest](q, f.Page)
	}
	rows, err := r.FindTrainingRequests(ctx, f)
	if err != nil {
		return models.Paged[*models.TrainingRequest]{}, err
	}
	return models.Paginate(rows, f.Page), nil
}

// FindTrainingRequests returns every match, unpaginated.
func (r *Repository) FindTrainingRequests(ctx context.Context, f models.TrainingRequestFilter) ([]*models.TrainingRequest, error) {
	q := r.db.WithContext(ctx).Model(&models.TrainingRequest{}).Scopes(alive, trainingRequestFilter(f))
	rows, err := all[*models.TrainingRequest](q)
	if err != nil {
		return nil, err
	}
	return matching(rows, f.Match), nil
}

func (r *Repository) GetTrainingRequest(ctx context.Context, id string) (*models.TrainingRequest, error) {
	return get[models.TrainingRequest](ctx, r.db, id)
}

func (r *Repository) CreateTrainingRequest(ctx context.Context, req *models.TrainingRequest) error {
	newID(&req.ID)
	return create(ctx, r.db, req, "Training request")
}

func (r *Repository) SaveTrainingRequest(ctx context.Context, req *models.TrainingRequest) error {
	return save(ctx, r.db, req, req.ID, "Training request")
}
