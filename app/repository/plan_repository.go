package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/jariassh/dropcost-master/app/models"
)

type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListActive returns the purchasable plans, cheapest first
func (r *planRepository) ListActive(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("price_monthly ASC").
		Find(&plans).Error
	return plans, err
}
