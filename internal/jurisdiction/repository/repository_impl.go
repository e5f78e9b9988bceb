package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxrail/internal/jurisdiction/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) ListActive(ctx context.Context, orgID snowflake.ID) ([]domain.Jurisdiction, error) {
	var rows []domain.Jurisdiction
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND active = ?", orgID, true).
		Order("priority ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*domain.Jurisdiction, error) {
	var row domain.Jurisdiction
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) Create(ctx context.Context, j *domain.Jurisdiction) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *repository) SetActive(ctx context.Context, orgID, id snowflake.ID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&domain.Jurisdiction{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Update("active", active).Error
}
