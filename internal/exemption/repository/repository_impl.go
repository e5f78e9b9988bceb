package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxrail/internal/exemption/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) ListActive(ctx context.Context, orgID, clientID snowflake.ID, asOf time.Time) ([]domain.Exemption, error) {
	var rows []domain.Exemption
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND client_id = ? AND status = ?", orgID, clientID, domain.StatusActive).
		Where("issue_date <= ?", asOf).
		Where("expiry_date IS NULL OR expiry_date > ?", asOf).
		Order("priority ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Create(ctx context.Context, e *domain.Exemption) error {
	return r.db.WithContext(ctx).Create(e).Error
}
