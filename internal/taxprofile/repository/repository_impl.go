package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxrail/internal/taxprofile/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) FindByProduct(ctx context.Context, orgID, productID snowflake.ID) (*domain.TaxProfile, error) {
	return r.findOne(ctx, r.db.WithContext(ctx).
		Where("org_id = ? AND product_id = ? AND active = ?", orgID, productID, true))
}

func (r *repository) FindByCategory(ctx context.Context, orgID, categoryID snowflake.ID) (*domain.TaxProfile, error) {
	return r.findOne(ctx, r.db.WithContext(ctx).
		Where("org_id = ? AND category_id = ? AND product_id IS NULL AND active = ?", orgID, categoryID, true))
}

func (r *repository) FindByCategoryType(ctx context.Context, orgID snowflake.ID, categoryType string) (*domain.TaxProfile, error) {
	return r.findOne(ctx, r.db.WithContext(ctx).
		Where("org_id = ? AND category_type = ? AND product_id IS NULL AND category_id IS NULL AND active = ?",
			orgID, strings.ToLower(strings.TrimSpace(categoryType)), true))
}

func (r *repository) Create(ctx context.Context, p *domain.TaxProfile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) findOne(ctx context.Context, stmt *gorm.DB) (*domain.TaxProfile, error) {
	_ = ctx
	var row domain.TaxProfile
	err := stmt.Order("id ASC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
