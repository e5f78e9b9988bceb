package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxrail/internal/category/domain"
	"github.com/smallbiznis/taxrail/pkg/db/option"
	pkgrepository "github.com/smallbiznis/taxrail/pkg/repository"
	"gorm.io/gorm"
)

type repository struct {
	store pkgrepository.Repository[domain.Category]
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{store: pkgrepository.ProvideStore[domain.Category](db)}
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*domain.Category, error) {
	return r.store.FindOne(ctx, &domain.Category{ID: id}, option.Where("org_id = ?", orgID))
}

func (r *repository) Create(ctx context.Context, c *domain.Category) error {
	return r.store.Create(ctx, c)
}
