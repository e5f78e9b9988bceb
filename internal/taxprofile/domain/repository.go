package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	FindByProduct(ctx context.Context, orgID, productID snowflake.ID) (*TaxProfile, error)
	FindByCategory(ctx context.Context, orgID, categoryID snowflake.ID) (*TaxProfile, error)
	FindByCategoryType(ctx context.Context, orgID snowflake.ID, categoryType string) (*TaxProfile, error)
	Create(ctx context.Context, p *TaxProfile) error
}
